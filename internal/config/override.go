package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnknownParam = errors.New("unknown sweep parameter")

// Param is one swept setting with the values to try.
type Param struct {
	Key    string
	Values []string
}

// ParseParam parses "key=v1,v2,...".
func ParseParam(s string) (Param, error) {
	key, list, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" || strings.TrimSpace(list) == "" {
		return Param{}, fmt.Errorf("sweep parameter %q: want key=v1,v2", s)
	}
	p := Param{Key: key}
	for _, v := range strings.Split(list, ",") {
		if v = strings.TrimSpace(v); v != "" {
			p.Values = append(p.Values, v)
		}
	}
	return p, nil
}

// With returns a copy of the config with a single setting replaced. Keys use
// the simulation and risk file names, e.g. cash_reserve or max_drawdown.
func (c *Config) With(key, value string) (*Config, error) {
	out := *c
	s := &out.Simulation
	l := &out.Risk.Limits

	var err error
	switch key {
	case "initial_capital":
		s.InitialCapital, err = decimal.NewFromString(value)
	case "horizon_days":
		s.HorizonDays, err = strconv.Atoi(value)
	case "cash_reserve":
		s.CashReserve, err = decimal.NewFromString(value)
	case "max_positions":
		s.MaxPositions, err = strconv.Atoi(value)
	case "weighting":
		s.Weighting = value
	case "min_confidence":
		s.MinConfidence, err = decimal.NewFromString(value)
	case "entry_score":
		s.EntryScore, err = decimal.NewFromString(value)
	case "exit_score":
		s.ExitScore, err = decimal.NewFromString(value)
	case "auto_reduce":
		s.AutoReduce, err = strconv.ParseBool(value)
	case "max_position_weight":
		l.MaxPositionWeight, err = decimal.NewFromString(value)
	case "max_sector_weight":
		l.MaxSectorWeight, err = decimal.NewFromString(value)
	case "max_drawdown":
		l.MaxDrawdown, err = decimal.NewFromString(value)
	case "max_daily_loss":
		l.MaxDailyLoss, err = decimal.NewFromString(value)
	case "var_confidence":
		l.VaRConfidence, err = decimal.NewFromString(value)
	case "max_var_pct":
		l.MaxVaRPct, err = decimal.NewFromString(value)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownParam, key)
	}
	if err != nil {
		return nil, fmt.Errorf("sweep parameter %s=%s: %w", key, value, err)
	}

	if s.Label == "" {
		s.Label = key + "=" + value
	} else {
		s.Label = s.Label + " " + key + "=" + value
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &out, nil
}

// Expand returns one config per combination of the swept values, in order.
func (c *Config) Expand(params []Param) ([]*Config, error) {
	out := []*Config{c}
	for _, p := range params {
		var next []*Config
		for _, base := range out {
			for _, v := range p.Values {
				cfg, err := base.With(p.Key, v)
				if err != nil {
					return nil, err
				}
				next = append(next, cfg)
			}
		}
		out = next
	}
	return out, nil
}
