package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"portfoliosim/types"

	"github.com/shopspring/decimal"
)

// readCSV reads every record after a header that must start with the given columns.
func readCSV(r io.Reader, columns ...string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < len(columns) {
		return nil, fmt.Errorf("%w: header %v, want %v", ErrBadRecord, header, columns)
	}
	for i, col := range columns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return nil, fmt.Errorf("%w: header %v, want %v", ErrBadRecord, header, columns)
		}
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, strings.TrimSpace(s))
}

// ReadPricesCSV reads date,symbol,close rows.
func ReadPricesCSV(r io.Reader, opts ...PricesOption) (*StaticPrices, error) {
	records, err := readCSV(r, "date", "symbol", "close")
	if err != nil {
		return nil, err
	}
	p := NewStaticPrices(opts...)
	for i, rec := range records {
		date, err := parseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, i+2, err)
		}
		px, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
		if err != nil || !px.IsPositive() {
			return nil, fmt.Errorf("%w: line %d: close %q", ErrBadRecord, i+2, rec[2])
		}
		p.Set(date, strings.TrimSpace(rec[1]), px)
	}
	return p, nil
}

// ReadSignalsCSV reads date,symbol,action,score,confidence rows.
func ReadSignalsCSV(r io.Reader) (*StaticSignals, error) {
	records, err := readCSV(r, "date", "symbol", "action", "score", "confidence")
	if err != nil {
		return nil, err
	}
	s := NewStaticSignals()
	for i, rec := range records {
		date, err := parseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, i+2, err)
		}
		action, ok := types.ConvertAction[strings.TrimSpace(rec[2])]
		if !ok {
			return nil, fmt.Errorf("%w: line %d: action %q", ErrBadRecord, i+2, rec[2])
		}
		score, err := decimal.NewFromString(strings.TrimSpace(rec[3]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: score %q", ErrBadRecord, i+2, rec[3])
		}
		confidence, err := decimal.NewFromString(strings.TrimSpace(rec[4]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: confidence %q", ErrBadRecord, i+2, rec[4])
		}
		s.Add(types.NewSignal(strings.TrimSpace(rec[1]), action, score, confidence, date))
	}
	return s, nil
}

// ReadSectorsCSV reads symbol,sector rows.
func ReadSectorsCSV(r io.Reader) (types.SectorMap, error) {
	records, err := readCSV(r, "symbol", "sector")
	if err != nil {
		return nil, err
	}
	m := make(types.SectorMap, len(records))
	for _, rec := range records {
		m[strings.TrimSpace(rec[0])] = strings.TrimSpace(rec[1])
	}
	return m, nil
}

func LoadPricesCSV(path string, opts ...PricesOption) (*StaticPrices, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prices: %w", err)
	}
	defer f.Close()
	return ReadPricesCSV(f, opts...)
}

func LoadSignalsCSV(path string) (*StaticSignals, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signals: %w", err)
	}
	defer f.Close()
	return ReadSignalsCSV(f)
}

func LoadSectorsCSV(path string) (types.SectorMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sectors: %w", err)
	}
	defer f.Close()
	return ReadSectorsCSV(f)
}
