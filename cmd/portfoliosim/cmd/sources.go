package cmd

import (
	"context"
	"fmt"

	"portfoliosim/internal/config"
	"portfoliosim/internal/engine"
	"portfoliosim/internal/feed"
	"portfoliosim/internal/repository"
	"portfoliosim/strategies/donchian"
	"portfoliosim/types"
)

// sources are the data inputs of a run, chosen by data.source.
type sources struct {
	prices  engine.PriceSource
	signals engine.SignalSource
	sectors types.SectorMap
	close   func()
}

func openSources(ctx context.Context, c *config.Config) (*sources, error) {
	src := &sources{close: func() {}}

	var static *feed.StaticPrices
	switch {
	case c.Data.Source == config.SourcePostgres || (c.Data.Source == config.SourceDonchian && c.Data.PricesPath == ""):
		db, err := repository.NewDatabase(ctx, c.Data.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		src.close = db.Close
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		sectors, err := db.GetSectorMap(ctx)
		if err != nil {
			db.Close()
			return nil, err
		}
		src.prices, src.signals, src.sectors = db, db, sectors

	default:
		var err error
		static, err = feed.LoadPricesCSV(c.Data.PricesPath)
		if err != nil {
			return nil, err
		}
		src.prices = static
		if c.Data.Source == config.SourceCSV {
			if src.signals, err = feed.LoadSignalsCSV(c.Data.SignalsPath); err != nil {
				return nil, err
			}
		}
	}

	if c.Data.SectorsPath != "" {
		sectors, err := feed.LoadSectorsCSV(c.Data.SectorsPath)
		if err != nil {
			src.close()
			return nil, err
		}
		src.sectors = sectors
	}

	if c.Data.Source == config.SourceDonchian {
		ds, err := donchian.NewSignalSource(src.prices, c.Data.Lookback)
		if err != nil {
			src.close()
			return nil, err
		}
		if static != nil {
			if err := ds.Prime(ctx, static.Dates()...); err != nil {
				return nil, err
			}
		}
		src.signals = ds
	}

	log.Debug().
		Str("source", c.Data.Source).
		Int("sectors", len(src.sectors)).
		Msg("data sources ready")
	return src, nil
}
