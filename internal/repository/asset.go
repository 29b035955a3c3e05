package repository

import (
	"context"
	"errors"
	"fmt"

	"portfoliosim/types"

	"github.com/jackc/pgx/v5"
)

type Asset struct {
	Ticker string
	Name   string
	Sector string
}

// GetAssetByTicker retrieves an Asset by its ticker.
func (db *Database) GetAssetByTicker(ctx context.Context, ticker string) (*Asset, error) {
	asset, err := db.assets.GetAssetByTicker(ctx, ticker)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticker %s %w", ticker, ErrAssetNotFound)
		}
		return nil, err
	}
	return convertAsset(asset), nil
}

// GetSectorMap maps every known ticker to its sector. Tickers without a sector
// are left out so they resolve to types.UnknownSector.
func (db *Database) GetSectorMap(ctx context.Context) (types.SectorMap, error) {
	assets, err := db.assets.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	sectors := make(types.SectorMap, len(assets))
	for _, row := range assets {
		a := convertAsset(row)
		if a.Sector == "" {
			continue
		}
		sectors[a.Ticker] = a.Sector
	}
	return sectors, nil
}

func convertAsset(row AssetRow) *Asset {
	a := &Asset{Ticker: row.Ticker, Name: row.Name}
	if row.Sector != nil {
		a.Sector = *row.Sector
	}
	return a
}
