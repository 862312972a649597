// Package stats composes the homepage statistics panel.
package stats

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/config"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/route"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/units"
)

const baseItemsCount = 3

type TileID string

const (
	TileTotalBlocks      TileID = "total_blocks"
	TileAverageBlockTime TileID = "average_block_time"
	TileBaseFee          TileID = "base_fee"
	TileLockedBTC        TileID = "rootstock_locked_btc"
)

type StatTile struct {
	ID        TileID      `json:"id"`
	Icon      string      `json:"icon"`
	Title     string      `json:"title"`
	Value     string      `json:"value"`
	Link      *route.Link `json:"link,omitempty"`
	SpanLast  bool        `json:"span_last,omitempty"`
	IsLoading bool        `json:"is_loading,omitempty"`
}

// Panel is the stats grid. ItemsCount drives the wide-screen column count;
// IsOdd tells the rendering layer to stretch the trailing tile on narrow
// screens.
type Panel struct {
	ItemsCount int        `json:"items_count"`
	IsOdd      bool       `json:"is_odd"`
	Tiles      []StatTile `json:"tiles"`
}

// ItemsCount is the grid column count for cfg.
func ItemsCount(cfg config.DisplayConfig) int {
	n := baseItemsCount
	if !cfg.Homepage.ShowAvgBlockTime {
		n--
	}
	return n
}

// Compose builds the panel for a fetch snapshot. A failed fetch renders
// nothing at all; a fetch without data yet renders the empty grid.
func Compose(q types.Query[types.HomepageStats], cfg config.DisplayConfig) *Panel {
	if q.IsError {
		return nil
	}

	itemsCount := ItemsCount(cfg)
	panel := &Panel{
		ItemsCount: itemsCount,
		IsOdd:      itemsCount%2 == 1,
		Tiles:      []StatTile{},
	}
	if q.Data == nil {
		return panel
	}

	s := q.Data
	printer := units.NewPrinter(cfg.Locale)
	loading := q.IsPlaceholder

	blocksLink := route.Blocks()
	panel.Tiles = append(panel.Tiles, StatTile{
		ID:        TileTotalBlocks,
		Icon:      "block",
		Title:     "Total blocks",
		Value:     printer.Int(s.TotalBlocks),
		Link:      &blocksLink,
		IsLoading: loading,
	})

	if cfg.Homepage.ShowAvgBlockTime {
		panel.Tiles = append(panel.Tiles, StatTile{
			ID:        TileAverageBlockTime,
			Icon:      "clock-light",
			Title:     "Average block time",
			Value:     AverageBlockTime(s.AverageBlockTime),
			IsLoading: loading,
		})
	}

	if !units.IsZero(s.BaseFeePerGas) {
		panel.Tiles = append(panel.Tiles, StatTile{
			ID:        TileBaseFee,
			Icon:      "gas",
			Title:     "Base fee",
			Value:     units.Fixed(units.ToGwei(s.BaseFeePerGas)) + " " + cfg.CurrencyUnits.Gwei,
			SpanLast:  panel.IsOdd,
			IsLoading: loading,
		})
	}

	if !units.IsZero(s.RootstockLockedBTC) {
		panel.Tiles = append(panel.Tiles, StatTile{
			ID:        TileLockedBTC,
			Icon:      "coins/bitcoin",
			Title:     "BTC Locked in 2WP",
			Value:     units.RoundedGrouped(units.ToEther(s.RootstockLockedBTC), 0) + " " + cfg.LockedAssetLabel,
			SpanLast:  panel.IsOdd,
			IsLoading: loading,
		})
	}

	// Only the trailing tile may stretch.
	for i := 0; i < len(panel.Tiles)-1; i++ {
		panel.Tiles[i].SpanLast = false
	}

	return panel
}

// AverageBlockTime renders milliseconds as seconds with one decimal, e.g.
// 12345 -> "12.3s". The quotient is a float64 and is rounded on its exact
// binary value, ties toward the larger neighbour, so 12350 -> "12.3s" and
// 2250 -> "2.3s".
func AverageBlockTime(ms *float64) string {
	if ms == nil || math.IsNaN(*ms) || math.IsInf(*ms, 0) {
		return ""
	}

	secs, _ := new(big.Float).SetFloat64(*ms / 1000).Rat(nil)
	tenths := secs.Mul(secs, big.NewRat(10, 1))
	tenths.Add(tenths, big.NewRat(1, 2))
	// Int.Div is Euclidean; with a positive denominator it floors.
	n := new(big.Int).Div(tenths.Num(), tenths.Denom())
	return decimal.NewFromBigInt(n, -1).StringFixed(1) + "s"
}
