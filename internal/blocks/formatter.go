package blocks

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/config"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/route"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/units"
)

// ratioPlaces bounds the decimal division before the ratio is turned into a float.
const ratioPlaces = 20

// visibility holds the per-snapshot field predicates derived from the config.
type visibility struct {
	miner bool
	gas   bool
}

func visibilityFor(cfg config.DisplayConfig) visibility {
	hidden := cfg.Views.Block.HiddenFields
	return visibility{
		miner: !hidden.Miner,
		gas:   !cfg.IsRollup() && !hidden.TotalReward,
	}
}

// Formatter turns blocks into rows for one configuration snapshot. It holds
// no mutable state and may be shared between goroutines.
type Formatter struct {
	cfg     config.DisplayConfig
	show    visibility
	printer *units.Printer
	now     func() time.Time
}

func NewFormatter(cfg config.DisplayConfig) *Formatter {
	return &Formatter{
		cfg:     cfg,
		show:    visibilityFor(cfg),
		printer: units.NewPrinter(cfg.Locale),
		now:     time.Now,
	}
}

// WithClock returns a copy of f that computes ages against now.
func (f *Formatter) WithClock(now func() time.Time) *Formatter {
	c := *f
	c.now = now
	return &c
}

// Format resolves one block with a fresh formatter for cfg.
func Format(b types.Block, cfg config.DisplayConfig) Row {
	return NewFormatter(cfg).Format(b)
}

func (f *Formatter) Format(b types.Block) Row {
	row := Row{
		Block:     f.blockCell(b),
		Timestamp: b.Timestamp,
		Age:       f.age(b.Timestamp),
		Size:      f.printer.Int(b.Size),
		TxCount:   txCount(b),
		Hash:      b.Hash,
		BaseFee:   f.baseFee(b.BaseFeePerGas),
	}

	if f.show.miner {
		miner := b.Miner
		row.Miner = &miner
	}
	if f.show.gas {
		row.Gas = f.gas(b)
	}

	return row
}

// FormatAll formats blocks preserving their order.
func (f *Formatter) FormatAll(bs []types.Block) []Row {
	rows := make([]Row, 0, len(bs))
	for _, b := range bs {
		rows = append(rows, f.Format(b))
	}
	return rows
}

// List resolves a fetch snapshot. Without data the list stays in its loading
// state, whether or not the fetch has failed.
func (f *Formatter) List(q types.Query[[]types.Block]) List {
	if q.Data == nil {
		return List{IsLoading: true, IsError: q.IsError, Rows: []Row{}}
	}

	rows := f.FormatAll(*q.Data)
	for i := range rows {
		rows[i].IsLoading = q.IsPlaceholder
	}
	return List{
		IsLoading: q.IsPlaceholder,
		IsError:   q.IsError,
		Rows:      rows,
	}
}

func (f *Formatter) blockCell(b types.Block) BlockCell {
	cell := BlockCell{Height: b.Height}
	heightOrHash := strconv.FormatUint(b.Height, 10)

	if b.Type != types.BlockTypeBlock {
		cell.Hash = b.Hash
		if b.Hash != "" {
			heightOrHash = b.Hash
		}
	}
	if b.Type == types.BlockTypeReorg {
		cell.Annotation = ReorgAnnotation
	}

	cell.Link = route.New(route.PathBlock, map[string]string{"height_or_hash": heightOrHash})
	return cell
}

func txCount(b types.Block) TxCount {
	tc := TxCount{Value: b.TxCount}
	if b.TxCount > 0 {
		link := route.BlockTab(strconv.FormatUint(b.Height, 10), route.TabTxs)
		tc.Link = &link
	}
	return tc
}

func (f *Formatter) gas(b types.Block) *Gas {
	used := b.GasUsed
	if used == nil {
		used = new(big.Int)
	}

	g := &Gas{
		Used:        units.Grouped(decimal.NewFromBigInt(used, 0)),
		Utilization: f.utilization(used, b.GasLimit),
	}
	if p := b.GasTargetPercentage; p != nil && *p != 0 {
		g.TargetRatio = f.printer.SignedPercent(*p)
	}
	return g
}

func (f *Formatter) utilization(used, limit *big.Int) Utilization {
	u := Utilization{Tooltip: UtilizationTooltip}

	ratio, ok := UtilizationRatio(used, limit)
	if !ok {
		return u
	}
	u.Ratio = &ratio
	u.Numeric = true
	u.Percent = f.printer.Percent(ratio * 100)
	return u
}

// UtilizationRatio returns used / limit. ok is false when the ratio is not a
// number: a missing or zero limit.
func UtilizationRatio(used, limit *big.Int) (ratio float64, ok bool) {
	if limit == nil || limit.Sign() == 0 {
		return 0, false
	}
	if used == nil {
		used = new(big.Int)
	}

	q := decimal.NewFromBigInt(used, 0).DivRound(decimal.NewFromBigInt(limit, 0), ratioPlaces)
	ratio, _ = q.Float64()
	return ratio, true
}

func (f *Formatter) baseFee(v *big.Int) *BaseFee {
	if v == nil {
		return nil
	}
	return &BaseFee{
		Ether:     units.Fixed(units.ToEther(v)),
		EtherUnit: f.cfg.CurrencyUnits.Ether,
		Gwei:      units.Fixed(units.ToGwei(v)),
		GweiUnit:  f.cfg.CurrencyUnits.Gwei,
	}
}

func (f *Formatter) age(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return Age(f.now().Sub(ts))
}

// Age renders an elapsed duration in the coarsest whole unit.
func Age(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
