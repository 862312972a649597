package poller

import (
	"context"
	"sync"
	"time"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/logx"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/metrics"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/source"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

const (
	ResourceSync   = "sync"
	ResourceBlocks = "blocks"
	ResourceStats  = "stats"
)

type Options struct {
	Interval time.Duration
	Limit    int
	Timeout  time.Duration
	// BlockTypes are the block lists kept fresh. The canonical list is
	// always among them.
	BlockTypes []types.BlockType
}

func DefaultOptions() Options {
	return Options{
		Interval:   3 * time.Second,
		Limit:      50,
		Timeout:    10 * time.Second,
		BlockTypes: types.BlockTypes,
	}
}

// Listener is told about every refresh, after the snapshots were swapped.
// blocks is the canonical list.
type Listener func(blocks types.Query[[]types.Block], stats types.Query[types.HomepageStats])

// Poller refreshes blocks and stats on a fixed interval. Readers always get
// something to show: placeholder data before the first success, the last
// good data when a refresh fails.
type Poller struct {
	src     source.Source
	opts    Options
	metrics *metrics.Metrics
	now     func() time.Time

	mu        sync.RWMutex
	blocks    map[types.BlockType]types.Query[[]types.Block]
	stats     types.Query[types.HomepageStats]
	listeners []Listener
}

func New(src source.Source, opts Options, m *metrics.Metrics) *Poller {
	def := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.Limit <= 0 {
		opts.Limit = def.Limit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	opts.BlockTypes = withCanonical(opts.BlockTypes)

	blocks := make(map[types.BlockType]types.Query[[]types.Block], len(opts.BlockTypes))
	for _, typ := range opts.BlockTypes {
		blocks[typ] = types.Query[[]types.Block]{Data: placeholderBlocks(opts.Limit, typ), IsPlaceholder: true}
	}

	return &Poller{
		src:     src,
		opts:    opts,
		metrics: m,
		now:     time.Now,
		blocks:  blocks,
		stats:   types.Query[types.HomepageStats]{Data: placeholderStats(), IsPlaceholder: true},
	}
}

func withCanonical(typs []types.BlockType) []types.BlockType {
	out := []types.BlockType{types.BlockTypeBlock}
	for _, typ := range typs {
		if typ != "" && typ != types.BlockTypeBlock {
			out = append(out, typ)
		}
	}
	return out
}

// OnRefresh registers l. It must be called before Run.
func (p *Poller) OnRefresh(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// Blocks returns the snapshot of the typ list. ok is false when typ is not polled.
func (p *Poller) Blocks(typ types.BlockType) (q types.Query[[]types.Block], ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	q, ok = p.blocks[typ]
	return q, ok
}

func (p *Poller) Stats() types.Query[types.HomepageStats] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// Run refreshes immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	logx.Info("🚀 Starting poller with interval %s", p.opts.Interval)
	p.Refresh(ctx)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logx.Info("🛑 Shutting down poller")
			return nil
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh syncs the source when it needs it, then fetches every block list
// and the stats once and publishes the new snapshots.
func (p *Poller) Refresh(ctx context.Context) {
	syncErr := p.sync(ctx)
	if syncErr != nil {
		logx.Error("❌ Error syncing source: %v", syncErr)
	}

	lists := make(map[types.BlockType]*[]types.Block, len(p.opts.BlockTypes))
	listErrs := make(map[types.BlockType]error, len(p.opts.BlockTypes))
	for _, typ := range p.opts.BlockTypes {
		if syncErr != nil {
			listErrs[typ] = syncErr
			continue
		}
		lists[typ], listErrs[typ] = p.fetchBlocks(ctx, typ)
		if listErrs[typ] != nil {
			logx.Error("❌ Error fetching %s blocks: %v", typ, listErrs[typ])
		}
	}

	var (
		stats    *types.HomepageStats
		statsErr = syncErr
	)
	if syncErr == nil {
		stats, statsErr = p.fetchStats(ctx)
		if statsErr != nil {
			logx.Error("❌ Error fetching stats: %v", statsErr)
		}
	}

	p.mu.Lock()
	for _, typ := range p.opts.BlockTypes {
		p.blocks[typ] = next(p.blocks[typ], lists[typ], listErrs[typ], p.now())
	}
	p.stats = next(p.stats, stats, statsErr, p.now())
	blocksQ, statsQ := p.blocks[types.BlockTypeBlock], p.stats
	listeners := p.listeners
	p.mu.Unlock()

	canonical := lists[types.BlockTypeBlock]
	if listErrs[types.BlockTypeBlock] == nil && canonical != nil && len(*canonical) > 0 && p.metrics != nil {
		p.metrics.LastBlock.Set(float64((*canonical)[0].Height))
	}

	for _, l := range listeners {
		l(blocksQ, statsQ)
	}
}

func (p *Poller) sync(ctx context.Context) error {
	syncer, ok := p.src.(source.Syncer)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	start := p.now()
	err := syncer.Sync(ctx)
	p.metrics.ObservePoll(ResourceSync, err, p.now().Sub(start).Seconds())
	return err
}

func (p *Poller) fetchBlocks(ctx context.Context, typ types.BlockType) (*[]types.Block, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	start := p.now()
	blocks, err := p.src.Blocks(ctx, typ, p.opts.Limit)
	p.metrics.ObservePoll(blocksResource(typ), err, p.now().Sub(start).Seconds())
	if err != nil {
		return nil, err
	}
	return &blocks, nil
}

// blocksResource labels the canonical list "blocks" and the others "blocks_<type>".
func blocksResource(typ types.BlockType) string {
	if typ == types.BlockTypeBlock {
		return ResourceBlocks
	}
	return ResourceBlocks + "_" + string(typ)
}

func (p *Poller) fetchStats(ctx context.Context) (*types.HomepageStats, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	start := p.now()
	stats, err := p.src.Stats(ctx)
	p.metrics.ObservePoll(ResourceStats, err, p.now().Sub(start).Seconds())
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// next keeps the previous data on failure so the display never goes blank.
func next[T any](prev types.Query[T], data *T, err error, at time.Time) types.Query[T] {
	if err != nil {
		prev.IsError = true
		prev.Err = err
		return prev
	}
	return types.Query[T]{Data: data, UpdatedAt: at}
}
