package source

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/config"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/detector"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/logx"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/metrics"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/store"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

// ChainReader is the part of ethclient.Client the RPC source needs.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*gethtypes.Block, error)
}

type RPCOptions struct {
	// BatchSize caps how many new blocks one sync fetches.
	BatchSize uint64
	// ReorgDepth is how many recent heights are fetched again on every sync.
	ReorgDepth uint64
	// ElasticityMultiplier turns the gas limit into the EIP-1559 gas target.
	ElasticityMultiplier uint64
	// AvgWindow is the number of blocks averaged for the block time.
	AvgWindow int
	Timeout   time.Duration
}

func DefaultRPCOptions() RPCOptions {
	return RPCOptions{
		BatchSize:            10,
		ReorgDepth:           4,
		ElasticityMultiplier: 2,
		AvgWindow:            100,
		Timeout:              10 * time.Second,
	}
}

// RPCSource builds explorer records from a JSON-RPC node, persisting them in
// a Store so stats are computed over more than the latest poll.
type RPCSource struct {
	client   ChainReader
	store    *store.Store
	detector *detector.ReorgDetector
	names    config.ValidatorNames
	metrics  *metrics.Metrics
	opts     RPCOptions

	mu     sync.Mutex
	latest uint64
}

// DialRPC connects to rpcURL and wraps the client in an RPCSource.
func DialRPC(rpcURL string, st *store.Store, names config.ValidatorNames, m *metrics.Metrics, opts RPCOptions) (*RPCSource, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	return NewRPCSource(client, st, names, m, opts), nil
}

func NewRPCSource(client ChainReader, st *store.Store, names config.ValidatorNames, m *metrics.Metrics, opts RPCOptions) *RPCSource {
	def := DefaultRPCOptions()
	if opts.BatchSize == 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.ElasticityMultiplier == 0 {
		opts.ElasticityMultiplier = def.ElasticityMultiplier
	}
	if opts.AvgWindow < 2 {
		opts.AvgWindow = def.AvgWindow
	}
	if opts.Timeout == 0 {
		opts.Timeout = def.Timeout
	}

	return &RPCSource{
		client:   client,
		store:    st,
		detector: detector.NewReorgDetector(opts.ReorgDepth * 16),
		names:    names,
		metrics:  m,
		opts:     opts,
	}
}

// Sync fetches new blocks and re-checks the last ReorgDepth heights. Blocks
// and Stats only read what Sync stored.
func (s *RPCSource) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	latestBlock, err := s.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest block: %w", err)
	}

	lastProcessed, err := s.store.GetLastProcessedBlock()
	if err != nil {
		return fmt.Errorf("failed to get last processed block: %w", err)
	}

	var start, end uint64
	if lastProcessed == 0 || lastProcessed > latestBlock {
		// Fresh store, or a node behind what we stored: take the newest batch.
		end = latestBlock
		if latestBlock >= s.opts.BatchSize {
			start = latestBlock - s.opts.BatchSize + 1
		}
	} else {
		start = lastProcessed + 1
		if s.opts.ReorgDepth > 0 {
			start = 0
			if lastProcessed >= s.opts.ReorgDepth {
				start = lastProcessed - s.opts.ReorgDepth + 1
			}
		}
		end = lastProcessed + s.opts.BatchSize
		if end > latestBlock {
			end = latestBlock
		}
	}

	logx.Debug("🔍 Syncing blocks %d to %d (Latest: %d)", start, end, latestBlock)

	for number := start; number <= end; number++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.processBlock(ctx, number); err != nil {
			return err
		}
	}

	s.latest = latestBlock
	return nil
}

func (s *RPCSource) processBlock(ctx context.Context, number uint64) error {
	blk, err := s.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return fmt.Errorf("failed to get block %d: %w", number, err)
	}
	if blk == nil {
		return fmt.Errorf("received nil block %d", number)
	}

	b := FromGethBlock(blk, s.opts.ElasticityMultiplier)
	b.Miner.Name = s.names.Lookup(b.Miner.Hash)

	if _, seen := s.detector.Canonical(b.Height); !seen {
		stored, ok, err := s.store.CanonicalHash(b.Height)
		if err != nil {
			return err
		}
		if ok {
			s.detector.Observe(b.Height, stored)
		}
	}

	if replaced, reorged := s.detector.Observe(b.Height, b.Hash); reorged {
		if err := s.store.MarkReorg(replaced); err != nil {
			return err
		}
		if s.metrics != nil {
			s.metrics.Reorgs.Inc()
		}
	}

	if err := s.store.StoreBlock(b); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.BlocksStored.Inc()
	}
	return nil
}

// Blocks reads the store as left by the last Sync. Uncles are never fetched
// from the node, so that list stays empty.
func (s *RPCSource) Blocks(ctx context.Context, typ types.BlockType, limit int) ([]types.Block, error) {
	if typ == "" {
		typ = types.BlockTypeBlock
	}
	blocks, err := s.store.RecentBlocks(typ, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent %s blocks: %w", typ, err)
	}
	return blocks, nil
}

// Stats reads the store and the head height as left by the last Sync.
func (s *RPCSource) Stats(ctx context.Context) (types.HomepageStats, error) {
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()

	stats := types.HomepageStats{TotalBlocks: latest + 1}

	avg, err := s.store.AverageBlockTime(s.opts.AvgWindow)
	if err != nil {
		return types.HomepageStats{}, fmt.Errorf("failed to compute average block time: %w", err)
	}
	stats.AverageBlockTime = avg

	head, err := s.store.RecentBlocks(types.BlockTypeBlock, 1)
	if err != nil {
		return types.HomepageStats{}, fmt.Errorf("failed to read head block: %w", err)
	}
	if len(head) > 0 {
		stats.BaseFeePerGas = head[0].BaseFeePerGas
	}
	return stats, nil
}

// FromGethBlock converts a node block into the explorer record.
func FromGethBlock(blk *gethtypes.Block, elasticity uint64) types.Block {
	b := types.Block{
		Height:    blk.NumberU64(),
		Hash:      blk.Hash().Hex(),
		Type:      types.BlockTypeBlock,
		Timestamp: time.Unix(int64(blk.Time()), 0).UTC(),
		Size:      blk.Size(),
		Miner:     types.Address{Hash: config.NormalizeAddress(blk.Coinbase().Hex())},
		TxCount:   uint64(len(blk.Transactions())),
		GasUsed:   new(big.Int).SetUint64(blk.GasUsed()),
		GasLimit:  new(big.Int).SetUint64(blk.GasLimit()),
	}
	if fee := blk.BaseFee(); fee != nil {
		b.BaseFeePerGas = new(big.Int).Set(fee)
		b.GasTargetPercentage = GasTargetPercentage(blk.GasUsed(), blk.GasLimit(), elasticity)
	}
	return b
}

// GasTargetPercentage is how far gas used is above (positive) or below
// (negative) the EIP-1559 target, in percent rounded to two decimals.
func GasTargetPercentage(gasUsed, gasLimit, elasticity uint64) *float64 {
	if elasticity == 0 {
		return nil
	}
	target := gasLimit / elasticity
	if target == 0 {
		return nil
	}

	used := decimal.NewFromBigInt(new(big.Int).SetUint64(gasUsed), 0)
	t := decimal.NewFromBigInt(new(big.Int).SetUint64(target), 0)
	pct, _ := used.Sub(t).Div(t).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return &pct
}
