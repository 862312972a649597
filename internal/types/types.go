package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
)

// BlockType is the consensus status of a block as reported by the explorer backend.
type BlockType string

const (
	BlockTypeBlock BlockType = "block"
	BlockTypeReorg BlockType = "reorg"
	BlockTypeUncle BlockType = "uncle"
)

// BlockTypes lists every list tab the explorer serves.
var BlockTypes = []BlockType{BlockTypeBlock, BlockTypeReorg, BlockTypeUncle}

// ParseBlockType accepts "block", "reorg" or "uncle". An empty string means block.
func ParseBlockType(s string) (BlockType, error) {
	if s == "" {
		return BlockTypeBlock, nil
	}
	for _, t := range BlockTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown block type %q", s)
}

// Address is an account reference with an optional public name tag.
type Address struct {
	Hash string `json:"hash"`
	Name string `json:"name,omitempty"`
}

// Block is one entry of the explorer block list. GasTargetPercentage is
// signed: negative when the block used less than the gas target.
type Block struct {
	Height              uint64
	Hash                string
	Type                BlockType
	Timestamp           time.Time
	Size                uint64
	Miner               Address
	TxCount             uint64
	GasUsed             *big.Int
	GasLimit            *big.Int
	GasTargetPercentage *float64
	BaseFeePerGas       *big.Int
}

type blockJSON struct {
	Height              uint64                `json:"height"`
	Hash                string                `json:"hash"`
	Type                BlockType             `json:"type"`
	Timestamp           time.Time             `json:"timestamp"`
	Size                uint64                `json:"size"`
	Miner               *Address              `json:"miner"`
	TxCount             uint64                `json:"tx_count"`
	GasUsed             *math.HexOrDecimal256 `json:"gas_used"`
	GasLimit            *math.HexOrDecimal256 `json:"gas_limit"`
	GasTargetPercentage *float64              `json:"gas_target_percentage"`
	BaseFeePerGas       *math.HexOrDecimal256 `json:"base_fee_per_gas"`
}

// UnmarshalJSON decodes the explorer API block shape, where big quantities
// arrive as decimal strings.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw blockJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode block: %w", err)
	}

	*b = Block{
		Height:              raw.Height,
		Hash:                raw.Hash,
		Type:                raw.Type,
		Timestamp:           raw.Timestamp,
		Size:                raw.Size,
		TxCount:             raw.TxCount,
		GasUsed:             toBig(raw.GasUsed),
		GasLimit:            toBig(raw.GasLimit),
		GasTargetPercentage: raw.GasTargetPercentage,
		BaseFeePerGas:       toBig(raw.BaseFeePerGas),
	}
	if raw.Miner != nil {
		b.Miner = *raw.Miner
	}
	if b.Type == "" {
		b.Type = BlockTypeBlock
	}
	return nil
}

// GasPrices holds the gas oracle estimates in gwei.
type GasPrices struct {
	Slow    *float64 `json:"slow"`
	Average *float64 `json:"average"`
	Fast    *float64 `json:"fast"`
}

// HomepageStats are the aggregate chain statistics. AverageBlockTime is in
// milliseconds.
type HomepageStats struct {
	TotalBlocks        uint64
	AverageBlockTime   *float64
	BaseFeePerGas      *big.Int
	RootstockLockedBTC *big.Int
	GasPrices          *GasPrices
}

type homepageStatsJSON struct {
	TotalBlocks        *math.HexOrDecimal256 `json:"total_blocks"`
	AverageBlockTime   *float64              `json:"average_block_time"`
	BaseFeePerGas      *math.HexOrDecimal256 `json:"base_fee_per_gas"`
	RootstockLockedBTC *math.HexOrDecimal256 `json:"rootstock_locked_btc"`
	GasPrices          *GasPrices            `json:"gas_prices"`
}

func (s *HomepageStats) UnmarshalJSON(data []byte) error {
	var raw homepageStatsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode homepage stats: %w", err)
	}

	*s = HomepageStats{
		AverageBlockTime:   raw.AverageBlockTime,
		BaseFeePerGas:      toBig(raw.BaseFeePerGas),
		RootstockLockedBTC: toBig(raw.RootstockLockedBTC),
		GasPrices:          raw.GasPrices,
	}
	if total := toBig(raw.TotalBlocks); total != nil {
		if !total.IsUint64() {
			return fmt.Errorf("total_blocks out of range: %s", total)
		}
		s.TotalBlocks = total.Uint64()
	}
	return nil
}

// Query is a snapshot of an asynchronous fetch: the data last received (or a
// placeholder), and whether the latest request failed.
type Query[T any] struct {
	Data          *T
	IsPlaceholder bool
	IsError       bool
	Err           error
	UpdatedAt     time.Time
}

// DBConfig selects the SQL driver backing the block store.
type DBConfig struct {
	Driver string
	DSN    string
}

func toBig(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return nil
	}
	return (*big.Int)(v)
}
