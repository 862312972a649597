package poller

import (
	"math/big"
	"time"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

// Placeholder data shown, flagged as loading, until the first fetch lands.

func placeholderStats() *types.HomepageStats {
	avg := 12000.0
	return &types.HomepageStats{
		TotalBlocks:      8302787,
		AverageBlockTime: &avg,
		BaseFeePerGas:    big.NewInt(7000000000),
	}
}

func placeholderBlocks(n int, typ types.BlockType) *[]types.Block {
	pct := 0.0
	blocks := make([]types.Block, 0, n)
	for i := 0; i < n; i++ {
		blocks = append(blocks, types.Block{
			Height:              8988736 - uint64(i),
			Hash:                "0x2fd8ddad5e9ec0fbfa79de44bf3f3aa7cbd25d7df8c71e457d1a10cdd7c88c8f",
			Type:                types.BlockTypeBlock,
			Timestamp:           time.Date(2022, 11, 11, 11, 11, 11, 0, time.UTC),
			Size:                46406,
			Miner:               types.Address{Hash: "0xdaf2f3c8ff8a6bb85dd8e9a28c6d1a76b2b92d92"},
			TxCount:             142,
			GasUsed:             big.NewInt(12000000),
			GasLimit:            big.NewInt(30000000),
			GasTargetPercentage: &pct,
			BaseFeePerGas:       big.NewInt(7000000000),
		})
	}
	return &blocks
}
