package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/config"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

const blocksBody = `{
  "items": [
    {
      "height": 19000001,
      "hash": "0xbb",
      "type": "block",
      "timestamp": "2024-01-13T10:00:12.000000Z",
      "size": 54321,
      "miner": {"hash": "0x1111111111111111111111111111111111111111", "name": null},
      "tx_count": 0,
      "gas_used": "0",
      "gas_limit": "30000000",
      "gas_target_percentage": null,
      "base_fee_per_gas": null
    },
    {
      "height": 19000000,
      "hash": "0xaa",
      "type": "reorg",
      "timestamp": "2024-01-13T10:00:00.000000Z",
      "size": 123456,
      "miner": {"hash": "0x95222290dd7278aa3ddd389cc1e1d165cc4bafe5", "name": "beaverbuild"},
      "tx_count": 150,
      "gas_used": "15000000",
      "gas_limit": "30000000",
      "gas_target_percentage": -0.5,
      "base_fee_per_gas": "1000000000000000000000000000001"
    }
  ],
  "next_page_params": {"block_number": 18999999, "items_count": 50}
}`

const statsBody = `{
  "total_blocks": "19000002",
  "average_block_time": 12345.0,
  "base_fee_per_gas": "7000000000",
  "rootstock_locked_btc": "123456789000000000000",
  "gas_prices": {"slow": 10.5, "average": 12, "fast": null}
}`

func newAPIServer(t *testing.T, handler http.HandlerFunc) *APISource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	names := config.ValidatorNames{"0x1111111111111111111111111111111111111111": "Alpha"}
	return NewAPISource(srv.URL+"/", 5*time.Second, names)
}

func TestAPISourceBlocks(t *testing.T) {
	src := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/blocks", r.URL.Path)
		assert.Equal(t, "block", r.URL.Query().Get("type"))
		w.Write([]byte(blocksBody))
	})

	blocks, err := src.Blocks(context.Background(), types.BlockTypeBlock, 10)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	first := blocks[0]
	assert.Equal(t, uint64(19000001), first.Height)
	assert.Equal(t, "Alpha", first.Miner.Name)
	assert.Nil(t, first.BaseFeePerGas)
	assert.Nil(t, first.GasTargetPercentage)
	assert.Equal(t, "0", first.GasUsed.String())

	second := blocks[1]
	assert.Equal(t, types.BlockTypeReorg, second.Type)
	assert.Equal(t, "beaverbuild", second.Miner.Name)
	assert.Equal(t, uint64(150), second.TxCount)
	assert.Equal(t, "1000000000000000000000000000001", second.BaseFeePerGas.String())
	require.NotNil(t, second.GasTargetPercentage)
	assert.Equal(t, -0.5, *second.GasTargetPercentage)
	assert.Equal(t, time.Date(2024, 1, 13, 10, 0, 0, 0, time.UTC), second.Timestamp.UTC())

	limited, err := src.Blocks(context.Background(), types.BlockTypeBlock, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAPISourceBlocksByType(t *testing.T) {
	var asked []string
	src := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		asked = append(asked, r.URL.Query().Get("type"))
		w.Write([]byte(`{"items": []}`))
	})

	for _, typ := range []types.BlockType{types.BlockTypeReorg, types.BlockTypeUncle, ""} {
		_, err := src.Blocks(context.Background(), typ, 10)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"reorg", "uncle", "block"}, asked)
}

func TestAPISourceStats(t *testing.T) {
	src := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/stats", r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("updated-gas-oracle"))
		w.Write([]byte(statsBody))
	})

	stats, err := src.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(19000002), stats.TotalBlocks)
	require.NotNil(t, stats.AverageBlockTime)
	assert.Equal(t, 12345.0, *stats.AverageBlockTime)
	assert.Equal(t, "7000000000", stats.BaseFeePerGas.String())
	assert.Equal(t, "123456789000000000000", stats.RootstockLockedBTC.String())
	require.NotNil(t, stats.GasPrices)
	assert.Nil(t, stats.GasPrices.Fast)
}

func TestAPISourceStatsWithoutOptionalFields(t *testing.T) {
	src := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_blocks": "5", "average_block_time": null, "rootstock_locked_btc": null}`))
	})

	stats, err := src.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), stats.TotalBlocks)
	assert.Nil(t, stats.AverageBlockTime)
	assert.Nil(t, stats.BaseFeePerGas)
	assert.Nil(t, stats.RootstockLockedBTC)
}

func TestAPISourceBadStatus(t *testing.T) {
	src := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := src.Stats(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadStatus))
	assert.Contains(t, err.Error(), "502")
}

func TestAPISourceBadJSON(t *testing.T) {
	src := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [{"height": "not a number"}]}`))
	})

	_, err := src.Blocks(context.Background(), types.BlockTypeBlock, 10)
	assert.ErrorContains(t, err, "failed to decode")
}
