package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/config"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/logx"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

// APISource reads a Blockscout-compatible REST API.
type APISource struct {
	baseURL string
	client  *http.Client
	names   config.ValidatorNames
}

func NewAPISource(baseURL string, timeout time.Duration, names config.ValidatorNames) *APISource {
	return &APISource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		names:   names,
	}
}

type blocksPage struct {
	Items []types.Block `json:"items"`
}

func (s *APISource) Blocks(ctx context.Context, typ types.BlockType, limit int) ([]types.Block, error) {
	if typ == "" {
		typ = types.BlockTypeBlock
	}

	var page blocksPage
	if err := s.get(ctx, "/api/v2/blocks", url.Values{"type": {string(typ)}}, nil, &page); err != nil {
		return nil, err
	}

	blocks := page.Items
	if limit > 0 && len(blocks) > limit {
		blocks = blocks[:limit]
	}
	for i := range blocks {
		if blocks[i].Miner.Name == "" {
			blocks[i].Miner.Name = s.names.Lookup(blocks[i].Miner.Hash)
		}
	}
	return blocks, nil
}

func (s *APISource) Stats(ctx context.Context) (types.HomepageStats, error) {
	var stats types.HomepageStats
	header := http.Header{"updated-gas-oracle": {"true"}}
	if err := s.get(ctx, "/api/v2/stats", nil, header, &stats); err != nil {
		return types.HomepageStats{}, err
	}
	return stats, nil
}

func (s *APISource) get(ctx context.Context, path string, query url.Values, header http.Header, out interface{}) error {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	logx.Debug("🔍 Calling explorer API %s", u)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ErrBadStatus, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
