// Package source fetches block lists and homepage statistics for the
// formatters.
package source

import (
	"context"
	"errors"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

var ErrBadStatus = errors.New("unexpected response status")

// Source is the fetch layer behind the poller.
type Source interface {
	// Blocks returns up to limit blocks of type typ, newest first.
	Blocks(ctx context.Context, typ types.BlockType, limit int) ([]types.Block, error)
	Stats(ctx context.Context) (types.HomepageStats, error)
}

// Syncer is implemented by sources that must pull from upstream before
// Blocks and Stats can answer. The poller calls Sync once per refresh.
type Syncer interface {
	Sync(ctx context.Context) error
}
