// Package blocks resolves explorer block records into block-list row display
// models.
package blocks

import (
	"time"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/route"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

const (
	ReorgAnnotation    = "Chain reorganizations"
	UtilizationTooltip = "Gas Used %"
)

// Row is the fully resolved display model of one block-list row. Optional
// cells are nil when they must not be rendered at all.
type Row struct {
	Block     BlockCell      `json:"block"`
	Timestamp time.Time      `json:"timestamp"`
	Age       string         `json:"age,omitempty"`
	Size      string         `json:"size"`
	Miner     *types.Address `json:"miner,omitempty"`
	TxCount   TxCount        `json:"tx_count"`
	Gas       *Gas           `json:"gas,omitempty"`
	Hash      string         `json:"hash"`
	BaseFee   *BaseFee       `json:"base_fee,omitempty"`
	IsLoading bool           `json:"is_loading,omitempty"`
}

// BlockCell is the first column: the height, plus the hash for non-canonical blocks.
type BlockCell struct {
	Height     uint64     `json:"height"`
	Hash       string     `json:"hash,omitempty"`
	Link       route.Link `json:"link"`
	Annotation string     `json:"annotation,omitempty"`
}

// TxCount carries the literal count and, when there is anything to show, a
// link to the block's transactions tab.
type TxCount struct {
	Value uint64      `json:"value"`
	Link  *route.Link `json:"link,omitempty"`
}

type Gas struct {
	Used        string      `json:"used"`
	Utilization Utilization `json:"utilization"`
	TargetRatio string      `json:"target_ratio,omitempty"`
}

// Utilization is gas_used / gas_limit. When the ratio is undefined (zero or
// missing gas limit) Numeric is false, Ratio is nil and Percent is empty.
type Utilization struct {
	Ratio   *float64 `json:"ratio"`
	Numeric bool     `json:"numeric"`
	Percent string   `json:"percent,omitempty"`
	Tooltip string   `json:"tooltip,omitempty"`
}

// BaseFee is the same wei amount shown in ether and in gwei.
type BaseFee struct {
	Ether     string `json:"ether"`
	EtherUnit string `json:"ether_unit"`
	Gwei      string `json:"gwei"`
	GweiUnit  string `json:"gwei_unit"`
}

// List is the block list as handed to the rendering layer.
type List struct {
	IsLoading bool  `json:"is_loading"`
	IsError   bool  `json:"is_error"`
	Rows      []Row `json:"rows"`
}
