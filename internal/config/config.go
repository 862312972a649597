package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/logx"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/units"
)

// DisplayConfig is the read-only runtime configuration consumed by the
// formatters.
type DisplayConfig struct {
	Locale           string              `yaml:"locale"`
	Features         Features            `yaml:"features"`
	Views            Views               `yaml:"views"`
	Homepage         Homepage            `yaml:"homepage"`
	CurrencyUnits    units.CurrencyUnits `yaml:"currency_units"`
	LockedAssetLabel string              `yaml:"locked_asset_label"`
}

type Features struct {
	OptimisticRollup bool `yaml:"optimistic_rollup"`
	ZkEvmRollup      bool `yaml:"zkevm_rollup"`
}

type Views struct {
	Block BlockView `yaml:"block"`
}

type BlockView struct {
	HiddenFields HiddenFields `yaml:"hidden_fields"`
}

type HiddenFields struct {
	Miner       bool `yaml:"miner"`
	TotalReward bool `yaml:"total_reward"`
}

type Homepage struct {
	ShowAvgBlockTime bool `yaml:"show_avg_block_time"`
}

// IsRollup reports whether the chain is an optimistic or zkEVM rollup.
func (c DisplayConfig) IsRollup() bool {
	return c.Features.OptimisticRollup || c.Features.ZkEvmRollup
}

func Default() DisplayConfig {
	return DisplayConfig{
		Locale:           "en",
		Homepage:         Homepage{ShowAvgBlockTime: true},
		CurrencyUnits:    units.DefaultCurrencyUnits(),
		LockedAssetLabel: "RBTC",
	}
}

// Load reads a YAML display config. Keys missing from the file keep their
// Default values.
func Load(path string) (DisplayConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read display config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse display config YAML: %w", err)
	}

	if cfg.CurrencyUnits.Ether == "" {
		cfg.CurrencyUnits.Ether = units.DefaultCurrencyUnits().Ether
	}
	if cfg.CurrencyUnits.Gwei == "" {
		cfg.CurrencyUnits.Gwei = units.DefaultCurrencyUnits().Gwei
	}

	logx.Info("📋 Loaded display config: locale=%s rollup=%v hidden_miner=%v hidden_total_reward=%v avg_block_time=%v",
		cfg.Locale, cfg.IsRollup(), cfg.Views.Block.HiddenFields.Miner,
		cfg.Views.Block.HiddenFields.TotalReward, cfg.Homepage.ShowAvgBlockTime)
	return cfg, nil
}

// ValidatorNames maps normalized miner addresses to public name tags.
type ValidatorNames map[string]string

func NormalizeAddress(address string) string {
	addr := strings.ToLower(address)
	if !strings.HasPrefix(addr, "0x") {
		addr = "0x" + addr
	}
	return addr
}

func LoadValidatorNames(path string) (ValidatorNames, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read validator file: %w", err)
	}

	var validatorMap map[string]string
	if err := yaml.Unmarshal(data, &validatorMap); err != nil {
		return nil, fmt.Errorf("failed to parse validator YAML: %w", err)
	}

	names := make(ValidatorNames, len(validatorMap))
	for addr, name := range validatorMap {
		normalizedAddr := NormalizeAddress(addr)
		if !common.IsHexAddress(normalizedAddr) {
			logx.Warn("⚠️ Skipping invalid validator address: %s", addr)
			continue
		}
		names[normalizedAddr] = name
		logx.Debug("📝 Loaded validator: %s -> %s", normalizedAddr, name)
	}

	return names, nil
}

// Lookup returns the name tag for address, or "" when none is known.
func (v ValidatorNames) Lookup(address string) string {
	if v == nil {
		return ""
	}
	return v[NormalizeAddress(address)]
}

func (v ValidatorNames) Dump() {
	logx.Debug("🔍 Dumping validator map contents:")
	for addr, name := range v {
		logx.Debug("Address: %s -> Name: %s", addr, name)
	}
}
