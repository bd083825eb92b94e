package worker

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// PoolConfig overrides the default per-tier pool sizes of spec.md §4.11's
// table. Operators tune concurrency per deployment without a rebuild by
// editing the TOML file this loads from.
type PoolConfig struct {
	Tiers map[string]TierPoolConfig `toml:"tiers"`
}

// TierPoolConfig holds the extraction/transform worker counts for one tier.
type TierPoolConfig struct {
	Extraction int `toml:"extraction_workers"`
	Transform  int `toml:"transform_workers"`
}

// LoadPoolConfig reads a pools.toml file. A missing path is not an error:
// it returns an empty PoolConfig so callers fall back to domain.Tier's
// built-in defaults.
func LoadPoolConfig(path string) (*PoolConfig, error) {
	cfg := &PoolConfig{Tiers: map[string]TierPoolConfig{}}
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ExtractionSize returns the configured extraction pool size for tier,
// falling back to the tier's built-in default when unset or non-positive.
func (c *PoolConfig) ExtractionSize(tier domain.Tier) int {
	if c == nil {
		return tier.PoolSize()
	}
	if t, ok := c.Tiers[string(tier)]; ok && t.Extraction > 0 {
		return t.Extraction
	}
	return tier.PoolSize()
}

// TransformSize returns the configured transform pool size for tier,
// falling back to the tier's built-in default when unset or non-positive.
func (c *PoolConfig) TransformSize(tier domain.Tier) int {
	if c == nil {
		return tier.PoolSize()
	}
	if t, ok := c.Tiers[string(tier)]; ok && t.Transform > 0 {
		return t.Transform
	}
	return tier.PoolSize()
}
