// config.go - Configuration management for the pool daemon.
package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
)

// PoolConfig defines one market the daemon serves. Token identifiers are
// decimal field elements; SqrtPrice is the initial Q64.96 price.
type PoolConfig struct {
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	FeeRate     uint32 `json:"fee_rate"`
	TickSpacing int    `json:"tick_spacing"`
	SqrtPrice   string `json:"sqrt_price"`
}

// Config represents the daemon configuration.
type Config struct {
	ListenAddr string `json:"listen_addr"`

	// File paths
	KeyDir string `json:"key_dir"`

	// Logging
	LogLevel string `json:"log_level"`

	// Protocol
	ProtocolFeeDenom uint32       `json:"protocol_fee_denom"`
	Pools            []PoolConfig `json:"pools"`

	// Rate limiting for mutating endpoints
	RateLimitBurst  int `json:"rate_limit_burst"`
	RateLimitRefill int `json:"rate_limit_refill"`

	// Root gossip. Disabled when gossip_addr is empty. Peers maps node IDs
	// to host:port addresses and should include this node's own entry.
	NodeID     string            `json:"node_id,omitempty"`
	GossipAddr string            `json:"gossip_addr,omitempty"`
	Peers      map[string]string `json:"peers,omitempty"`
}

// DefaultConfig returns the default configuration: one pool over tokens 1/2
// at 0.3% fee, starting at price 1.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       ":8546",
		KeyDir:           "keys",
		LogLevel:         "info",
		ProtocolFeeDenom: 0,
		Pools: []PoolConfig{{
			Token0:      "1",
			Token1:      "2",
			FeeRate:     3000,
			TickSpacing: 60,
			SqrtPrice:   "79228162514264337593543950336",
		}},
		RateLimitBurst:  20,
		RateLimitRefill: 5,
	}
}

// LoadConfig loads configuration from file, creating the default on first run.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return &config, nil
	}

	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file.
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must be set")
	}
	if len(c.Pools) == 0 {
		return fmt.Errorf("at least one pool must be configured")
	}
	for i, p := range c.Pools {
		if _, ok := new(big.Int).SetString(p.Token0, 10); !ok {
			return fmt.Errorf("pool %d: token0 is not a decimal integer", i)
		}
		if _, ok := new(big.Int).SetString(p.Token1, 10); !ok {
			return fmt.Errorf("pool %d: token1 is not a decimal integer", i)
		}
		if _, ok := new(big.Int).SetString(p.SqrtPrice, 10); !ok {
			return fmt.Errorf("pool %d: sqrt_price is not a decimal integer", i)
		}
		if p.TickSpacing <= 0 {
			return fmt.Errorf("pool %d: tick_spacing must be positive", i)
		}
	}
	if c.RateLimitBurst <= 0 || c.RateLimitRefill <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	if c.GossipAddr != "" {
		if c.NodeID == "" {
			return fmt.Errorf("node_id must be set when gossip is enabled")
		}
		if _, ok := c.Peers[c.NodeID]; !ok {
			return fmt.Errorf("peers must contain an entry for node_id %q", c.NodeID)
		}
	}
	return nil
}
