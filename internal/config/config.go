package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	ContractAddress   string
	PrivateKey        string
	EncryptionSeed    string
	PinataJWT         string
	PinataGateway     string
	RedisAddr         string
	PGDSN             string
	RewardBudget      int64
	LookbackBlocks    uint64
	ChunkSize         uint64
	ReconcileInterval time.Duration
	Concurrency       int
	NodeTimeout       time.Duration
	LogLevel          string
}

// RewardBudgetWei returns the reward budget as a big integer for the ledger
// client.
func (c Config) RewardBudgetWei() *big.Int {
	return big.NewInt(c.RewardBudget)
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DATANCHOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("reward-budget", int64(100))
	v.SetDefault("lookback-blocks", uint64(100))
	v.SetDefault("chunk-size", uint64(50_000))
	v.SetDefault("reconcile-interval", 5*time.Minute)
	v.SetDefault("concurrency", 10)
	v.SetDefault("node-timeout", 120*time.Second)
	v.SetDefault("redis", "127.0.0.1:6379")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		ContractAddress:   v.GetString("contract"),
		PrivateKey:        v.GetString("private-key"),
		EncryptionSeed:    v.GetString("encryption-seed"),
		PinataJWT:         v.GetString("pinata-jwt"),
		PinataGateway:     v.GetString("pinata-gateway"),
		RedisAddr:         v.GetString("redis"),
		PGDSN:             v.GetString("pg-dsn"),
		RewardBudget:      v.GetInt64("reward-budget"),
		LookbackBlocks:    v.GetUint64("lookback-blocks"),
		ChunkSize:         v.GetUint64("chunk-size"),
		ReconcileInterval: v.GetDuration("reconcile-interval"),
		Concurrency:       v.GetInt("concurrency"),
		NodeTimeout:       v.GetDuration("node-timeout"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the fields every run needs.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.ContractAddress == "" {
		return fmt.Errorf("contract address is required")
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("private key is required")
	}
	if c.EncryptionSeed == "" {
		return fmt.Errorf("encryption seed is required")
	}
	if c.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("redis address is required")
	}
	return nil
}
