package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	PrivateKey      string
	Factory         string
	PositionManager string
	SwapRouter      string
	SettlementAsset string
	OracleFeed      string
	OracleFreshness time.Duration
	FeeTier         uint32
	CreatorShareBps uint32
	MarketCapUSD    int64
	MinTick         int32
	MaxTick         int32
	Admins          []string
	PGDSN           string
	Out             string
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LAUNCHKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("oracle-freshness", time.Hour)
	v.SetDefault("fee-tier", uint32(10000))
	v.SetDefault("creator-share-bps", uint32(8000))
	v.SetDefault("market-cap-usd", int64(10_000))
	v.SetDefault("min-tick", int32(-887272))
	v.SetDefault("max-tick", int32(887272))
	v.SetDefault("out", "./data/audit.jsonl")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
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
		RPCURL:          v.GetString("rpc"),
		PrivateKey:      v.GetString("private-key"),
		Factory:         v.GetString("factory"),
		PositionManager: v.GetString("position-manager"),
		SwapRouter:      v.GetString("swap-router"),
		SettlementAsset: v.GetString("settlement-asset"),
		OracleFeed:      v.GetString("oracle-feed"),
		OracleFreshness: v.GetDuration("oracle-freshness"),
		FeeTier:         v.GetUint32("fee-tier"),
		CreatorShareBps: v.GetUint32("creator-share-bps"),
		MarketCapUSD:    v.GetInt64("market-cap-usd"),
		MinTick:         v.GetInt32("min-tick"),
		MaxTick:         v.GetInt32("max-tick"),
		Admins:          getStringSlice(v, "admin"),
		PGDSN:           v.GetString("pg-dsn"),
		Out:             v.GetString("out"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
