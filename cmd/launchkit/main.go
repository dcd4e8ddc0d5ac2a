package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "launchkit",
		Short:        "Token launch and fee settlement toolkit",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "chain RPC URL")
	root.PersistentFlags().String("private-key", "", "operator private key (hex)")
	root.PersistentFlags().String("factory", "", "pool factory address")
	root.PersistentFlags().String("position-manager", "", "position manager address")
	root.PersistentFlags().String("swap-router", "", "swap router address")
	root.PersistentFlags().String("settlement-asset", "", "settlement asset address (e.g. WETH)")
	root.PersistentFlags().String("oracle-feed", "", "USD reference feed address")
	root.PersistentFlags().Duration("oracle-freshness", 0, "maximum oracle observation age")
	root.PersistentFlags().Uint32("fee-tier", 10000, "pool fee tier")
	root.PersistentFlags().Uint32("creator-share-bps", 8000, "creator share of fees in bps")
	root.PersistentFlags().StringSlice("admin", nil, "admin addresses (comma-separated)")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN for audit records")
	root.PersistentFlags().String("out", "./data/audit.jsonl", "audit JSONL path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	launchCmd := &cobra.Command{
		Use:   "launch",
		Short: "Create, price, and seed a pool for a new asset",
		RunE:  runLaunch,
	}
	launchCmd.Flags().String("token", "", "issued asset address")
	launchCmd.Flags().String("supply", "", "circulating supply in raw token units")
	launchCmd.Flags().Int64("market-cap-usd", 0, "target market cap in whole USD")
	launchCmd.Flags().String("creator", "", "asset creator address")
	root.AddCommand(launchCmd)

	collectCmd := &cobra.Command{
		Use:   "collect-fees",
		Short: "Collect, convert, split, and pay out accrued fees",
		RunE:  runCollectFees,
	}
	collectCmd.Flags().String("position", "", "position id")
	root.AddCommand(collectCmd)

	registerCmd := &cobra.Command{
		Use:   "register-creator",
		Short: "Attribute a position to its creator",
		RunE:  runRegisterCreator,
	}
	registerCmd.Flags().String("position", "", "position id")
	registerCmd.Flags().String("creator", "", "asset creator address")
	root.AddCommand(registerCmd)

	withdrawCmd := &cobra.Command{
		Use:   "withdraw-protocol",
		Short: "Withdraw the retained protocol fee share",
		RunE:  runWithdrawProtocol,
	}
	withdrawCmd.Flags().String("to", "", "withdrawal recipient address")
	root.AddCommand(withdrawCmd)

	rateCmd := &cobra.Command{
		Use:   "rate",
		Short: "Probe the USD reference feed",
		RunE:  runRate,
	}
	root.AddCommand(rateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func parseBigInt(value, flag string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("%s is required", flag)
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("%s is not a valid integer: %q", flag, value)
	}
	return v, nil
}
