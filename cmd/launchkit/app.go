package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchkit/internal/auth"
	"launchkit/internal/chain"
	"launchkit/internal/config"
	"launchkit/internal/dex"
	"launchkit/internal/fees"
	"launchkit/internal/launch"
	"launchkit/internal/pricing"
	"launchkit/internal/storage"
	"launchkit/internal/storage/postgres"
)

// app holds the wired components shared by all subcommands.
type app struct {
	cfg         config.Config
	logger      *zap.Logger
	chainClient *chain.Client
	manager     *dex.Manager
	oracle      *pricing.OracleAdapter
	pipeline    *fees.Pipeline
	initializer *launch.Initializer
	pgStore     *postgres.Store
	custodian   common.Address
	chainID     uint64
}

func (a *app) close() {
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	if a.chainClient != nil {
		a.chainClient.Close()
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}

func requireAddress(value, name string) (common.Address, error) {
	if value == "" {
		return common.Address{}, fmt.Errorf("%s is required", name)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s is not a valid address: %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key is required")
	}

	factory, err := requireAddress(cfg.Factory, "factory")
	if err != nil {
		return nil, err
	}
	positionManager, err := requireAddress(cfg.PositionManager, "position-manager")
	if err != nil {
		return nil, err
	}
	swapRouter, err := requireAddress(cfg.SwapRouter, "swap-router")
	if err != nil {
		return nil, err
	}
	settlement, err := requireAddress(cfg.SettlementAsset, "settlement-asset")
	if err != nil {
		return nil, err
	}
	oracleFeed, err := requireAddress(cfg.OracleFeed, "oracle-feed")
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	custodian := crypto.PubkeyToAddress(key.PublicKey)

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		chainClient.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		chainClient.Close()
		return nil, fmt.Errorf("build transactor: %w", err)
	}

	manager, err := dex.NewManager(chainClient, opts, dex.ManagerConfig{
		Addresses: dex.Addresses{
			Factory:         factory,
			PositionManager: positionManager,
			SwapRouter:      swapRouter,
		},
		SwapFee:      cfg.FeeTier,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	oracle := pricing.NewOracleAdapter(
		pricing.NewChainRoundReader(chainClient, oracleFeed),
		cfg.OracleFreshness,
	)

	var authorize auth.Func
	if len(cfg.Admins) > 0 {
		admins := make([]common.Address, 0, len(cfg.Admins))
		for _, a := range cfg.Admins {
			addr, err := requireAddress(a, "admin")
			if err != nil {
				chainClient.Close()
				return nil, err
			}
			admins = append(admins, addr)
		}
		authorize = auth.AllowList(admins)
	} else {
		// No admin list configured: the operator key is the only identity,
		// so it holds every capability.
		authorize = auth.AllowList([]common.Address{custodian})
	}

	sinks := storage.Multi{storage.NewJsonlSink(cfg.Out)}
	var pgStore *postgres.Store
	if cfg.PGDSN != "" {
		pgStore, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			chainClient.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sinks = append(sinks, pgStore)
	}

	pipeline := fees.NewPipeline(fees.Config{
		ChainID:         chainID.Uint64(),
		SettlementAsset: settlement,
		Custodian:       custodian,
		CreatorBps:      cfg.CreatorShareBps,
		SwapDeadline:    5 * time.Minute,
	}, manager, manager, manager, authorize, sinks, logger)

	if pgStore != nil {
		registrations, err := pgStore.ListRegistrations(ctx, chainID.Uint64())
		if err != nil {
			pgStore.Close()
			chainClient.Close()
			return nil, fmt.Errorf("load registrations: %w", err)
		}
		if err := pipeline.Restore(registrations); err != nil {
			pgStore.Close()
			chainClient.Close()
			return nil, err
		}
	}

	initializer := launch.NewInitializer(launch.Config{
		ChainID:         chainID.Uint64(),
		SettlementAsset: settlement,
		Custodian:       custodian,
		MintDeadline:    5 * time.Minute,
	}, manager, oracle, pipeline, authorize, sinks, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		chainClient: chainClient,
		manager:     manager,
		oracle:      oracle,
		pipeline:    pipeline,
		initializer: initializer,
		pgStore:     pgStore,
		custodian:   custodian,
		chainID:     chainID.Uint64(),
	}, nil
}
