package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchkit/internal/launch"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runLaunch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	token, err := requireAddress(mustFlag(cmd, "token"), "token")
	if err != nil {
		return err
	}
	creator, err := requireAddress(mustFlag(cmd, "creator"), "creator")
	if err != nil {
		return err
	}
	supply, err := parseBigInt(mustFlag(cmd, "supply"), "supply")
	if err != nil {
		return err
	}

	marketCap, _ := cmd.Flags().GetInt64("market-cap-usd")
	if marketCap == 0 {
		marketCap = a.cfg.MarketCapUSD
	}

	// The operator account holds the freshly minted supply; the position
	// manager pulls from it during mint.
	positionManager, err := requireAddress(a.cfg.PositionManager, "position-manager")
	if err != nil {
		return err
	}
	if err := a.manager.Approve(ctx, token, positionManager, supply); err != nil {
		return fmt.Errorf("approve position manager: %w", err)
	}

	result, err := a.initializer.Launch(ctx, a.custodian, launch.Params{
		IssuedAsset:        token,
		CirculatingSupply:  supply,
		TargetMarketCapUSD: big.NewInt(marketCap),
		Creator:            creator,
		Fee:                a.cfg.FeeTier,
		MinTick:            a.cfg.MinTick,
		MaxTick:            a.cfg.MaxTick,
	})
	if err != nil {
		return err
	}

	a.logger.Info("launch result",
		zap.String("pool", result.Pool.Hex()),
		zap.String("position_id", result.PositionID.String()),
		zap.String("sqrt_price_x96", result.SqrtPriceX96.String()),
		zap.Int32("tick_lower", result.Range.Lower),
		zap.Int32("tick_upper", result.Range.Upper),
	)
	return nil
}

func runCollectFees(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	positionID, err := parseBigInt(mustFlag(cmd, "position"), "position")
	if err != nil {
		return err
	}

	record, err := a.pipeline.CollectFees(ctx, positionID)
	if err != nil {
		return err
	}

	a.logger.Info("collection result",
		zap.String("position_id", record.PositionID),
		zap.String("creator_share", record.CreatorShare),
		zap.String("protocol_share", record.ProtocolShare),
	)
	return nil
}

func runRegisterCreator(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	positionID, err := parseBigInt(mustFlag(cmd, "position"), "position")
	if err != nil {
		return err
	}
	creator, err := requireAddress(mustFlag(cmd, "creator"), "creator")
	if err != nil {
		return err
	}

	return a.pipeline.RegisterCreator(ctx, positionID, creator)
}

func runWithdrawProtocol(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	to, err := requireAddress(mustFlag(cmd, "to"), "to")
	if err != nil {
		return err
	}

	amount, err := a.pipeline.WithdrawProtocol(ctx, a.custodian, to)
	if err != nil {
		return err
	}

	a.logger.Info("withdrawal result", zap.String("amount", amount.String()))
	return nil
}

func runRate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	rate, err := a.oracle.Rate(ctx)
	if err != nil {
		return err
	}

	block, err := a.chainClient.LatestBlockNumber(ctx)
	if err != nil {
		return err
	}

	a.logger.Info("oracle rate",
		zap.String("rate", rate.String()),
		zap.Uint64("block", block),
	)
	return nil
}

func mustFlag(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}
