package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"launchkit/internal/model"
)

// Store provides Postgres persistence for audit records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutLaunch inserts or updates a launch record.
func (s *Store) PutLaunch(ctx context.Context, record model.LaunchRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO launches (
			chain_id, pool_address, issued_asset, settlement_asset, fee,
			sqrt_price_x96, tick_lower, tick_upper, position_id, liquidity,
			amount0, amount1, recipient, launched_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now())
		ON CONFLICT (chain_id, pool_address) DO UPDATE SET
			position_id = EXCLUDED.position_id,
			liquidity = EXCLUDED.liquidity,
			amount0 = EXCLUDED.amount0,
			amount1 = EXCLUDED.amount1,
			launched_at = EXCLUDED.launched_at
	`,
		int64(record.ChainID),
		record.Pool,
		record.IssuedAsset,
		record.SettlementAsset,
		record.Fee,
		record.SqrtPriceX96,
		record.TickLower,
		record.TickUpper,
		record.PositionID,
		record.Liquidity,
		record.Amount0,
		record.Amount1,
		record.Recipient,
		record.LaunchedAt,
	)
	return err
}

// PutRegistration inserts a creator registration. Registration is one-time
// per position; a conflicting insert fails.
func (s *Store) PutRegistration(ctx context.Context, record model.CreatorRegistration) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO creator_registrations (chain_id, position_id, creator, registered_at, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (chain_id, position_id) DO NOTHING
	`,
		int64(record.ChainID),
		record.PositionID,
		record.Creator,
		record.RegisteredAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("position %s: %w", record.PositionID, model.ErrAlreadyRegistered)
	}
	return nil
}

// ListRegistrations returns all creator registrations for a chain.
func (s *Store) ListRegistrations(ctx context.Context, chainID uint64) ([]model.CreatorRegistration, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT position_id, creator, registered_at
		FROM creator_registrations
		WHERE chain_id = $1
	`, int64(chainID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.CreatorRegistration
	for rows.Next() {
		r := model.CreatorRegistration{ChainID: chainID}
		if err := rows.Scan(&r.PositionID, &r.Creator, &r.RegisteredAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// PutPendingSettlement records amounts collected on chain that still await
// conversion and payout.
func (s *Store) PutPendingSettlement(ctx context.Context, record model.PendingSettlement) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pending_settlements (
			chain_id, position_id, creator, collected0, collected1, collected_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,now())
	`,
		int64(record.ChainID),
		record.PositionID,
		record.Creator,
		record.Collected0,
		record.Collected1,
		record.CollectedAt,
	)
	return err
}

// PutFeeCollection appends a fee collection record.
func (s *Store) PutFeeCollection(ctx context.Context, record model.FeeCollectionRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fee_collections (
			chain_id, position_id, creator, collected0, collected1,
			swap_proceeds, creator_share, protocol_share, collected_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
	`,
		int64(record.ChainID),
		record.PositionID,
		record.Creator,
		record.Collected0,
		record.Collected1,
		record.SwapProceeds,
		record.CreatorShare,
		record.ProtocolShare,
		record.CollectedAt,
	)
	return err
}
