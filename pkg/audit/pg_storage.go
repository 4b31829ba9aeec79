package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStorage persists audit records in Postgres using batched inserts.
type PGStorage struct {
	pool *pgxpool.Pool
}

func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	if pool == nil {
		panic("audit: pool cannot be nil")
	}
	return &PGStorage{pool: pool}
}

const insertAuthEventQuery = `
	INSERT INTO auth_events (id, tenant_id, user_id, kind, success, error_code, ip, user_agent, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// StoreAuthEvents implements Storage.
func (s *PGStorage) StoreAuthEvents(ctx context.Context, events []AuthEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(insertAuthEventQuery,
			e.ID, e.TenantID, e.UserID, string(e.Kind), e.Success,
			nullable(e.ErrorCode), nullable(e.IP), nullable(e.UserAgent),
			e.Metadata, e.CreatedAt)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("audit: store auth events: %w", err)
	}
	return nil
}

const insertTenantAccessQuery = `
	INSERT INTO tenant_accesses (id, user_id, token_tenant_id, request_tenant_id, kind, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// StoreTenantAccesses implements Storage.
func (s *PGStorage) StoreTenantAccesses(ctx context.Context, accesses []TenantAccess) error {
	if len(accesses) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range accesses {
		batch.Queue(insertTenantAccessQuery,
			a.ID, a.UserID, a.TokenTenantID, a.RequestTenantID, a.Kind, a.CreatedAt)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("audit: store tenant accesses: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
