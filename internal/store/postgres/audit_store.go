package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

var _ domain.AuditStore = (*AuditStore)(nil)

// AuditStore records ticks and configuration commands in audit_log.
type AuditStore struct {
	pool *pgxpool.Pool
}

func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Log appends an entry. pgx encodes detail as JSONB.
func (s *AuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (event, detail) VALUES ($1, $2)`, event, detail,
	); err != nil {
		return fmt.Errorf("postgres: audit %s: %w", event, err)
	}
	return nil
}

// List returns entries newest first, bounded by opts.
func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	var (
		sb   strings.Builder
		args []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT id, event, COALESCE(detail, '{}'::jsonb), created_at FROM audit_log WHERE true`)
	if opts.Since != nil {
		sb.WriteString(" AND created_at >= " + bind(*opts.Since))
	}
	if opts.Until != nil {
		sb.WriteString(" AND created_at <= " + bind(*opts.Until))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")
	if opts.Limit > 0 {
		sb.WriteString(" LIMIT " + bind(opts.Limit))
	}
	if opts.Offset > 0 {
		sb.WriteString(" OFFSET " + bind(opts.Offset))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.AuditEntry])
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit: %w", err)
	}
	return entries, nil
}
