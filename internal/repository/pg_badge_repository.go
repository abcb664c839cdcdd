package repository

import (
	"context"
	"errors"

	"github.com/fanlore/backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgBadgeRepository struct {
	pool *pgxpool.Pool
}

// NewPgBadgeRepository returns a PostgreSQL-backed BadgeRepository.
func NewPgBadgeRepository(pool *pgxpool.Pool) BadgeRepository {
	return &pgBadgeRepository{pool: pool}
}

const badgeSelectCols = `id, name, kind, COALESCE(description, ''), COALESCE(icon, ''),
	COALESCE(color, ''), is_active, is_manually_awardable, created_at, updated_at`

func scanBadge(scan func(...any) error) (*model.Badge, error) {
	b := &model.Badge{}
	return b, scan(
		&b.ID, &b.Name, &b.Kind, &b.Description, &b.Icon,
		&b.Color, &b.IsActive, &b.IsManuallyAwardable, &b.CreatedAt, &b.UpdatedAt,
	)
}

func (r *pgBadgeRepository) GetByID(ctx context.Context, id string) (*model.Badge, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+badgeSelectCols+` FROM badges WHERE id = $1`, id)
	b, err := scanBadge(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *pgBadgeRepository) GetByKind(ctx context.Context, kind model.BadgeKind) (*model.Badge, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+badgeSelectCols+` FROM badges WHERE kind = $1 ORDER BY created_at LIMIT 1`, kind)
	b, err := scanBadge(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *pgBadgeRepository) List(ctx context.Context) ([]*model.Badge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+badgeSelectCols+` FROM badges ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*model.Badge
	for rows.Next() {
		b, err := scanBadge(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}
