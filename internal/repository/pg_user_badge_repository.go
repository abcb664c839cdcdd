package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fanlore/backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgUserBadgeRepository struct {
	pool *pgxpool.Pool
}

// NewPgUserBadgeRepository returns a PostgreSQL-backed UserBadgeRepository.
func NewPgUserBadgeRepository(pool *pgxpool.Pool) UserBadgeRepository {
	return &pgUserBadgeRepository{pool: pool}
}

const userBadgeSelectCols = `id, user_id, badge_id, kind, awarded_at, expires_at, year,
	COALESCE(reason, ''), awarded_by_user_id, metadata, is_active,
	revoked_at, revoked_reason, revoked_by_user_id, created_at, updated_at`

func scanUserBadge(scan func(...any) error) (*model.UserBadge, error) {
	g := &model.UserBadge{}
	var metadata []byte
	err := scan(
		&g.ID, &g.UserID, &g.BadgeID, &g.Kind, &g.AwardedAt, &g.ExpiresAt, &g.Year,
		&g.Reason, &g.AwardedByUserID, &metadata, &g.IsActive,
		&g.RevokedAt, &g.RevokedReason, &g.RevokedByUserID, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &g.Metadata); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (r *pgUserBadgeRepository) Insert(ctx context.Context, g *model.UserBadge) error {
	metadata, err := marshalMetadata(g.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO user_badges
		 (id, user_id, badge_id, kind, awarded_at, expires_at, year, reason,
		  awarded_by_user_id, metadata, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8,''), $9, $10, TRUE)`,
		g.ID, g.UserID, g.BadgeID, g.Kind, g.AwardedAt, g.ExpiresAt, g.Year,
		g.Reason, g.AwardedByUserID, metadata,
	)
	if uniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *pgUserBadgeRepository) UpsertActiveSupporter(ctx context.Context, g *model.UserBadge) error {
	metadata, err := marshalMetadata(g.Metadata)
	if err != nil {
		return err
	}
	// Single statement against the partial unique index: no app-level window
	// between a delete and an insert.
	_, err = r.pool.Exec(ctx,
		`INSERT INTO user_badges
		 (id, user_id, badge_id, kind, awarded_at, expires_at, year, reason,
		  awarded_by_user_id, metadata, is_active)
		 VALUES ($1, $2, $3, 'active_supporter', $4, $5, $6, NULLIF($7,''), $8, $9, TRUE)
		 ON CONFLICT (user_id, badge_id) WHERE kind = 'active_supporter'
		 DO UPDATE SET
		   awarded_at = EXCLUDED.awarded_at,
		   expires_at = EXCLUDED.expires_at,
		   year = EXCLUDED.year,
		   reason = EXCLUDED.reason,
		   awarded_by_user_id = EXCLUDED.awarded_by_user_id,
		   metadata = EXCLUDED.metadata,
		   is_active = TRUE,
		   revoked_at = NULL,
		   revoked_reason = NULL,
		   revoked_by_user_id = NULL,
		   updated_at = NOW()`,
		g.ID, g.UserID, g.BadgeID, g.AwardedAt, g.ExpiresAt, g.Year, g.Reason,
		g.AwardedByUserID, metadata,
	)
	return err
}

func (r *pgUserBadgeRepository) GetByID(ctx context.Context, id string) (*model.UserBadge, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userBadgeSelectCols+` FROM user_badges WHERE id = $1`, id)
	g, err := scanUserBadge(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

func (r *pgUserBadgeRepository) Exists(ctx context.Context, userID, badgeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_badges WHERE user_id = $1 AND badge_id = $2)`,
		userID, badgeID,
	).Scan(&exists)
	return exists, err
}

func (r *pgUserBadgeRepository) ExistsActive(ctx context.Context, userID, badgeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_badges
		 WHERE user_id = $1 AND badge_id = $2 AND is_active)`,
		userID, badgeID,
	).Scan(&exists)
	return exists, err
}

func (r *pgUserBadgeRepository) ListActiveByUser(ctx context.Context, userID string) ([]*model.UserBadge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userBadgeSelectCols+`
		 FROM user_badges
		 WHERE user_id = $1 AND is_active
		 ORDER BY awarded_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*model.UserBadge
	for rows.Next() {
		g, err := scanUserBadge(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, g)
	}
	return list, rows.Err()
}

func (r *pgUserBadgeRepository) Revoke(ctx context.Context, id, revokedByUserID, reason string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_badges
		 SET is_active = FALSE, revoked_at = $1, revoked_reason = $2,
		     revoked_by_user_id = $3, updated_at = NOW()
		 WHERE id = $4 AND is_active`,
		at, reason, revokedByUserID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgUserBadgeRepository) SweepExpired(ctx context.Context, now time.Time) ([]*model.ExpiredGrant, int, error) {
	// 失効とロール解除を同一ステートメントで行う。別クエリに分けると、
	// 失効だけ成功してロール解除が失われる余地が生まれる。
	rows, err := r.pool.Query(ctx,
		`WITH expired AS (
		   UPDATE user_badges
		   SET is_active = FALSE, updated_at = NOW()
		   WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1
		   RETURNING id, user_id, kind
		 ), cleared AS (
		   UPDATE users
		   SET custom_role = NULL, updated_at = NOW()
		   WHERE custom_role IS NOT NULL
		     AND id IN (SELECT user_id FROM expired WHERE kind = 'active_supporter')
		   RETURNING id
		 )
		 SELECT e.id, e.user_id, e.kind,
		        EXISTS(SELECT 1 FROM cleared c WHERE c.id = e.user_id)
		 FROM expired e`,
		now)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var expired []*model.ExpiredGrant
	rolesCleared := 0
	for rows.Next() {
		g := &model.ExpiredGrant{}
		var roleCleared bool
		if err := rows.Scan(&g.ID, &g.UserID, &g.Kind, &roleCleared); err != nil {
			return nil, 0, err
		}
		// The partial unique index allows one active_supporter row per user,
		// so counting these rows counts users.
		if g.Kind == model.BadgeKindActiveSupporter && roleCleared {
			rolesCleared++
		}
		expired = append(expired, g)
	}
	return expired, rolesCleared, rows.Err()
}

func (r *pgUserBadgeRepository) StatsByBadge(ctx context.Context) ([]*model.BadgeStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT b.id, b.name, b.kind,
		        COUNT(ub.id) FILTER (WHERE ub.is_active),
		        COUNT(ub.id)
		 FROM badges b
		 LEFT JOIN user_badges ub ON ub.badge_id = b.id
		 GROUP BY b.id, b.name, b.kind
		 ORDER BY b.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*model.BadgeStats
	for rows.Next() {
		s := &model.BadgeStats{}
		if err := rows.Scan(&s.BadgeID, &s.Name, &s.Kind, &s.ActiveGrants, &s.TotalGrants); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
