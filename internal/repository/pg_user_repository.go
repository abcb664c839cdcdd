package repository

import (
	"context"
	"errors"

	"github.com/fanlore/backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgUserRepository struct {
	pool *pgxpool.Pool
}

// NewPgUserRepository returns a PostgreSQL-backed UserRepository.
func NewPgUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepository{pool: pool}
}

const userSelectCols = `id, username, email, COALESCE(discord_handle, ''),
	COALESCE(custom_role, ''), created_at, updated_at`

func scanUser(scan func(...any) error) (*model.User, error) {
	u := &model.User{}
	return u, scan(
		&u.ID, &u.Username, &u.Email, &u.DiscordHandle,
		&u.CustomRole, &u.CreatedAt, &u.UpdatedAt,
	)
}

func (r *pgUserRepository) findBy(ctx context.Context, where string, arg any) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userSelectCols+` FROM users WHERE `+where, arg)
	u, err := scanUser(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findBy(ctx, `id = $1`, id)
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findBy(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findBy(ctx, `username = $1`, username)
}

func (r *pgUserRepository) FindByDiscordHandle(ctx context.Context, handle string) (*model.User, error) {
	return r.findBy(ctx, `discord_handle = $1`, handle)
}
