package repository

import (
	"context"
	"errors"

	"github.com/fanlore/backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type pgDonationRepository struct {
	pool *pgxpool.Pool
}

// NewPgDonationRepository returns a PostgreSQL-backed DonationRepository.
func NewPgDonationRepository(pool *pgxpool.Pool) DonationRepository {
	return &pgDonationRepository{pool: pool}
}

// amount is NUMERIC; it is selected as text and parsed into a decimal so no
// float ever touches a monetary value.
const donationSelectCols = `id, owner_user_id, amount::text, currency, occurred_at,
	provider, external_id, status, COALESCE(donor_name, ''), COALESCE(donor_email, ''),
	is_anonymous, raw_payload, entitlements_processed, COALESCE(admin_notes, ''),
	created_at, updated_at`

func scanDonation(scan func(...any) error) (*model.Donation, error) {
	d := &model.Donation{}
	var amount string
	err := scan(
		&d.ID, &d.OwnerUserID, &amount, &d.Currency, &d.OccurredAt,
		&d.Provider, &d.ExternalID, &d.Status, &d.DonorName, &d.DonorEmail,
		&d.IsAnonymous, &d.RawPayload, &d.EntitlementsProcessed, &d.AdminNotes,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if d.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *pgDonationRepository) Create(ctx context.Context, d *model.Donation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO donations
		 (id, owner_user_id, amount, currency, occurred_at, provider, external_id,
		  status, donor_name, donor_email, is_anonymous, raw_payload, admin_notes)
		 VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, NULLIF($9,''), NULLIF($10,''),
		  $11, $12, NULLIF($13,''))`,
		d.ID, d.OwnerUserID, d.Amount.String(), d.Currency, d.OccurredAt,
		d.Provider, d.ExternalID, d.Status, d.DonorName, d.DonorEmail,
		d.IsAnonymous, d.RawPayload, d.AdminNotes,
	)
	if uniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *pgDonationRepository) GetByID(ctx context.Context, id string) (*model.Donation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+donationSelectCols+` FROM donations WHERE id = $1`, id)
	d, err := scanDonation(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (r *pgDonationRepository) GetByProviderExternalID(ctx context.Context, provider model.DonationProvider, externalID string) (*model.Donation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+donationSelectCols+` FROM donations
		 WHERE provider = $1 AND external_id = $2`, provider, externalID)
	d, err := scanDonation(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (r *pgDonationRepository) AssignOwner(ctx context.Context, id, userID, note string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE donations
		 SET owner_user_id = $1, status = 'completed',
		     admin_notes = TRIM(COALESCE(admin_notes, '') || E'\n' || $2),
		     updated_at = NOW()
		 WHERE id = $3`,
		userID, note, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgDonationRepository) UpdateStatus(ctx context.Context, id string, status model.DonationStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE donations SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgDonationRepository) MarkEntitlementsProcessed(ctx context.Context, id string) error {
	// Conditional update keeps the flag monotonic; 0 rows affected just means
	// another retry already got there.
	_, err := r.pool.Exec(ctx,
		`UPDATE donations SET entitlements_processed = TRUE, updated_at = NOW()
		 WHERE id = $1 AND entitlements_processed = FALSE`, id)
	return err
}

func (r *pgDonationRepository) SumCompletedByUser(ctx context.Context, userID string) (decimal.Decimal, error) {
	var sum string
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::text
		 FROM donations
		 WHERE owner_user_id = $1 AND status = 'completed'`,
		userID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}

func (r *pgDonationRepository) ListUnresolved(ctx context.Context, limit, offset int) ([]*model.Donation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+donationSelectCols+`
		 FROM donations
		 WHERE owner_user_id IS NULL AND status = 'pending'
		 ORDER BY occurred_at ASC
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*model.Donation
	for rows.Next() {
		d, err := scanDonation(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func (r *pgDonationRepository) CountUnresolved(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM donations
		 WHERE owner_user_id IS NULL AND status = 'pending'`,
	).Scan(&count)
	return count, err
}

func (r *pgDonationRepository) StatsByStatus(ctx context.Context) ([]*model.DonationStatusCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(amount), 0)::text
		 FROM donations
		 GROUP BY status
		 ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*model.DonationStatusCount
	for rows.Next() {
		s := &model.DonationStatusCount{}
		var total string
		if err := rows.Scan(&s.Status, &s.Count, &total); err != nil {
			return nil, err
		}
		if s.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
