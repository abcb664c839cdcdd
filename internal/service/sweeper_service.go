package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fanlore/backend/internal/model"
)

// SweeperGrantRepo は Sweeper が必要とする付与レコード操作のミニマムインターフェース
type SweeperGrantRepo interface {
	SweepExpired(ctx context.Context, now time.Time) ([]*model.ExpiredGrant, int, error)
}

// SweepResult summarizes one sweeper pass.
type SweepResult struct {
	Deactivated  int `json:"deactivated"`
	RolesCleared int `json:"roles_cleared"`
}

// SweeperService deactivates expired time-bound grants. The custom-role
// cascade for active-supporter expiries happens in the same repository
// statement, so a supporter-only customization can never outlive the
// entitlement. The pass is stateless and idempotent: the underlying update is
// conditional, so re-running after nothing newly expired changes nothing, and
// concurrent sweeper instances are safe.
type SweeperService interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

type sweeperService struct {
	grantRepo SweeperGrantRepo
	now       func() time.Time
}

// NewSweeperService creates a SweeperService.
func NewSweeperService(grantRepo SweeperGrantRepo) SweeperService {
	return &sweeperService{grantRepo: grantRepo, now: time.Now}
}

func (s *sweeperService) Sweep(ctx context.Context) (SweepResult, error) {
	expired, rolesCleared, err := s.grantRepo.SweepExpired(ctx, s.now())
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Deactivated: len(expired), RolesCleared: rolesCleared}
	if result.Deactivated > 0 {
		slog.Info("expiration sweep completed",
			"deactivated", result.Deactivated, "roles_cleared", result.RolesCleared)
	}
	return result, nil
}

// RunPeriodic runs Sweep on the given interval until ctx is cancelled.
// Intended for a background goroutine in cmd/server.
func RunPeriodic(ctx context.Context, s SweeperService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.Error("expiration sweep failed", "error", err)
			}
		}
	}
}
