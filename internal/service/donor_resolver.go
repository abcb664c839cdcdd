package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fanlore/backend/internal/model"
	"github.com/fanlore/backend/internal/repository"
)

// ResolverUserRepo は DonorResolver が必要とするユーザー検索のミニマムインターフェース
type ResolverUserRepo interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByDiscordHandle(ctx context.Context, handle string) (*model.User, error)
}

// DonorResolver maps an external donor identity to a site user.
type DonorResolver interface {
	// Resolve tries exact matches in priority order: email, then username,
	// then Discord handle. First hit wins. No match is not an error; the
	// donation is persisted unowned and queued for admin reconciliation.
	Resolve(ctx context.Context, email, name string) (userID string, ok bool, err error)
}

type donorResolver struct {
	userRepo ResolverUserRepo
}

// NewDonorResolver creates a DonorResolver.
func NewDonorResolver(userRepo ResolverUserRepo) DonorResolver {
	return &donorResolver{userRepo: userRepo}
}

func (r *donorResolver) Resolve(ctx context.Context, email, name string) (string, bool, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	type lookup struct {
		label string
		find  func(context.Context, string) (*model.User, error)
		key   string
	}
	lookups := []lookup{
		{"email", r.userRepo.FindByEmail, email},
		{"username", r.userRepo.FindByUsername, name},
		{"discord_handle", r.userRepo.FindByDiscordHandle, name},
	}

	for _, l := range lookups {
		if l.key == "" {
			continue
		}
		user, err := l.find(ctx, l.key)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("resolve donor by %s: %w", l.label, err)
		}
		return user.ID, true, nil
	}
	return "", false, nil
}
