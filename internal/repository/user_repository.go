package repository

import (
	"context"

	"github.com/fanlore/backend/internal/model"
)

// DB は DB 接続の生存確認を行うインターフェース
type DB interface {
	Ping(ctx context.Context) error
}

// UserRepository はユーザー永続化のインターフェース
// カスタムロールの失効時解除は UserBadgeRepository.SweepExpired が
// 同一ステートメント内で行う。
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByDiscordHandle(ctx context.Context, handle string) (*model.User, error)
}
