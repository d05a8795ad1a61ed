// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/trialman/internal/model"
)

// ErrDuplicateUser はユーザー名またはメールアドレスの一意制約違反を表す。
var ErrDuplicateUser = errors.New("user already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。一意制約違反の場合はErrDuplicateUserを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	// 戻り値のPasswordHashは資格情報の検証にのみ使用すること。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// UpdateLastLogin は最終ログイン日時を更新する。
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// TrialRepository は治験データの永続化インターフェース。
// すべての読み書きは所有者IDで絞り込まれる。
type TrialRepository interface {
	// ListByOwner は所有者の治験を作成順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]model.TrialWithCreator, error)

	// FindByIDAndOwner は所有者の治験を取得する。
	// 存在しない場合と他ユーザーの治験の場合はどちらもnilを返す。
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.TrialWithCreator, error)

	// Create は治験を作成し、作成者情報をJOINした結果を返す。
	Create(ctx context.Context, trial *model.Trial) (*model.TrialWithCreator, error)

	// UpdateByIDAndOwner は部分更新を1文の条件付きUPDATEで適用する。
	// 条件（ID・所有者・更新後の日付範囲）に一致する行がない場合はnilを返す。
	UpdateByIDAndOwner(ctx context.Context, id, ownerID string, changes model.TrialChanges, now time.Time) (*model.TrialWithCreator, error)

	// DeleteByIDAndOwner は所有者の治験を削除する。削除対象がなければfalseを返す。
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (bool, error)

	// CountByOwner は所有者の治験数を返す。
	CountByOwner(ctx context.Context, ownerID string) (int, error)

	// CountByStatus は所有者の治験数をステータス別に返す。件数0のステータスは含まれない。
	CountByStatus(ctx context.Context, ownerID string) ([]model.StatusCount, error)

	// ListRecentByOwner は所有者の治験を作成日時の降順でlimit件返す。
	ListRecentByOwner(ctx context.Context, ownerID string, limit int) ([]model.RecentTrial, error)

	// ListDurationDaysByOwner は所有者の各治験の期間（日数）を返す。
	ListDurationDaysByOwner(ctx context.Context, ownerID string) ([]float64, error)
}
