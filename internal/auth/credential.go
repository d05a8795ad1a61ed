package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/trialman/internal/model"
	"github.com/hitoshi/trialman/internal/repository"
)

// maxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
const maxPasswordBytes = 72

// dummyPassword はユーザー不在時の比較用ハッシュの元になる値。
const dummyPassword = "trialman-dummy-password"

// RegisterInput はユーザー登録の入力値。
type RegisterInput struct {
	Username string
	Password string
	FullName string
	Email    string // 任意
}

// CredentialStore はユーザーの登録と資格情報の検証を行う。
// パスワードはbcryptでハッシュ化して保存し、平文は保持しない。
type CredentialStore struct {
	users     repository.UserRepository
	cost      int
	dummyHash []byte
	now       func() time.Time
}

// NewCredentialStore はCredentialStoreを生成する。
// costがbcryptの許容範囲外の場合はbcrypt.DefaultCostを使用する。
func NewCredentialStore(users repository.UserRepository, cost int) (*CredentialStore, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &CredentialStore{
		users:     users,
		cost:      cost,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// Register は新しいユーザーを登録する。
// ユーザー名またはメールアドレスが登録済みの場合はUSERNAME_TAKENを返し、レコードは作成しない。
// 戻り値のユーザーにはパスワードハッシュを含めない。
func (c *CredentialStore) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	fullName := strings.TrimSpace(in.FullName)
	email := strings.TrimSpace(in.Email)

	if username == "" {
		return nil, model.NewValidationError("Username is required")
	}
	if in.Password == "" {
		return nil, model.NewValidationError("Password is required")
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, model.NewValidationError("Password must be at most 72 bytes")
	}
	if fullName == "" {
		return nil, model.NewValidationError("Full name is required")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, model.NewValidationError("Email address is invalid")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), c.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		CreatedAt:    c.now(),
	}

	if err := c.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, model.NewUsernameTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	user.PasswordHash = ""
	return user, nil
}

// Verify はユーザー名とパスワードを検証する。
// ユーザー不在とパスワード不一致は同じAUTH_FAILUREを返す。
// 応答時間でユーザーの存在を推測されないよう、不在時もダミーハッシュと比較する。
func (c *CredentialStore) Verify(ctx context.Context, username, password string) (*model.User, error) {
	user, err := c.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(c.dummyHash, []byte(password))
		return nil, model.NewAuthFailureError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewAuthFailureError()
	}

	user.PasswordHash = ""
	return user, nil
}
