// Package auth はユーザー登録、資格情報の検証、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/trialman/internal/model"
	"github.com/hitoshi/trialman/internal/repository"
)

// CredentialVerifier は資格情報を検証するインターフェース。
// CredentialStoreが実装する。
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (*model.User, error)
}

// TrialCounter はユーザーが所有する治験数を返すインターフェース。
type TrialCounter interface {
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// LoginRecorder はログイン試行の結果を記録するインターフェース。
// metrics.Collectorが実装する。
type LoginRecorder interface {
	RecordLoginAttempt(result string)
}

// ログイン試行の結果種別。
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
	LoginError   = "error"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service はログイン、ログアウト、セッションの検証を提供する。
type Service struct {
	creds       CredentialVerifier
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	trials      TrialCounter
	recorder    LoginRecorder
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(
	creds CredentialVerifier,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	trials TrialCounter,
	recorder LoginRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		creds:       creds,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		trials:      trials,
		recorder:    recorder,
		config:      config,
		now:         time.Now,
	}
}

// Login は資格情報を検証し、セッションを発行する。
// 最終ログイン日時の更新は失敗してもログに記録するのみでログインは継続する。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, *model.User, error) {
	user, err := s.creds.Verify(ctx, username, password)
	if err != nil {
		if isAPIError(err) {
			s.record(LoginFailure)
			slog.Info("login failed", slog.String("username", username))
			return nil, nil, err
		}
		s.record(LoginError)
		return nil, nil, fmt.Errorf("failed to verify credentials: %w", err)
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	} else {
		user.LastLogin = &now
	}

	session, err := s.createSession(ctx, user.ID, now)
	if err != nil {
		s.record(LoginError)
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.record(LoginSuccess)
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return session, user, nil
}

// Logout はセッションを破棄する。以後そのトークンは未認証として扱われる。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// Authenticate はセッショントークンを検証し、認証済みユーザーIDを返す。
// トークンが空、存在しない、または期限切れの場合はUNAUTHORIZEDを返す。
func (s *Service) Authenticate(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.Expired(s.now()) {
		return "", model.NewUnauthorizedError()
	}

	return session.UserID, nil
}

// GetCurrentUser は認証済みユーザーのプロフィールと治験数を返す。
// 治験数の取得に失敗した場合はログに記録し、0として返す。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.UserProfile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}
	user.PasswordHash = ""

	profile := &model.UserProfile{User: *user}
	count, err := s.trials.CountByOwner(ctx, userID)
	if err != nil {
		slog.Warn("failed to count trials for profile",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return profile, nil
	}
	profile.TrialCount = count
	return profile, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string, now time.Time) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

func (s *Service) record(result string) {
	if s.recorder != nil {
		s.recorder.RecordLoginAttempt(result)
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// isAPIError はerrがドメインエラーかどうかを返す。
func isAPIError(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr)
}
