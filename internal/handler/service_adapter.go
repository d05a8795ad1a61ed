package handler

import (
	"context"

	"github.com/hitoshi/trialman/internal/auth"
	"github.com/hitoshi/trialman/internal/model"
	"github.com/hitoshi/trialman/internal/trial"
)

// AuthServiceAdapter は auth.Service と auth.CredentialStore を AuthServiceInterface に適合させるアダプタ。
// 登録は資格情報ストアが、セッション操作は認証サービスが担う。
type AuthServiceAdapter struct {
	*auth.Service
	creds *auth.CredentialStore
}

// NewAuthServiceAdapter はAuthServiceAdapterを生成する。
func NewAuthServiceAdapter(svc *auth.Service, creds *auth.CredentialStore) *AuthServiceAdapter {
	return &AuthServiceAdapter{Service: svc, creds: creds}
}

// Register は資格情報ストアに新規ユーザーを登録する。
func (a *AuthServiceAdapter) Register(ctx context.Context, in auth.RegisterInput) (*model.User, error) {
	return a.creds.Register(ctx, in)
}

// --- compile-time interface checks ---

var _ AuthServiceInterface = (*AuthServiceAdapter)(nil)
var _ TrialServiceInterface = (*trial.Service)(nil)
var _ StatsServiceInterface = (*trial.Aggregator)(nil)
