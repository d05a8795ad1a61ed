// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/trialman/internal/auth"
	"github.com/hitoshi/trialman/internal/middleware"
	"github.com/hitoshi/trialman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.Session, *model.User, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, userID string) (*model.UserProfile, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はユーザー登録・ログイン・セッション関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userResponse はパスワードハッシュを含まないユーザー情報。
type userResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	FullName  string     `json:"fullName"`
	Email     string     `json:"email,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

type profileResponse struct {
	userResponse
	TrialCount int `json:"trialCount"`
}

type loginResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type currentUserResponse struct {
	User profileResponse `json:"user"`
}

// Register は新規ユーザーを登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), auth.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("user registered", slog.String("user_id", user.ID))
	writeJSON(w, http.StatusCreated, messageResponse{Message: "User registered successfully"})
}

// Login は認証情報を検証し、セッションCookieを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	session, user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		User:    toUserResponse(user),
	})
}

// Logout はセッションを破棄し、Cookieをクリアする。
// セッションが既に無効でも成功として扱う。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionTokenFromRequest(r)

	// 削除に失敗してもCookieはクリアする
	h.setSessionCookie(w, "", -1)

	if err := h.service.Logout(r.Context(), token); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Logout successful"})
}

// CurrentUser は現在のログインユーザー情報と治験数を返す。
// GET /auth/user
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetCurrentUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, currentUserResponse{
		User: profileResponse{
			userResponse: toUserResponse(&profile.User),
			TrialCount:   profile.TrialCount,
		},
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		FullName:  user.FullName,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		LastLogin: user.LastLogin,
	}
}
