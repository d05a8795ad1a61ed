// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュで、APIレスポンスには絶対に含めない。
type User struct {
	ID           string     `db:"id"`
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	FullName     string     `db:"full_name"`
	PasswordHash string     `db:"password_hash"`
	CreatedAt    time.Time  `db:"created_at"`
	LastLogin    *time.Time `db:"last_login"`
}

// UserProfile は現在のユーザー情報と所有する治験数を表す。
type UserProfile struct {
	User
	TrialCount int
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired はセッションが指定時刻の時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
