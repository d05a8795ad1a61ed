// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, trial, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInvalidDateRange = "INVALID_DATE_RANGE"
	ErrCodeInvalidStatus    = "INVALID_STATUS"
	ErrCodeAuthFailure      = "AUTH_FAILURE"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeTrialNotFound    = "TRIAL_NOT_FOUND"
	ErrCodeUsernameTaken    = "USERNAME_TAKEN"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewValidationError は入力不備エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "Check the highlighted fields and submit again.",
	}
}

// NewInvalidDateRangeError は終了日が開始日より前の場合のエラーを生成する。
func NewInvalidDateRangeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDateRange,
		Message:  "End date cannot be before start date",
		Category: "validation",
		Action:   "Choose an end date on or after the start date.",
	}
}

// NewInvalidStatusError は未定義のステータスが指定された場合のエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("Invalid status: %q", status),
		Category: "validation",
		Action:   "Status must be one of Planned, Ongoing or Completed.",
	}
}

// NewAuthFailureError は資格情報の検証失敗エラーを生成する。
// ユーザー不在とパスワード不一致を区別しない。
func NewAuthFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailure,
		Message:  "Invalid username or password",
		Category: "auth",
		Action:   "Check your username and password.",
	}
}

// NewUnauthorizedError はセッションが無効または期限切れの場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Please log in to access this resource",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewTrialNotFoundError は治験が存在しない、または所有者でない場合のエラーを生成する。
// 他ユーザーの治験の存在を漏らさないため、両者を同じエラーで返す。
func NewTrialNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeTrialNotFound,
		Message:  "Clinical trial not found or you do not have permission to access it",
		Category: "trial",
		Action:   "Reload the trial list.",
	}
}

// NewUsernameTakenError はユーザー名（またはメールアドレス）が登録済みの場合のエラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  "Username or email is already registered",
		Category: "auth",
		Action:   "Choose a different username or email address.",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	}
}

// NewInternalError は内部エラーの統一レスポンスを生成する。
// 詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Server error",
		Category: "system",
		Action:   "Please try again later.",
	}
}
