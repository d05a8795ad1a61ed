// Package model はドメインモデルを定義する。
package model

import "time"

// TrialStatus は治験の進行状態を表す。
type TrialStatus string

const (
	// TrialStatusPlanned は計画中の治験。新規作成時のデフォルト。
	TrialStatusPlanned TrialStatus = "Planned"
	// TrialStatusOngoing は実施中の治験。
	TrialStatusOngoing TrialStatus = "Ongoing"
	// TrialStatusCompleted は完了した治験。
	TrialStatusCompleted TrialStatus = "Completed"
)

// TrialStatuses は有効なステータスを集計順で返す。
func TrialStatuses() []TrialStatus {
	return []TrialStatus{TrialStatusPlanned, TrialStatusOngoing, TrialStatusCompleted}
}

// Valid はステータスが定義済みの値かどうかを返す。
func (s TrialStatus) Valid() bool {
	switch s {
	case TrialStatusPlanned, TrialStatusOngoing, TrialStatusCompleted:
		return true
	default:
		return false
	}
}

// Trial は治験レコードを表す。
// CreatedByは作成時に認証済みユーザーから設定され、以後変更されない。
type Trial struct {
	ID          string      `db:"id"`
	TrialName   string      `db:"trial_name"`
	Description string      `db:"description"`
	StartDate   time.Time   `db:"start_date"`
	EndDate     time.Time   `db:"end_date"`
	Status      TrialStatus `db:"status"`
	CreatedBy   string      `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

// TrialWithCreator は治験と作成者の表示情報をJOINしたモデル。
type TrialWithCreator struct {
	Trial
	CreatorUsername string `db:"creator_username"`
	CreatorFullName string `db:"creator_full_name"`
}

// TrialDraft はバリデーション済みの新規治験データ。
// リポジトリへの書き込みはこの型を経由する。
type TrialDraft struct {
	TrialName   string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Status      TrialStatus
}

// TrialChanges はバリデーション済みの部分更新内容。
// nilのフィールドは既存値を維持する。
type TrialChanges struct {
	TrialName   *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *TrialStatus
}

// StatusCount はステータスごとの件数。
type StatusCount struct {
	Status TrialStatus `db:"status"`
	Count  int         `db:"count"`
}

// RecentTrial は統計画面に表示する最近の治験の射影。
type RecentTrial struct {
	ID              string      `db:"id"`
	TrialName       string      `db:"trial_name"`
	Status          TrialStatus `db:"status"`
	CreatedAt       time.Time   `db:"created_at"`
	CreatorUsername string      `db:"creator_username"`
}

// DurationStats は治験期間（日数）の記述統計。
type DurationStats struct {
	MeanDays   float64
	MedianDays float64
}

// TrialStats はユーザー単位の治験統計。
// Totalは常にPlanned + Ongoing + Completedと一致する。
type TrialStats struct {
	Total     int
	Planned   int
	Ongoing   int
	Completed int
	Recent    []RecentTrial
	Duration  DurationStats
}
