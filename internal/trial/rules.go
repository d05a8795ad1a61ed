// Package trial は治験レコードのライフサイクル規則、所有者スコープのCRUD、統計集計を提供する。
package trial

import (
	"strings"
	"time"

	"github.com/hitoshi/trialman/internal/model"
	"github.com/hitoshi/trialman/internal/security"
)

// DateLayout はAPIで受け付ける日付の基本書式。
const DateLayout = "2006-01-02"

// Input は治験作成リクエストの入力値。
// 作成者はリクエストからは受け付けず、常に認証済みユーザーから設定する。
type Input struct {
	TrialName   string
	Description string
	StartDate   string
	EndDate     string
	Status      string
}

// Patch は治験更新リクエストの入力値。nilのフィールドは未指定を表す。
type Patch struct {
	TrialName   *string
	Description *string
	StartDate   *string
	EndDate     *string
	Status      *string
}

// Rules は書き込み前に適用する純粋なバリデーション規則。
type Rules struct {
	sanitizer security.TextSanitizer
}

// NewRules はRulesを生成する。
func NewRules(sanitizer security.TextSanitizer) *Rules {
	return &Rules{sanitizer: sanitizer}
}

// ValidateNew は作成入力を検証し、保存可能なドラフトに変換する。
//   - trialNameはトリム後に空でないこと
//   - startDate, endDateは必須で、endDate >= startDate
//   - statusは未指定ならPlanned、指定時は定義済みの値であること
func (r *Rules) ValidateNew(in Input) (model.TrialDraft, error) {
	name := r.cleanText(in.TrialName)
	if name == "" {
		return model.TrialDraft{}, model.NewValidationError("Trial name is required")
	}

	if strings.TrimSpace(in.StartDate) == "" {
		return model.TrialDraft{}, model.NewValidationError("Start date is required")
	}
	if strings.TrimSpace(in.EndDate) == "" {
		return model.TrialDraft{}, model.NewValidationError("End date is required")
	}

	start, err := ParseDate(in.StartDate)
	if err != nil {
		return model.TrialDraft{}, model.NewValidationError("Start date must be a valid date (YYYY-MM-DD)")
	}
	end, err := ParseDate(in.EndDate)
	if err != nil {
		return model.TrialDraft{}, model.NewValidationError("End date must be a valid date (YYYY-MM-DD)")
	}
	if err := CheckDateRange(start, end); err != nil {
		return model.TrialDraft{}, err
	}

	status := model.TrialStatusPlanned
	if s := strings.TrimSpace(in.Status); s != "" {
		status = model.TrialStatus(s)
		if !status.Valid() {
			return model.TrialDraft{}, model.NewInvalidStatusError(s)
		}
	}

	return model.TrialDraft{
		TrialName:   name,
		Description: r.sanitizer.Sanitize(in.Description),
		StartDate:   start,
		EndDate:     end,
		Status:      status,
	}, nil
}

// ValidatePatch は更新入力を検証し、部分更新内容に変換する。
// trialName, startDate, endDate, statusは空値の場合に未指定として扱い既存値を維持する。
// descriptionは指定されていれば空文字列でも上書きする。
// 両方の日付が指定された場合はここで日付範囲を検証する。片方のみの場合は
// 保存済みの値との組み合わせをリポジトリの条件付き更新で検証する。
func (r *Rules) ValidatePatch(p Patch) (model.TrialChanges, error) {
	var changes model.TrialChanges

	if p.TrialName != nil {
		if name := r.cleanText(*p.TrialName); name != "" {
			changes.TrialName = &name
		}
	}

	if p.Description != nil {
		desc := r.sanitizer.Sanitize(*p.Description)
		changes.Description = &desc
	}

	if p.StartDate != nil && strings.TrimSpace(*p.StartDate) != "" {
		start, err := ParseDate(*p.StartDate)
		if err != nil {
			return model.TrialChanges{}, model.NewValidationError("Start date must be a valid date (YYYY-MM-DD)")
		}
		changes.StartDate = &start
	}

	if p.EndDate != nil && strings.TrimSpace(*p.EndDate) != "" {
		end, err := ParseDate(*p.EndDate)
		if err != nil {
			return model.TrialChanges{}, model.NewValidationError("End date must be a valid date (YYYY-MM-DD)")
		}
		changes.EndDate = &end
	}

	if changes.StartDate != nil && changes.EndDate != nil {
		if err := CheckDateRange(*changes.StartDate, *changes.EndDate); err != nil {
			return model.TrialChanges{}, err
		}
	}

	if p.Status != nil {
		if s := strings.TrimSpace(*p.Status); s != "" {
			status := model.TrialStatus(s)
			if !status.Valid() {
				return model.TrialChanges{}, model.NewInvalidStatusError(s)
			}
			changes.Status = &status
		}
	}

	return changes, nil
}

// Merge は保存済みの治験に部分更新内容を適用した結果を返す。
// リポジトリの条件付きUPDATEと同じ規則で、マージ後の日付範囲を検証する。
func Merge(current model.Trial, changes model.TrialChanges) (model.Trial, error) {
	merged := current
	if changes.TrialName != nil {
		merged.TrialName = *changes.TrialName
	}
	if changes.Description != nil {
		merged.Description = *changes.Description
	}
	if changes.StartDate != nil {
		merged.StartDate = *changes.StartDate
	}
	if changes.EndDate != nil {
		merged.EndDate = *changes.EndDate
	}
	if changes.Status != nil {
		if !changes.Status.Valid() {
			return current, model.NewInvalidStatusError(string(*changes.Status))
		}
		merged.Status = *changes.Status
	}
	if err := CheckDateRange(merged.StartDate, merged.EndDate); err != nil {
		return current, err
	}
	return merged, nil
}

// CheckDateRange は終了日が開始日以降であることを検証する。同日は許可する。
func CheckDateRange(start, end time.Time) error {
	if end.Before(start) {
		return model.NewInvalidDateRangeError()
	}
	return nil
}

// ParseDate は日付文字列をUTCの0時として解析する。
// "2006-01-02"形式とRFC3339形式（日付部分のみ使用）を受け付ける。
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// cleanText はマークアップを除去し前後の空白をトリムする。
func (r *Rules) cleanText(s string) string {
	return strings.TrimSpace(r.sanitizer.Sanitize(s))
}
