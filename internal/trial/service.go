package trial

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/trialman/internal/model"
	"github.com/hitoshi/trialman/internal/repository"
)

// MutationRecorder は治験の書き込み操作を記録するインターフェース。
// metrics.Collectorが実装する。
type MutationRecorder interface {
	RecordTrialMutation(op string)
}

// 書き込み操作の種別。
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Service は所有者スコープの治験CRUDを提供する。
// すべての操作は呼び出し元の認証済みユーザーIDを明示的に受け取る。
type Service struct {
	repo     repository.TrialRepository
	rules    *Rules
	recorder MutationRecorder
	now      func() time.Time
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(repo repository.TrialRepository, rules *Rules, recorder MutationRecorder) *Service {
	return &Service{
		repo:     repo,
		rules:    rules,
		recorder: recorder,
		now:      time.Now,
	}
}

// List はユーザーの治験を作成順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]model.TrialWithCreator, error) {
	trials, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}
	return trials, nil
}

// Get はユーザーの治験を取得する。
// 存在しない・他ユーザー所有・不正なIDのいずれもTRIAL_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, userID, trialID string) (*model.TrialWithCreator, error) {
	if !isValidID(trialID) {
		return nil, model.NewTrialNotFoundError()
	}

	trial, err := s.repo.FindByIDAndOwner(ctx, trialID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trial: %w", err)
	}
	if trial == nil {
		return nil, model.NewTrialNotFoundError()
	}
	return trial, nil
}

// Create はライフサイクル規則を適用して治験を作成する。
func (s *Service) Create(ctx context.Context, userID string, in Input) (*model.TrialWithCreator, error) {
	draft, err := s.rules.ValidateNew(in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	trial := &model.Trial{
		ID:          uuid.New().String(),
		TrialName:   draft.TrialName,
		Description: draft.Description,
		StartDate:   draft.StartDate,
		EndDate:     draft.EndDate,
		Status:      draft.Status,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Create(ctx, trial)
	if err != nil {
		return nil, fmt.Errorf("failed to create trial: %w", err)
	}

	s.record(OpCreate)
	slog.Info("trial created",
		slog.String("user_id", userID),
		slog.String("trial_id", created.ID),
	)
	return created, nil
}

// Update は部分更新を適用する。
// 所有者チェックと更新を1文で行い、一致しなかった場合のみ存在確認で
// 日付範囲エラーとTRIAL_NOT_FOUNDを区別する。
// 同一ユーザーによる同時更新は後勝ちとなる。
func (s *Service) Update(ctx context.Context, userID, trialID string, patch Patch) (*model.TrialWithCreator, error) {
	if !isValidID(trialID) {
		return nil, model.NewTrialNotFoundError()
	}

	changes, err := s.rules.ValidatePatch(patch)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateByIDAndOwner(ctx, trialID, userID, changes, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update trial: %w", err)
	}
	if updated != nil {
		s.record(OpUpdate)
		return updated, nil
	}

	existing, err := s.repo.FindByIDAndOwner(ctx, trialID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trial: %w", err)
	}
	if existing == nil {
		return nil, model.NewTrialNotFoundError()
	}
	if _, err := Merge(existing.Trial, changes); err != nil {
		return nil, err
	}
	// UPDATEと確認の間に別リクエストが日付を変更した場合のみ到達する
	slog.Warn("trial changed concurrently during update",
		slog.String("user_id", userID),
		slog.String("trial_id", trialID),
	)
	return nil, fmt.Errorf("trial %s changed concurrently during update", trialID)
}

// Delete はユーザーの治験を削除する。
func (s *Service) Delete(ctx context.Context, userID, trialID string) error {
	if !isValidID(trialID) {
		return model.NewTrialNotFoundError()
	}

	deleted, err := s.repo.DeleteByIDAndOwner(ctx, trialID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trial: %w", err)
	}
	if !deleted {
		return model.NewTrialNotFoundError()
	}

	s.record(OpDelete)
	slog.Info("trial deleted",
		slog.String("user_id", userID),
		slog.String("trial_id", trialID),
	)
	return nil
}

func (s *Service) record(op string) {
	if s.recorder != nil {
		s.recorder.RecordTrialMutation(op)
	}
}

// isValidID はIDがUUID形式かどうかを返す。
// 不正なIDをDBに渡すと型エラーになるため、事前に弾いてNotFoundとして扱う。
func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
