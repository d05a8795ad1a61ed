package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/trialman/internal/export"
	"github.com/hitoshi/trialman/internal/model"
	"github.com/hitoshi/trialman/internal/trial"
)

// TrialServiceInterface は治験ハンドラーが必要とするサービスインターフェース。
// すべての操作は認証済みユーザーIDをスコープとして受け取る。
type TrialServiceInterface interface {
	List(ctx context.Context, userID string) ([]model.TrialWithCreator, error)
	Get(ctx context.Context, userID, trialID string) (*model.TrialWithCreator, error)
	Create(ctx context.Context, userID string, in trial.Input) (*model.TrialWithCreator, error)
	Update(ctx context.Context, userID, trialID string, patch trial.Patch) (*model.TrialWithCreator, error)
	Delete(ctx context.Context, userID, trialID string) error
}

// StatsServiceInterface は統計ハンドラーが必要とするインターフェース。
type StatsServiceInterface interface {
	Stats(ctx context.Context, userID string) (*model.TrialStats, error)
}

// TrialHandler は治験レコード管理のHTTPハンドラー。
type TrialHandler struct {
	service TrialServiceInterface
	stats   StatsServiceInterface
	now     func() time.Time
}

// NewTrialHandler はTrialHandlerを生成する。
func NewTrialHandler(service TrialServiceInterface, stats StatsServiceInterface) *TrialHandler {
	return &TrialHandler{
		service: service,
		stats:   stats,
		now:     time.Now,
	}
}

type createTrialRequest struct {
	TrialName   string `json:"trialName"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Status      string `json:"status"`
}

// optionalString はJSONでキーが存在したかを保持する文字列。
// nullは空文字列として扱う。
type optionalString struct {
	Set   bool
	Value string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = ""
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// ptr はキーが存在した場合のみ値へのポインタを返す。
func (o optionalString) ptr() *string {
	if !o.Set {
		return nil
	}
	v := o.Value
	return &v
}

// updateTrialRequest は部分更新リクエスト。省略されたフィールドはnilになる。
// descriptionはnullを指定すると空に戻る。
type updateTrialRequest struct {
	TrialName   *string        `json:"trialName"`
	Description optionalString `json:"description"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	Status      *string `json:"status"`
}

type creatorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

type trialResponse struct {
	ID          string          `json:"id"`
	TrialName   string          `json:"trialName"`
	Description string          `json:"description"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	Status      string          `json:"status"`
	CreatedBy   creatorResponse `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type recentTrialResponse struct {
	ID        string    `json:"id"`
	TrialName string    `json:"trialName"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy struct {
		Username string `json:"username"`
	} `json:"createdBy"`
}

type durationResponse struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

type statsResponse struct {
	TotalTrials     int                   `json:"totalTrials"`
	PlannedTrials   int                   `json:"plannedTrials"`
	OngoingTrials   int                   `json:"ongoingTrials"`
	CompletedTrials int                   `json:"completedTrials"`
	RecentTrials    []recentTrialResponse `json:"recentTrials"`
	DurationDays    durationResponse      `json:"durationDays"`
}

// ListTrials はユーザーの治験一覧を作成順（作成日時の古い順）で返す。
// GET /trials
func (h *TrialHandler) ListTrials(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	trials, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]trialResponse, len(trials))
	for i := range trials {
		resp[i] = toTrialResponse(&trials[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTrial は治験1件を返す。他ユーザーの治験は存在しない場合と同じく404になる。
// GET /trials/{id}
func (h *TrialHandler) GetTrial(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTrialResponse(t))
}

// CreateTrial は治験を作成する。
// POST /trials
func (h *TrialHandler) CreateTrial(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createTrialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	t, err := h.service.Create(r.Context(), userID, trial.Input{
		TrialName:   req.TrialName,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTrialResponse(t))
}

// UpdateTrial は治験を部分更新する。
// PUT /trials/{id}
func (h *TrialHandler) UpdateTrial(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateTrialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	t, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), trial.Patch{
		TrialName:   req.TrialName,
		Description: req.Description.ptr(),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTrialResponse(t))
}

// DeleteTrial は治験を削除する。
// DELETE /trials/{id}
func (h *TrialHandler) DeleteTrial(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Clinical trial deleted successfully"})
}

// GetStats はユーザーの治験統計を返す。
// GET /trials/stats
func (h *TrialHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.stats.Stats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatsResponse(stats))
}

// ExportTrials はユーザーの治験一覧をスプレッドシートとして返す。
// 書き込み途中で失敗した場合に壊れたファイルを返さないよう、バッファに書き出してから送信する。
// GET /trials/export
func (h *TrialHandler) ExportTrials(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	trials, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTrials(&buf, trials); err != nil {
		handleServiceError(w, fmt.Errorf("export trials: %w", err))
		return
	}

	filename := fmt.Sprintf("clinical-trials-%s.xlsx", h.now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write export", slog.String("error", err.Error()))
	}
}

func toTrialResponse(t *model.TrialWithCreator) trialResponse {
	return trialResponse{
		ID:          t.ID,
		TrialName:   t.TrialName,
		Description: t.Description,
		StartDate:   t.StartDate.Format(trial.DateLayout),
		EndDate:     t.EndDate.Format(trial.DateLayout),
		Status:      string(t.Status),
		CreatedBy: creatorResponse{
			ID:       t.CreatedBy,
			Username: t.CreatorUsername,
			FullName: t.CreatorFullName,
		},
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toStatsResponse(s *model.TrialStats) statsResponse {
	recent := make([]recentTrialResponse, len(s.Recent))
	for i, rt := range s.Recent {
		recent[i] = recentTrialResponse{
			ID:        rt.ID,
			TrialName: rt.TrialName,
			Status:    string(rt.Status),
			CreatedAt: rt.CreatedAt,
		}
		recent[i].CreatedBy.Username = rt.CreatorUsername
	}

	return statsResponse{
		TotalTrials:     s.Total,
		PlannedTrials:   s.Planned,
		OngoingTrials:   s.Ongoing,
		CompletedTrials: s.Completed,
		RecentTrials:    recent,
		DurationDays: durationResponse{
			Mean:   s.Duration.MeanDays,
			Median: s.Duration.MedianDays,
		},
	}
}
