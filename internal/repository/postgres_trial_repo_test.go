package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hitoshi/trialman/internal/model"
)

var trialRowColumns = []string{
	"id", "trial_name", "description", "start_date", "end_date",
	"status", "created_by", "created_at", "updated_at",
	"creator_username", "creator_full_name",
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPostgresTrialRepo_ListByOwner_ScopedAndOrdered(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresTrialRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows(trialRowColumns).
		AddRow("t-1", "T1", "", date("2025-01-01"), date("2025-02-01"), "Planned", "user-1", now, now, "alice", "Alice").
		AddRow("t-2", "T2", "desc", date("2025-03-01"), date("2025-04-01"), "Ongoing", "user-1", now, now, "alice", "Alice")
	mock.ExpectQuery(`WHERE t.created_by = \$1\s+ORDER BY t.created_at ASC`).
		WithArgs("user-1").
		WillReturnRows(rows)

	trials, err := repo.ListByOwner(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(trials) != 2 {
		t.Fatalf("len = %d, want 2", len(trials))
	}
	if trials[0].ID != "t-1" || trials[1].Status != model.TrialStatusOngoing {
		t.Errorf("unexpected trials: %+v", trials)
	}
	if trials[0].CreatorUsername != "alice" {
		t.Errorf("CreatorUsername = %q, want %q", trials[0].CreatorUsername, "alice")
	}
}

func TestPostgresTrialRepo_ListByOwner_Empty_ReturnsEmptySlice(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresTrialRepo(db)

	mock.ExpectQuery(`FROM trials t`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(trialRowColumns))

	trials, err := repo.ListByOwner(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if trials == nil || len(trials) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", trials)
	}
}

func TestPostgresTrialRepo_FindByIDAndOwner_NotOwned_ReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresTrialRepo(db)

	mock.ExpectQuery(`WHERE t.id = \$1 AND t.created_by = \$2`).
		WithArgs("t-1", "intruder").
		WillReturnRows(sqlmock.NewRows(trialRowColumns))

	trial, err := repo.FindByIDAndOwner(context.Background(), "t-1", "intruder")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if trial != nil {
		t.Errorf("expected nil, got %+v", trial)
	}
}

func TestPostgresTrialRepo_Create_PassesDatesAsDateStrings(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresTrialRepo(db)

	now := time.Now()
	trial := &model.Trial{
		ID:        "t-1",
		TrialName: "T1",
		StartDate: date("2025-01-01"),
		EndDate:   date("2025-02-01"),
		Status:    model.TrialStatusPlanned,
		CreatedBy: "user-1",
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectQuery(`INSERT INTO trials`).
		WithArgs("t-1", "T1", "", "2025-01-01", "2025-02-01", "Planned", "user-1", now, now).
		WillReturnRows(sqlmock.NewRows(trialRowColumns).
			AddRow("t-1", "T1", "", date("2025-01-01"), date("2025-02-01"), "Planned", "user-1", now, now, "alice", "Alice"))

	created, err := repo.Create(context.Background(), trial)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.CreatedBy != "user-1" || created.CreatorUsername != "alice" {
		t.Errorf("unexpected created trial: %+v", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// 省略されたフィールドはNULLとして渡され、COALESCEで既存値が維持される。
func TestPostgresTrialRepo_UpdateByIDAndOwner_OmittedFieldsAreNull(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresTrialRepo(db)

	now := time.Now()
	completed := model.TrialStatusCompleted
	mock.ExpectQuery(`UPDATE trials SET`).
		WithArgs("t-1", "user-1", nil, nil, nil, nil, "Completed", now).
		WillReturnRows(sqlmock.NewRows(trialRowColumns).
			AddRow("t-1", "T1", "d", date("2025-01-01"), date("2025-02-01"), "Completed", "user-1", now, now, "alice", "Alice"))

	updated, err := repo.UpdateByIDAndOwner(context.Background(), "t-1", "user-1", model.TrialChanges{Status: &completed}, now)
	if err != nil {
		t.Fatalf("UpdateByIDAndOwner error: %v", err)
	}
	if updated == nil || updated.Status != model.TrialStatusCompleted || updated.TrialName != "T1" {
		t.Errorf("unexpected updated trial: %+v", updated)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresTrialRepo_UpdateByIDAndOwner_NoMatch_ReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresTrialRepo(db)

	end := date("2024-01-01")
	mock.ExpectQuery(`AND COALESCE\(\$6::date, end_date\) >= COALESCE\(\$5::date, start_date\)`).
		WithArgs("t-1", "user-1", nil, nil, nil, "2024-01-01", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(trialRowColumns))

	updated, err := repo.UpdateByIDAndOwner(context.Background(), "t-1", "user-1", model.TrialChanges{EndDate: &end}, time.Now())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated != nil {
		t.Errorf("expected nil, got %+v", updated)
	}
}

func TestPostgresTrialRepo_DeleteByIDAndOwner(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"deleted", 1, true},
		{"not owned or missing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewPostgresTrialRepo(db)

			mock.ExpectExec(`DELETE FROM trials WHERE id = \$1 AND created_by = \$2`).
				WithArgs("t-1", "user-1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := repo.DeleteByIDAndOwner(context.Background(), "t-1", "user-1")
			if err != nil {
				t.Fatalf("DeleteByIDAndOwner error: %v", err)
			}
			if got != tt.want {
				t.Errorf("deleted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPostgresTrialRepo_CountByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresTrialRepo(db)

	mock.ExpectQuery(`GROUP BY status`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("Planned", 2).
			AddRow("Completed", 1))

	counts, err := repo.CountByStatus(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CountByStatus error: %v", err)
	}
	if len(counts) != 2 || counts[0].Status != model.TrialStatusPlanned || counts[0].Count != 2 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestPostgresTrialRepo_CountByOwner_DBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresTrialRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM trials`).
		WithArgs("user-1").
		WillReturnError(errors.New("db down"))

	if _, err := repo.CountByOwner(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestPostgresTrialRepo_ListRecentByOwner_PassesLimit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresTrialRepo(db)

	now := time.Now()
	mock.ExpectQuery(`ORDER BY t.created_at DESC, t.id DESC\s+LIMIT \$2`).
		WithArgs("user-1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "trial_name", "status", "created_at", "creator_username"}).
			AddRow("t-9", "Newest", "Ongoing", now, "alice"))

	recent, err := repo.ListRecentByOwner(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("ListRecentByOwner error: %v", err)
	}
	if len(recent) != 1 || recent[0].CreatorUsername != "alice" {
		t.Errorf("unexpected recent: %+v", recent)
	}
}

func TestPostgresTrialRepo_ListDurationDaysByOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresTrialRepo(db)

	mock.ExpectQuery(`\(end_date - start_date\)::float8`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"days"}).AddRow(31.0).AddRow(10.0))

	days, err := repo.ListDurationDaysByOwner(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListDurationDaysByOwner error: %v", err)
	}
	if len(days) != 2 || days[0] != 31 {
		t.Errorf("unexpected days: %v", days)
	}
}
