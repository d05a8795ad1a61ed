package trial

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/trialman/internal/model"
	"github.com/hitoshi/trialman/internal/security"
)

func newTestRules() *Rules {
	return NewRules(security.NewTextSanitizer())
}

func strPtr(s string) *string { return &s }

func requireAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr), "expected *model.APIError, got %T (%v)", err, err)
	assert.Equal(t, code, apiErr.Code)
}

func TestValidateNew_DefaultsStatusToPlanned(t *testing.T) {
	draft, err := newTestRules().ValidateNew(Input{
		TrialName: "  Vaccine Study  ",
		StartDate: "2025-01-01",
		EndDate:   "2025-06-30",
	})

	require.NoError(t, err)
	assert.Equal(t, "Vaccine Study", draft.TrialName)
	assert.Equal(t, model.TrialStatusPlanned, draft.Status)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), draft.StartDate)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), draft.EndDate)
}

func TestValidateNew_SameDayRangeAllowed(t *testing.T) {
	_, err := newTestRules().ValidateNew(Input{
		TrialName: "One day",
		StartDate: "2025-03-01",
		EndDate:   "2025-03-01",
	})
	assert.NoError(t, err)
}

func TestValidateNew_Rejections(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		code string
	}{
		{
			name: "missing name",
			in:   Input{StartDate: "2025-01-01", EndDate: "2025-01-02"},
			code: model.ErrCodeValidation,
		},
		{
			name: "whitespace name",
			in:   Input{TrialName: "   ", StartDate: "2025-01-01", EndDate: "2025-01-02"},
			code: model.ErrCodeValidation,
		},
		{
			name: "markup only name",
			in:   Input{TrialName: "<b></b>", StartDate: "2025-01-01", EndDate: "2025-01-02"},
			code: model.ErrCodeValidation,
		},
		{
			name: "missing start date",
			in:   Input{TrialName: "T", EndDate: "2025-01-02"},
			code: model.ErrCodeValidation,
		},
		{
			name: "missing end date",
			in:   Input{TrialName: "T", StartDate: "2025-01-01"},
			code: model.ErrCodeValidation,
		},
		{
			name: "unparseable date",
			in:   Input{TrialName: "T", StartDate: "next week", EndDate: "2025-01-02"},
			code: model.ErrCodeValidation,
		},
		{
			name: "end before start",
			in:   Input{TrialName: "T", StartDate: "2025-06-01", EndDate: "2025-01-01"},
			code: model.ErrCodeInvalidDateRange,
		},
		{
			name: "unknown status",
			in:   Input{TrialName: "T", StartDate: "2025-01-01", EndDate: "2025-01-02", Status: "Cancelled"},
			code: model.ErrCodeInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestRules().ValidateNew(tt.in)
			require.Error(t, err)
			requireAPIErrorCode(t, err, tt.code)
		})
	}
}

func TestValidateNew_SanitizesMarkup(t *testing.T) {
	draft, err := newTestRules().ValidateNew(Input{
		TrialName:   "<script>alert(1)</script>Insulin <b>Trial</b>",
		Description: "Phase <i>II</i> & beyond",
		StartDate:   "2025-01-01",
		EndDate:     "2025-01-02",
	})

	require.NoError(t, err)
	assert.Equal(t, "Insulin Trial", draft.TrialName)
	assert.Equal(t, "Phase II & beyond", draft.Description)
}

func TestValidateNew_AcceptsRFC3339Dates(t *testing.T) {
	draft, err := newTestRules().ValidateNew(Input{
		TrialName: "T",
		StartDate: "2025-01-01T00:00:00Z",
		EndDate:   "2025-01-31T12:30:00Z",
		Status:    "Ongoing",
	})

	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), draft.EndDate)
	assert.Equal(t, model.TrialStatusOngoing, draft.Status)
}

func TestValidatePatch_EmptyValuesAreIgnored(t *testing.T) {
	changes, err := newTestRules().ValidatePatch(Patch{
		TrialName: strPtr("   "),
		StartDate: strPtr(""),
		EndDate:   strPtr(""),
		Status:    strPtr(""),
	})

	require.NoError(t, err)
	assert.Nil(t, changes.TrialName)
	assert.Nil(t, changes.StartDate)
	assert.Nil(t, changes.EndDate)
	assert.Nil(t, changes.Status)
	assert.Nil(t, changes.Description)
}

func TestValidatePatch_EmptyDescriptionOverwrites(t *testing.T) {
	changes, err := newTestRules().ValidatePatch(Patch{Description: strPtr("")})

	require.NoError(t, err)
	require.NotNil(t, changes.Description)
	assert.Equal(t, "", *changes.Description)
}

func TestValidatePatch_BothDatesChecked(t *testing.T) {
	_, err := newTestRules().ValidatePatch(Patch{
		StartDate: strPtr("2025-05-01"),
		EndDate:   strPtr("2025-04-01"),
	})
	requireAPIErrorCode(t, err, model.ErrCodeInvalidDateRange)
}

func TestValidatePatch_SingleDateDeferredToStore(t *testing.T) {
	changes, err := newTestRules().ValidatePatch(Patch{EndDate: strPtr("1999-01-01")})

	require.NoError(t, err)
	require.NotNil(t, changes.EndDate)
	assert.Equal(t, time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), *changes.EndDate)
}

func TestValidatePatch_InvalidStatus(t *testing.T) {
	_, err := newTestRules().ValidatePatch(Patch{Status: strPtr("planned")})
	requireAPIErrorCode(t, err, model.ErrCodeInvalidStatus)
}

func TestValidatePatch_InvalidDate(t *testing.T) {
	_, err := newTestRules().ValidatePatch(Patch{StartDate: strPtr("2025-13-45")})
	requireAPIErrorCode(t, err, model.ErrCodeValidation)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2025-02-28", want: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{in: " 2025-02-28 ", want: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{in: "2025-02-28T23:00:00-02:00", want: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: "28/02/2025", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestMerge(t *testing.T) {
	current := model.Trial{
		ID:          "t-1",
		TrialName:   "Original",
		Description: "notes",
		StartDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Status:      model.TrialStatusPlanned,
		CreatedBy:   "alice",
	}
	empty := ""
	earlyEnd := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	laterStart := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	done := model.TrialStatusCompleted
	bogus := model.TrialStatus("Paused")

	t.Run("no changes keeps record", func(t *testing.T) {
		merged, err := Merge(current, model.TrialChanges{})
		require.NoError(t, err)
		assert.Equal(t, current, merged)
	})

	t.Run("description cleared and status set", func(t *testing.T) {
		merged, err := Merge(current, model.TrialChanges{Description: &empty, Status: &done, StartDate: &laterStart})
		require.NoError(t, err)
		assert.Equal(t, "", merged.Description)
		assert.Equal(t, model.TrialStatusCompleted, merged.Status)
		assert.Equal(t, laterStart, merged.StartDate)
		assert.Equal(t, "Original", merged.TrialName)
		assert.Equal(t, "alice", merged.CreatedBy)
	})

	t.Run("single date checked against stored date", func(t *testing.T) {
		merged, err := Merge(current, model.TrialChanges{EndDate: &earlyEnd})
		requireAPIErrorCode(t, err, model.ErrCodeInvalidDateRange)
		assert.Equal(t, current, merged)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := Merge(current, model.TrialChanges{Status: &bogus})
		requireAPIErrorCode(t, err, model.ErrCodeInvalidStatus)
	})
}
