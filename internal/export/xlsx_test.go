package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hitoshi/trialman/internal/model"
)

func readRows(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestWriteTrials_HeaderAndRows(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	trials := []model.TrialWithCreator{
		{
			Trial: model.Trial{
				ID:          "t-1",
				TrialName:   "Vaccine Study",
				Description: "Phase II",
				StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				EndDate:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
				Status:      model.TrialStatusOngoing,
				CreatedBy:   "user-1",
				CreatedAt:   created,
				UpdatedAt:   created,
			},
			CreatorUsername: "alice",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTrials(&buf, trials))

	rows := readRows(t, &buf)
	require.Len(t, rows, 2)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{
		"t-1", "Vaccine Study", "Phase II", "2025-01-01", "2025-06-30",
		"Ongoing", "alice", "2025-01-02 03:04:05", "2025-01-02 03:04:05",
	}, rows[1])
}

func TestWriteTrials_EmptyListWritesHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTrials(&buf, nil))

	rows := readRows(t, &buf)
	require.Len(t, rows, 1)
	assert.Equal(t, "Trial Name", rows[0][1])
}
