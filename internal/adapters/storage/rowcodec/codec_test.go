package rowcodec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hylla/metier/internal/domain"
)

func TestTablesCoverEveryCollection(t *testing.T) {
	for _, c := range domain.Collections() {
		table, err := Lookup(c)
		require.NoError(t, err, c)
		assert.Equal(t, "id", table.Columns[0].Name, c)
	}
	_, err := Lookup("widgets")
	assert.ErrorIs(t, err, domain.ErrInvalidCollection)
}

func TestTaskRowKeepsColumnOrder(t *testing.T) {
	table, err := Lookup(domain.CollectionTasks)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"id", "projectId", "taskTypeId", "title", "phases", "link", "priority", "delayReason"},
		table.ColumnNames())

	task := domain.Task{
		ID: "t1", ProjectID: "p1", TaskTypeID: "tt1", Title: "Landing", Priority: domain.PriorityHigh,
		Phases: []domain.TaskPhase{{ID: "ph1", TeamID: "d1", UserID: "u1", StartDate: "2026-03-09", EndDate: "2026-03-11", Status: domain.StatusStarted, Order: 1}},
	}
	rec, err := domain.EncodeRecord(task)
	require.NoError(t, err)
	rec["unknownColumn"] = "dropped"

	cells, err := table.Encode(rec)
	require.NoError(t, err)
	require.Len(t, cells, 8)
	assert.Equal(t, "Landing", cells[3])
	assert.Contains(t, cells[4], `"teamId":"d1"`)
	assert.Equal(t, "", cells[5], "absent link is an empty cell")

	back, err := table.Decode(cells)
	require.NoError(t, err)
	assert.NotContains(t, back, "unknownColumn")
	assert.NotContains(t, back, "link")

	decoded, err := domain.DecodeRecord[domain.Task](back)
	require.NoError(t, err)
	assert.Equal(t, task, decoded)
}

func TestUserNumberAndListCells(t *testing.T) {
	table, err := Lookup(domain.CollectionUsers)
	require.NoError(t, err)
	capacity := 3
	user := domain.User{ID: "u1", Name: "Ann", DepartmentID: "d1", Role: domain.RoleUser, Status: domain.UserActive, Skills: []string{"go", "sql"}, Capacity: &capacity}
	rec, err := domain.EncodeRecord(user)
	require.NoError(t, err)

	normalized, err := table.Normalize(rec)
	require.NoError(t, err)
	got, err := domain.DecodeRecord[domain.User](normalized)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = table.Decode([]string{"u1", "Ann", "d1", "user", "active", "", "lots"})
	assert.ErrorIs(t, err, ErrMalformedCell)
}

func TestActivityTimestampRoundTrip(t *testing.T) {
	table, err := Lookup(domain.CollectionActivityLog)
	require.NoError(t, err)
	entry := domain.ActivityLogEntry{
		ID: "log_1", Timestamp: time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC),
		EntityType: domain.EntityTask, EntityID: "t1", Action: domain.ActionCreate, NewValue: "Landing",
	}
	rec, err := domain.EncodeRecord(entry)
	require.NoError(t, err)
	normalized, err := table.Normalize(rec)
	require.NoError(t, err)
	got, err := domain.DecodeRecord[domain.ActivityLogEntry](normalized)
	require.NoError(t, err)
	assert.True(t, entry.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, entry.NewValue, got.NewValue)
}

func TestEncodeRejectsMissingIDAndDecodeChecksWidth(t *testing.T) {
	table, err := Lookup(domain.CollectionDepartments)
	require.NoError(t, err)
	_, err = table.Encode(domain.Record{"name": "Design"})
	assert.ErrorIs(t, err, ErrMissingID)
	_, err = table.Decode([]string{"d1"})
	assert.ErrorIs(t, err, ErrRowWidth)
}
