package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/models"
)

func created(id string, at time.Time) models.BorrowRequest {
	return models.BorrowRequest{ID: id, CreatedAt: at, Status: models.StatusPendingAdmin}
}

func Test_GroupByCreationDay_ThreeBuckets(t *testing.T) {
	now := time.Date(2026, 3, 18, 16, 0, 0, 0, time.UTC)
	reqs := []models.BorrowRequest{
		created("old", time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)),
		created("yesterday", time.Date(2026, 3, 17, 9, 0, 0, 0, time.UTC)),
		created("today", time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)),
	}

	groups := lifecycle.GroupByCreationDay(reqs, now, time.UTC)
	require.Len(t, groups, 3)
	assert.Equal(t, "Today", groups[0].Label)
	assert.Equal(t, "Yesterday", groups[1].Label)
	assert.Equal(t, "04/03, WED", groups[2].Label)
	assert.Equal(t, "today", groups[0].Requests[0].ID)
	assert.Equal(t, "old", groups[2].Requests[0].ID)
	assert.Equal(t, now, groups[0].Anchor)
	assert.Equal(t, now.Add(-24*time.Hour), groups[1].Anchor)
}

func Test_GroupByCreationDay_SortsWithinAndAcrossBuckets(t *testing.T) {
	now := time.Date(2026, 3, 18, 16, 0, 0, 0, time.UTC)
	reqs := []models.BorrowRequest{
		created("a", time.Date(2026, 3, 18, 8, 0, 0, 0, time.UTC)),
		created("b", time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC)),
		created("c", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		created("d", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
		created("e", time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)),
		{ID: "no-date"},
	}

	groups := lifecycle.GroupByCreationDay(reqs, now, time.UTC)
	require.Len(t, groups, 3)

	var labels []string
	for _, g := range groups {
		labels = append(labels, g.Label)
	}
	assert.Equal(t, []string{"Today", "10/03, TUE", "01/03, SUN"}, labels)
	assert.Equal(t, "b", groups[0].Requests[0].ID)
	assert.Equal(t, "a", groups[0].Requests[1].ID)
	assert.Equal(t, "e", groups[1].Requests[0].ID)
	assert.Equal(t, time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC), groups[1].Anchor)
}

func Test_DayLabel_TimeZone(t *testing.T) {
	loc := time.FixedZone("PHT", 8*3600)
	now := time.Date(2026, 3, 18, 2, 0, 0, 0, loc)
	// 17:00 UTC on the 17th is 01:00 on the 18th in loc
	assert.Equal(t, "Today", lifecycle.DayLabel(time.Date(2026, 3, 17, 17, 0, 0, 0, time.UTC), now, loc))
	assert.Equal(t, "Yesterday", lifecycle.DayLabel(time.Date(2026, 3, 17, 3, 0, 0, 0, time.UTC), now, loc))
}

func Test_GroupByCreationDay_Empty(t *testing.T) {
	assert.Empty(t, lifecycle.GroupByCreationDay(nil, time.Now(), time.UTC))
}
