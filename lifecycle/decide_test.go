package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/models"
)

var (
	student      = lifecycle.Actor{ID: "stu-1", Role: models.RoleStudent, Name: "Ana Student"}
	otherStudent = lifecycle.Actor{ID: "stu-2", Role: models.RoleStudent, Name: "Ben Student"}
	teacher      = lifecycle.Actor{ID: "tch-1", Role: models.RoleTeacher, Name: "Dr. Cruz"}
	otherTeacher = lifecycle.Actor{ID: "tch-2", Role: models.RoleTeacher, Name: "Dr. Diaz"}
	assistant    = lifecycle.Actor{ID: "lab-1", Role: models.RoleLabAssistant, Name: "Eli Assistant"}
	admin        = lifecycle.Actor{ID: "adm-1", Role: models.RoleAdmin, Name: "Fay Admin"}

	allActors = []lifecycle.Actor{student, otherStudent, teacher, otherTeacher, assistant, admin}
	allEvents = []lifecycle.Event{lifecycle.EventApprove, lifecycle.EventDeny, lifecycle.EventReturn, lifecycle.EventCancel}
)

var t0 = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func requestAt(st models.Status, withTeacher bool) models.BorrowRequest {
	r := models.BorrowRequest{
		ID:          "req-1",
		RequesterID: student.ID,
		Items:       []models.RequestItem{{ItemID: "it-1", Name: "Multimeter", Quantity: 2}},
		BorrowDate:  "2026-03-10",
		StartTime:   "10:00",
		EndTime:     "14:00",
		Reason:      "lab 3",
		Status:      st,
		CreatedAt:   t0,
	}
	if withTeacher {
		r.TeacherID = teacher.ID
		r.TeacherName = teacher.Name
	}
	return r
}

// timestamps must agree with the status in both directions
func assertTimestampsConsistent(t *testing.T, r models.BorrowRequest) {
	t.Helper()
	assert.Equal(t, r.Status == models.StatusReturned, r.ReturnTime != nil, "returnTime vs %s", r.Status)
	decided := r.Status == models.StatusApproved || r.Status == models.StatusDenied
	assert.Equal(t, decided, r.DecisionTime != nil, "decisionTime vs %s", r.Status)
}

func Test_Decide_TerminalStatesRejectEveryEvent(t *testing.T) {
	for _, st := range []models.Status{models.StatusReturned, models.StatusDenied, models.StatusCancelled} {
		for _, ev := range allEvents {
			for _, a := range allActors {
				_, err := lifecycle.Decide(requestAt(st, true), a, ev, t0, time.UTC)
				assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "%s/%s/%s", st, ev, a.Role)
			}
		}
	}
}

func Test_Decide_IllegalPairsAreInvalidTransition(t *testing.T) {
	cases := []struct {
		st models.Status
		ev lifecycle.Event
	}{
		{models.StatusPendingTeacher, lifecycle.EventReturn},
		{models.StatusPendingAdmin, lifecycle.EventReturn},
		{models.StatusApproved, lifecycle.EventApprove},
		{models.StatusApproved, lifecycle.EventDeny},
		{models.StatusApproved, lifecycle.EventCancel},
	}
	for _, c := range cases {
		// admin would be allowed almost anything, so the error must come from the pair
		_, err := lifecycle.Decide(requestAt(c.st, true), admin, c.ev, t0, time.UTC)
		assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "%s/%s", c.st, c.ev)
	}
}

func Test_Decide_TeacherStage(t *testing.T) {
	r := requestAt(models.StatusPendingTeacher, true)

	next, err := lifecycle.Decide(r, teacher, lifecycle.EventApprove, t0, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingAdmin, next.Status)
	require.NotNil(t, next.TeacherApprovedAt)
	assert.Equal(t, t0, *next.TeacherApprovedAt)
	assert.Equal(t, teacher.Name, next.TeacherApprovedBy)
	assertTimestampsConsistent(t, next)
	assert.True(t, next.ReachedAdminStage())

	_, err = lifecycle.Decide(r, otherTeacher, lifecycle.EventApprove, t0, time.UTC)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)
	_, err = lifecycle.Decide(r, otherTeacher, lifecycle.EventDeny, t0, time.UTC)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)
	_, err = lifecycle.Decide(r, assistant, lifecycle.EventApprove, t0, time.UTC)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	byAdmin, err := lifecycle.Decide(r, admin, lifecycle.EventDeny, t0, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDenied, byAdmin.Status)
	assertTimestampsConsistent(t, byAdmin)
}

func Test_Decide_AdminStage(t *testing.T) {
	r := requestAt(models.StatusPendingAdmin, false)

	for _, a := range []lifecycle.Actor{admin, assistant} {
		next, err := lifecycle.Decide(r, a, lifecycle.EventApprove, t0, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, next.Status)
		assert.Equal(t, a.Name, next.AdminApprovedBy)
		assertTimestampsConsistent(t, next)

		denied, err := lifecycle.Decide(r, a, lifecycle.EventDeny, t0, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, models.StatusDenied, denied.Status)
		assertTimestampsConsistent(t, denied)
	}

	for _, a := range []lifecycle.Actor{teacher, student} {
		_, err := lifecycle.Decide(r, a, lifecycle.EventApprove, t0, time.UTC)
		assert.ErrorIs(t, err, lifecycle.ErrForbidden, a.Role)
	}
}

func Test_Decide_Cancel_OnlyOwningStudent(t *testing.T) {
	for _, st := range []models.Status{models.StatusPendingTeacher, models.StatusPendingAdmin} {
		r := requestAt(st, true)

		next, err := lifecycle.Decide(r, student, lifecycle.EventCancel, t0, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, next.Status)
		assertTimestampsConsistent(t, next)

		for _, a := range []lifecycle.Actor{otherStudent, teacher, assistant, admin} {
			_, err := lifecycle.Decide(r, a, lifecycle.EventCancel, t0, time.UTC)
			assert.ErrorIs(t, err, lifecycle.ErrForbidden, a.ID)
		}
	}
}

func Test_Decide_Return(t *testing.T) {
	approved, err := lifecycle.Decide(requestAt(models.StatusPendingAdmin, false), admin, lifecycle.EventApprove, t0, time.UTC)
	require.NoError(t, err)

	_, err = lifecycle.Decide(approved, student, lifecycle.EventReturn, t0, time.UTC)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	onTime := time.Date(2026, 3, 10, 13, 30, 0, 0, time.UTC)
	for _, a := range []lifecycle.Actor{admin, assistant, teacher} {
		next, err := lifecycle.Decide(approved, a, lifecycle.EventReturn, onTime, time.UTC)
		require.NoError(t, err)
		assert.Equal(t, models.StatusReturned, next.Status)
		assert.False(t, next.IsLate)
		assert.Zero(t, next.DaysLate)
		assert.Equal(t, a.Name, next.ReturnedBy)
		assert.NotNil(t, next.AdminApprovedAt)
		assertTimestampsConsistent(t, next)
	}
}

func Test_Decide_LatenessScenario(t *testing.T) {
	approved := requestAt(models.StatusApproved, false)
	decided := t0
	approved.DecisionTime = &decided

	sameDay, err := lifecycle.Decide(approved, assistant, lifecycle.EventReturn, time.Date(2026, 3, 10, 14, 31, 0, 0, time.UTC), time.UTC)
	require.NoError(t, err)
	assert.True(t, sameDay.IsLate)
	assert.Equal(t, 0, sameDay.DaysLate)
	assert.Equal(t, 0, sameDay.HoursLate)

	twoDays, err := lifecycle.Decide(approved, assistant, lifecycle.EventReturn, time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC), time.UTC)
	require.NoError(t, err)
	assert.True(t, twoDays.IsLate)
	assert.Equal(t, 2, twoDays.DaysLate)
	assert.Equal(t, 43, twoDays.HoursLate)
}

func Test_Decide_DoesNotMutateInput(t *testing.T) {
	r := requestAt(models.StatusPendingAdmin, false)
	_, err := lifecycle.Decide(r, admin, lifecycle.EventApprove, t0, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingAdmin, r.Status)
	assert.Nil(t, r.DecisionTime)
}

func Test_Decide_LegacyPendingAlias(t *testing.T) {
	r := requestAt("Pending", false)
	next, err := lifecycle.Decide(r, assistant, lifecycle.EventApprove, t0, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, next.Status)
}

func Test_Decide_UnknownStatusRejected(t *testing.T) {
	_, err := lifecycle.Decide(requestAt("Lost", false), admin, lifecycle.EventApprove, t0, time.UTC)
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
}

func Test_CanTransition_AndAllowedEvents(t *testing.T) {
	r := requestAt(models.StatusPendingTeacher, true)
	assert.True(t, lifecycle.CanTransition(r, teacher, lifecycle.EventApprove))
	assert.False(t, lifecycle.CanTransition(r, otherTeacher, lifecycle.EventApprove))
	assert.False(t, lifecycle.CanTransition(r, lifecycle.Actor{}, lifecycle.EventApprove))

	assert.Equal(t, []lifecycle.Event{lifecycle.EventApprove, lifecycle.EventDeny}, lifecycle.AllowedEvents(r, teacher))
	assert.Equal(t, []lifecycle.Event{lifecycle.EventCancel}, lifecycle.AllowedEvents(r, student))
	assert.Empty(t, lifecycle.AllowedEvents(requestAt(models.StatusReturned, true), admin))
}

func Test_ParseEvent(t *testing.T) {
	ev, err := lifecycle.ParseEvent(" Approve ")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.EventApprove, ev)

	_, err = lifecycle.ParseEvent("Approved")
	assert.ErrorIs(t, err, lifecycle.ErrValidation)
}
