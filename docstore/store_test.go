package docstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"lab_borrow_portal/docstore"
	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/models"
)

func requestDoc(id string, st models.Status) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "requesterId", Value: "stu-1"},
		{Key: "items", Value: bson.A{bson.D{{Key: "id", Value: "it-1"}, {Key: "name", Value: "Soldering iron"}, {Key: "quantity", Value: 2}}}},
		{Key: "borrowDate", Value: "2026-03-10"},
		{Key: "startTime", Value: "10:00"},
		{Key: "endTime", Value: "12:00"},
		{Key: "reason", Value: "project"},
		{Key: "teacherId", Value: ""},
		{Key: "status", Value: string(st)},
		{Key: "teacherApprovedAt", Value: nil},
		{Key: "createdAt", Value: time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)},
	}
}

func TestStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get decodes the record", func(mt *mtest.T) {
		s := docstore.NewWithCollection(mt.Coll)
		ns := fmt.Sprintf("%s.%s", mt.DB.Name(), mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, requestDoc("r1", models.StatusPendingAdmin)))

		r, err := s.GetRequest(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "r1", r.ID)
		assert.Equal(t, models.StatusPendingAdmin, r.Status)
		require.Len(t, r.Items, 1)
		assert.Equal(t, 2, r.Items[0].Quantity)
		assert.Nil(t, r.TeacherApprovedAt)
	})

	mt.Run("get missing is not found", func(mt *mtest.T) {
		s := docstore.NewWithCollection(mt.Coll)
		ns := fmt.Sprintf("%s.%s", mt.DB.Name(), mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := s.GetRequest(ctx, "nope")
		assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	})

	mt.Run("create inserts", func(mt *mtest.T) {
		s := docstore.NewWithCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		r := models.BorrowRequest{ID: "r1", RequesterID: "stu-1", Status: models.StatusPendingAdmin}
		require.NoError(t, s.CreateRequest(ctx, &r))
	})

	mt.Run("update returns the committed record", func(mt *mtest.T) {
		s := docstore.NewWithCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: requestDoc("r1", models.StatusApproved)}))

		got, err := s.UpdateRequest(ctx, models.BorrowRequest{ID: "r1", Status: models.StatusApproved}, models.StatusPendingAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, got.Status)
	})

	mt.Run("update on advanced status is a conflict", func(mt *mtest.T) {
		s := docstore.NewWithCollection(mt.Coll)
		ns := fmt.Sprintf("%s.%s", mt.DB.Name(), mt.Coll.Name())
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "_id", Value: "r1"}, {Key: "status", Value: "Approved"}}),
		)

		_, err := s.UpdateRequest(ctx, models.BorrowRequest{ID: "r1", Status: models.StatusDenied}, models.StatusPendingAdmin)
		assert.ErrorIs(t, err, lifecycle.ErrConflict)
	})

	mt.Run("update on missing record is not found", func(mt *mtest.T) {
		s := docstore.NewWithCollection(mt.Coll)
		ns := fmt.Sprintf("%s.%s", mt.DB.Name(), mt.Coll.Name())
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		_, err := s.UpdateRequest(ctx, models.BorrowRequest{ID: "gone", Status: models.StatusApproved}, models.StatusPendingAdmin)
		assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	})

	mt.Run("query decodes every row", func(mt *mtest.T) {
		s := docstore.NewWithCollection(mt.Coll)
		ns := fmt.Sprintf("%s.%s", mt.DB.Name(), mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			requestDoc("r2", models.StatusPendingAdmin),
			requestDoc("r1", models.StatusApproved),
		))

		got, err := s.QueryRequests(ctx, lifecycle.Query{AdminStage: true, Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "r2", got[0].ID)
	})

	mt.Run("delete of missing record is not found", func(mt *mtest.T) {
		s := docstore.NewWithCollection(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		assert.ErrorIs(t, s.DeleteRequest(ctx, "nope"), lifecycle.ErrNotFound)

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		assert.NoError(t, s.DeleteRequest(ctx, "r1"))
	})

	mt.Run("manager over mongo rejects a stale approval", func(mt *mtest.T) {
		s := docstore.NewWithCollection(mt.Coll)
		ns := fmt.Sprintf("%s.%s", mt.DB.Name(), mt.Coll.Name())
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, requestDoc("r1", models.StatusPendingAdmin)),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "_id", Value: "r1"}, {Key: "status", Value: "Denied"}}),
		)
		m, err := lifecycle.NewManager(s)
		require.NoError(t, err)

		_, err = m.ApplyTransition(ctx, "r1", lifecycle.EventApprove, lifecycle.Actor{ID: "adm", Role: models.RoleAdmin})
		assert.ErrorIs(t, err, lifecycle.ErrConflict)
	})
}
