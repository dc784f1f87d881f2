// Package docstore 把借用申请存到 MongoDB
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/models"
)

const Collection = "borrowRequests"

type Store struct {
	coll *mongo.Collection // 主节点：写入和单条读取
	list *mongo.Collection // 列表允许读落后的从节点
}

var _ lifecycle.Store = (*Store)(nil)

// Connect 连接 uri 并 ping 主节点
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetTimeout(5*time.Second))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func New(db *mongo.Database) *Store {
	coll := db.Collection(Collection, options.Collection().SetReadPreference(readpref.Primary()))
	list, err := coll.Clone(options.Collection().SetReadPreference(readpref.SecondaryPreferred()))
	if err != nil {
		list = coll
	}
	return &Store{coll: coll, list: list}
}

// NewWithCollection 所有操作都用 c
func NewWithCollection(c *mongo.Collection) *Store {
	return &Store{coll: c, list: c}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "requesterId", Value: 1}, {Key: "borrowDate", Value: -1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "teacherId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return mapErr(err)
}

func (s *Store) CreateRequest(ctx context.Context, r *models.BorrowRequest) error {
	_, err := s.coll.InsertOne(ctx, r)
	return mapErr(err)
}

func (s *Store) GetRequest(ctx context.Context, id string) (models.BorrowRequest, error) {
	var r models.BorrowRequest
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return models.BorrowRequest{}, mapErr(err)
	}
	return r, nil
}

func filterFor(q lifecycle.Query) bson.M {
	f := bson.M{}
	if q.RequesterID != "" {
		f["requesterId"] = q.RequesterID
	}
	if q.TeacherID != "" {
		f["teacherId"] = q.TeacherID
	}
	if q.AdminStage {
		f["$or"] = bson.A{
			bson.M{"teacherId": ""},
			bson.M{"teacherApprovedAt": bson.M{"$ne": nil}},
		}
	}
	if len(q.Statuses) > 0 {
		f["status"] = bson.M{"$in": q.Statuses}
	}
	return f
}

func sortFor(o lifecycle.Order) bson.D {
	if o == lifecycle.OrderBorrowDateDesc {
		return bson.D{{Key: "borrowDate", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}
}

func (s *Store) QueryRequests(ctx context.Context, q lifecycle.Query) ([]models.BorrowRequest, error) {
	opts := options.Find().SetSort(sortFor(q.Order))
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := s.list.Find(ctx, filterFor(q), opts)
	if err != nil {
		return nil, mapErr(err)
	}
	defer cur.Close(ctx)

	out := []models.BorrowRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

// UpdateRequest 按 {_id, status} 做 FindOneAndUpdate
// 没匹配到时再按 _id 查一次，区分冲突和记录不存在
func (s *Store) UpdateRequest(ctx context.Context, r models.BorrowRequest, expected models.Status) (models.BorrowRequest, error) {
	set, err := setDoc(r)
	if err != nil {
		return models.BorrowRequest{}, err
	}
	var out models.BorrowRequest
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": r.ID, "status": expected},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.BorrowRequest{}, mapErr(err)
	}

	var cur struct {
		Status models.Status `bson:"status"`
	}
	err = s.coll.FindOne(ctx, bson.M{"_id": r.ID}, options.FindOne().SetProjection(bson.M{"status": 1})).Decode(&cur)
	if err != nil {
		return models.BorrowRequest{}, mapErr(err)
	}
	return models.BorrowRequest{}, fmt.Errorf("%w: status is %s, expected %s", lifecycle.ErrConflict, cur.Status, expected)
}

// setDoc 把 r 转成不含不可变字段的 $set 文档
func setDoc(r models.BorrowRequest) (bson.M, error) {
	raw, err := bson.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	delete(m, "_id")
	delete(m, "requesterId")
	delete(m, "createdAt")
	return m, nil
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return lifecycle.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return fmt.Errorf("%w: %v", lifecycle.ErrTransient, err)
	}
	return err
}
