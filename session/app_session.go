package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry 记录有效会话（按 JWT 的 jti），用于登出和删号时撤销
type Registry interface {
	Create(ctx context.Context, id, userID string, expiresAt time.Time) error
	Get(ctx context.Context, id string) (*AppSession, error)
	Delete(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	CountForUser(ctx context.Context, userID string) (int64, error)
}

// AppSessionStore 会话存在 Redis：sess 键随 token 一起过期，user 集合做反查
type AppSessionStore struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ Registry = (*AppSessionStore)(nil)

func NewAppSessionStore(rdb redis.UniversalClient, prefix string) *AppSessionStore {
	if prefix == "" {
		prefix = "lsb"
	}
	return &AppSessionStore{rdb: rdb, prefix: prefix}
}

type AppSession struct {
	UserID    string `json:"uid"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func (s *AppSessionStore) sessKey(id string) string  { return fmt.Sprintf("%s:sess:%s", s.prefix, id) }
func (s *AppSessionStore) userKey(uid string) string { return fmt.Sprintf("%s:user_sessions:%s", s.prefix, uid) }

func (s *AppSessionStore) Create(ctx context.Context, id, userID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", id)
	}
	b, err := json.Marshal(AppSession{
		UserID:    userID,
		IssuedAt:  time.Now().Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return err
	}

	// 集合里按过期时间打分，方便清掉已过期的 jti
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.sessKey(id), b, ttl)
	pipe.ZAdd(ctx, s.userKey(userID), redis.Z{Score: float64(expiresAt.Unix()), Member: id})
	pipe.Expire(ctx, s.userKey(userID), ttl) // 所有会话时长相同，最新的最晚过期
	_, err = pipe.Exec(ctx)
	return err
}

func (s *AppSessionStore) Get(ctx context.Context, id string) (*AppSession, error) {
	b, err := s.rdb.Get(ctx, s.sessKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var as AppSession
	if err := json.Unmarshal(b, &as); err != nil {
		return nil, err
	}
	return &as, nil
}

func (s *AppSessionStore) Delete(ctx context.Context, id string) error {
	as, err := s.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.sessKey(id))
	pipe.ZRem(ctx, s.userKey(as.UserID), id)
	_, err = pipe.Exec(ctx)
	return err
}

// 删除用户或改角色时，撤销该用户的所有会话
func (s *AppSessionStore) RevokeAllForUser(ctx context.Context, userID string) error {
	ids, err := s.rdb.ZRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, s.sessKey(sid))
	}
	pipe.Del(ctx, s.userKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}

// CountForUser 当前未过期的会话数
func (s *AppSessionStore) CountForUser(ctx context.Context, userID string) (int64, error) {
	now := fmt.Sprint(time.Now().Unix())
	pipe := s.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, s.userKey(userID), "-inf", now)
	n := pipe.ZCard(ctx, s.userKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return n.Val(), nil
}
