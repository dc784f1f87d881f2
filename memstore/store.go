// Package memstore 把借用申请存在进程内存里
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/models"
)

type Store struct {
	mu   sync.RWMutex
	rows map[string]models.BorrowRequest
}

func New() *Store {
	return &Store{rows: map[string]models.BorrowRequest{}}
}

var _ lifecycle.Store = (*Store)(nil)

func (s *Store) CreateRequest(ctx context.Context, r *models.BorrowRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[r.ID]; ok {
		return fmt.Errorf("request %s already exists", r.ID)
	}
	s.rows[r.ID] = r.Clone()
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (models.BorrowRequest, error) {
	if err := ctx.Err(); err != nil {
		return models.BorrowRequest{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[id]
	if !ok {
		return models.BorrowRequest{}, lifecycle.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *Store) QueryRequests(ctx context.Context, q lifecycle.Query) ([]models.BorrowRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]models.BorrowRequest, 0, len(s.rows))
	for _, r := range s.rows {
		if q.Match(r) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return q.Less(out[i], out[j]) })

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []models.BorrowRequest{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// UpdateRequest 状态仍等于 expected 时替换记录
func (s *Store) UpdateRequest(ctx context.Context, r models.BorrowRequest, expected models.Status) (models.BorrowRequest, error) {
	if err := ctx.Err(); err != nil {
		return models.BorrowRequest{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[r.ID]
	if !ok {
		return models.BorrowRequest{}, lifecycle.ErrNotFound
	}
	if cur.Status != expected {
		return models.BorrowRequest{}, fmt.Errorf("%w: status is %s, expected %s", lifecycle.ErrConflict, cur.Status, expected)
	}
	// 申请人和创建时间不变
	r.RequesterID = cur.RequesterID
	r.CreatedAt = cur.CreatedAt
	s.rows[r.ID] = r.Clone()
	return r.Clone(), nil
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return lifecycle.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
