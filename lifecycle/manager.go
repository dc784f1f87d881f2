package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"lab_borrow_portal/models"
)

const defaultPageSize = 100

// Manager 管理借用申请的状态：校验新申请，通过存储的条件写入执行状态转换，提供各种列表
type Manager struct {
	store Store
	now   func() time.Time
	loc   *time.Location
	hours LabHours
	newID func() string

	notifier Notifier
	audit    AuditRecorder
	late     LateReturnRecorder
	profiles ProfileLookup

	logger   *slog.Logger
	retry    retryConfig
	pageSize int
	obs      instruments
}

type Option func(*Manager) error

func WithClock(now func() time.Time) Option {
	return func(m *Manager) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		m.now = now
		return nil
	}
}

func WithLocation(loc *time.Location) Option {
	return func(m *Manager) error {
		if loc == nil {
			return errors.New("location must not be nil")
		}
		m.loc = loc
		return nil
	}
}

func WithLabHours(h LabHours) Option {
	return func(m *Manager) error {
		if h.Close <= h.Open {
			return errors.New("lab close must be after open")
		}
		m.hours = h
		return nil
	}
}

func WithIDGenerator(f func() string) Option {
	return func(m *Manager) error {
		m.newID = f
		return nil
	}
}

func WithNotifier(n Notifier) Option {
	return func(m *Manager) error {
		m.notifier = n
		return nil
	}
}

func WithAuditRecorder(a AuditRecorder) Option {
	return func(m *Manager) error {
		m.audit = a
		return nil
	}
}

func WithLateReturnRecorder(l LateReturnRecorder) Option {
	return func(m *Manager) error {
		m.late = l
		return nil
	}
}

func WithProfileLookup(p ProfileLookup) Option {
	return func(m *Manager) error {
		m.profiles = p
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) error {
		if l == nil {
			return errors.New("logger must not be nil")
		}
		m.logger = l
		return nil
	}
}

func WithRetry(opts ...RetryOption) Option {
	return func(m *Manager) error {
		for _, o := range opts {
			if err := o(&m.retry); err != nil {
				return err
			}
		}
		return nil
	}
}

func WithPageSize(n int) Option {
	return func(m *Manager) error {
		if n <= 0 {
			return errors.New("page size must be positive")
		}
		m.pageSize = n
		return nil
	}
}

func WithTelemetry(mp metric.MeterProvider, tp trace.TracerProvider) Option {
	return func(m *Manager) error {
		m.obs = newInstruments(mp, tp)
		return nil
	}
}

func NewManager(store Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store must not be nil")
	}
	m := &Manager{
		store:    store,
		now:      time.Now,
		loc:      time.UTC,
		hours:    DefaultLabHours(),
		newID:    uuid.NewString,
		logger:   slog.Default(),
		retry:    defaultRetryConfig(),
		pageSize: defaultPageSize,
		obs:      newInstruments(nil, nil),
	}
	for _, o := range opts {
		if err := o(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) Location() *time.Location { return m.loc }

func (m *Manager) Now() time.Time { return m.now().In(m.loc) }

func (m *Manager) LabHours() LabHours { return m.hours }

func (m *Manager) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	res, err := retry(ctx, m.retry, fn)
	if res.Attempts > 1 {
		m.logger.WarnContext(ctx, "store call retried",
			slog.Int("attempts", res.Attempts),
			slog.Duration("total_delay", res.TotalDelay),
			slog.Any("error", err))
	}
	return err
}

func (m *Manager) load(ctx context.Context, id string) (models.BorrowRequest, error) {
	var r models.BorrowRequest
	err := m.withRetry(ctx, func(ctx context.Context) error {
		var err error
		r, err = m.store.GetRequest(ctx, id)
		return err
	})
	return r, err
}

// CreateRequest 校验学生提交的载荷并保存到第一个待审阶段
// 指定了老师就是 Pending-Teacher，否则是 Pending-Admin
func (m *Manager) CreateRequest(ctx context.Context, a Actor, p CreatePayload) (id string, err error) {
	ctx, span := m.obs.start(ctx, "lifecycle.CreateRequest", attribute.String("actor.role", string(a.Role)))
	defer func() { endSpan(span, err) }()

	if a.IsZero() {
		return "", ErrUnauthenticated
	}
	if a.Role != models.RoleStudent {
		return "", fmt.Errorf("%w: only students submit borrow requests", ErrForbidden)
	}

	now := m.Now()
	s, err := validatePayload(p, m.hours, now, m.loc)
	if err != nil {
		return "", err
	}

	req := models.BorrowRequest{
		ID:            m.newID(),
		RequesterID:   a.ID,
		RequesterName: a.label(),
		Items:         s.items,
		BorrowDate:    s.date,
		StartTime:     s.start.String(),
		EndTime:       s.end.String(),
		TimeRange:     TimeRange(s.start, s.end),
		Reason:        s.reason,
		GroupMembers:  s.members,
		Status:        models.StatusPendingAdmin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.teacherID != "" {
		req.TeacherID = s.teacherID
		req.TeacherName = s.teacherName
		req.Status = models.StatusPendingTeacher
	}
	if m.profiles != nil {
		// 资料读不到不影响提交
		if u, perr := m.profiles.FindUserByID(ctx, a.ID); perr == nil {
			req.RequesterCourse, req.RequesterYear = u.Course, u.Year
		} else {
			m.logger.WarnContext(ctx, "requester profile lookup failed", slog.String("requester", a.ID), slog.Any("error", perr))
		}
	}

	if err := m.withRetry(ctx, func(ctx context.Context) error {
		return m.store.CreateRequest(ctx, &req)
	}); err != nil {
		m.logger.ErrorContext(ctx, "create borrow request failed", slog.String("requester", a.ID), slog.Any("error", err))
		return "", err
	}
	m.obs.countTransition(ctx, "create", "", string(req.Status), OutcomeSuccess)
	m.logger.InfoContext(ctx, "borrow request created",
		slog.String("id", req.ID),
		slog.String("requester", a.ID),
		slog.String("status", string(req.Status)),
		slog.Int("items", len(req.Items)))

	m.afterCommit(ctx, a, "create", "", req)
	return req.ID, nil
}

// ApplyTransition 重新读取申请，算出 ev 之后的状态，按读到的状态条件写入
// 并发写入抢先一步时返回 ErrConflict
func (m *Manager) ApplyTransition(ctx context.Context, id string, ev Event, a Actor) (out models.BorrowRequest, err error) {
	ctx, span := m.obs.start(ctx, "lifecycle.ApplyTransition",
		attribute.String("request.id", id),
		attribute.String("event", string(ev)),
		attribute.String("actor.role", string(a.Role)))
	from, to := "", ""
	defer func() {
		m.obs.countTransition(ctx, ev, from, to, outcomeOf(err))
		endSpan(span, err)
	}()

	if a.IsZero() {
		return models.BorrowRequest{}, ErrUnauthenticated
	}

	cur, err := m.load(ctx, id)
	if err != nil {
		return models.BorrowRequest{}, err
	}
	from = string(cur.Status)

	next, err := Decide(cur, a, ev, m.Now(), m.loc)
	if err != nil {
		m.logger.InfoContext(ctx, "transition rejected",
			slog.String("id", id),
			slog.String("event", string(ev)),
			slog.String("status", from),
			slog.String("actor", a.ID),
			slog.Any("error", err))
		return models.BorrowRequest{}, err
	}
	to = string(next.Status)

	err = m.withRetry(ctx, func(ctx context.Context) error {
		var err error
		out, err = m.store.UpdateRequest(ctx, next, cur.Status)
		return err
	})
	if err != nil {
		m.logger.WarnContext(ctx, "transition not committed",
			slog.String("id", id),
			slog.String("event", string(ev)),
			slog.String("expected", from),
			slog.Any("error", err))
		return models.BorrowRequest{}, err
	}

	m.logger.InfoContext(ctx, "transition committed",
		slog.String("id", id),
		slog.String("event", string(ev)),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("actor", a.ID))

	if out.Status == models.StatusReturned && out.IsLate && m.late != nil {
		if lerr := m.late.RecordLateReturn(ctx, out.RequesterID, *out.ReturnTime); lerr != nil {
			m.logger.WarnContext(ctx, "record late return failed", slog.String("user", out.RequesterID), slog.Any("error", lerr))
		}
	}
	m.afterCommit(ctx, a, string(ev), cur.Status, out)
	return out, nil
}

// afterCommit 写入成功后执行通知、审计等附带操作，失败不会回滚
func (m *Manager) afterCommit(ctx context.Context, a Actor, event string, from models.Status, r models.BorrowRequest) {
	at := r.UpdatedAt
	if m.audit != nil {
		entry := models.AuditLog{
			RequestID:  r.ID,
			ActorID:    a.ID,
			ActorRole:  a.Role,
			Event:      event,
			FromStatus: from,
			ToStatus:   r.Status,
			CreatedAt:  at,
		}
		if err := m.audit.LogTransition(ctx, entry); err != nil {
			m.logger.WarnContext(ctx, "audit log failed", slog.String("id", r.ID), slog.Any("error", err))
		}
	}
	if m.notifier != nil {
		c := Change{RequestID: r.ID, Event: event, From: from, To: r.Status, ActorID: a.ID, At: at, Request: r}
		if err := m.notifier.Publish(ctx, c); err != nil {
			m.logger.WarnContext(ctx, "publish change failed", slog.String("id", r.ID), slog.Any("error", err))
		}
	}
}

// Visible 判断 a 能否查看 r：本人、指定的老师和工作人员可以
func Visible(r models.BorrowRequest, a Actor) bool {
	switch {
	case a.IsZero():
		return false
	case a.Role.IsStaff():
		return true
	case a.Role == models.RoleTeacher:
		return r.TeacherID != "" && r.TeacherID == a.ID
	}
	return r.RequesterID == a.ID
}

func (m *Manager) Get(ctx context.Context, a Actor, id string) (models.BorrowRequest, error) {
	if a.IsZero() {
		return models.BorrowRequest{}, ErrUnauthenticated
	}
	r, err := m.load(ctx, id)
	if err != nil {
		return models.BorrowRequest{}, err
	}
	if !Visible(r, a) {
		return models.BorrowRequest{}, ErrForbidden
	}
	return r, nil
}

// Purge 绕过状态机直接删除申请，只有管理员可以
func (m *Manager) Purge(ctx context.Context, a Actor, id string) (err error) {
	ctx, span := m.obs.start(ctx, "lifecycle.Purge", attribute.String("request.id", id))
	defer func() { endSpan(span, err) }()

	if a.IsZero() {
		return ErrUnauthenticated
	}
	if a.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if err := m.withRetry(ctx, func(ctx context.Context) error {
		return m.store.DeleteRequest(ctx, id)
	}); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "borrow request purged", slog.String("id", id), slog.String("actor", a.ID))
	return nil
}

// paginate 逐页读取所有符合 q 的记录
// 可以重复遍历，每次都会重新查询
func (m *Manager) paginate(ctx context.Context, q Query) iter.Seq2[models.BorrowRequest, error] {
	return func(yield func(models.BorrowRequest, error) bool) {
		page := q
		page.Limit = m.pageSize
		page.Offset = 0
		for {
			var rows []models.BorrowRequest
			err := m.withRetry(ctx, func(ctx context.Context) error {
				var err error
				rows, err = m.store.QueryRequests(ctx, page)
				return err
			})
			if err != nil {
				yield(models.BorrowRequest{}, err)
				return
			}
			for _, r := range rows {
				if !yield(r, nil) {
					return
				}
			}
			if len(rows) < page.Limit {
				return
			}
			page.Offset += len(rows)
		}
	}
}

// ListByRequester 返回该用户的申请，借用日期新的在前
func (m *Manager) ListByRequester(ctx context.Context, a Actor, userID string) (iter.Seq2[models.BorrowRequest, error], error) {
	if a.IsZero() {
		return nil, ErrUnauthenticated
	}
	if a.ID != userID && !a.Role.IsStaff() {
		return nil, ErrForbidden
	}
	return m.paginate(ctx, Query{RequesterID: userID, Order: OrderBorrowDateDesc}), nil
}

// ListByTeacher 返回指定给 teacherID 的申请，新的在前
func (m *Manager) ListByTeacher(ctx context.Context, a Actor, teacherID string, statuses ...models.Status) (iter.Seq2[models.BorrowRequest, error], error) {
	if a.IsZero() {
		return nil, ErrUnauthenticated
	}
	if !(a.Role == models.RoleTeacher && a.ID == teacherID) && !a.Role.IsStaff() {
		return nil, ErrForbidden
	}
	return m.paginate(ctx, Query{TeacherID: teacherID, Statuses: statuses}), nil
}

// ListByRole 按角色返回待处理的申请：学生看自己的，老师看指定给自己的
// 工作人员看所有已到管理员阶段的
func (m *Manager) ListByRole(ctx context.Context, a Actor, statuses ...models.Status) (iter.Seq2[models.BorrowRequest, error], error) {
	if a.IsZero() {
		return nil, ErrUnauthenticated
	}
	q := Query{Statuses: statuses}
	switch {
	case a.Role.IsStaff():
		q.AdminStage = true
	case a.Role == models.RoleTeacher:
		q.TeacherID = a.ID
	case a.Role == models.RoleStudent:
		q.RequesterID = a.ID
		q.Order = OrderBorrowDateDesc
	default:
		return nil, ErrForbidden
	}
	return m.paginate(ctx, q), nil
}

type History struct {
	UserID      string                 `json:"userId"`
	Requests    []models.BorrowRequest `json:"requests"`
	Total       int                    `json:"total"`
	LateReturns int                    `json:"lateReturns"`
}

// BorrowHistory 汇总用户的申请和逾期天数
func (m *Manager) BorrowHistory(ctx context.Context, a Actor, userID string) (History, error) {
	seq, err := m.ListByRequester(ctx, a, userID)
	if err != nil {
		return History{}, err
	}
	reqs, err := CollectAll(seq)
	if err != nil {
		return History{}, err
	}
	h := History{UserID: userID, Requests: reqs, Total: len(reqs)}
	for _, r := range reqs {
		if r.Status == models.StatusReturned && r.IsLate {
			h.LateReturns++
		}
	}
	return h, nil
}

// CollectAll 读完 seq，遇到错误就停
func CollectAll(seq iter.Seq2[models.BorrowRequest, error]) ([]models.BorrowRequest, error) {
	out := []models.BorrowRequest{}
	for r, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
