package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab_borrow_portal/config"
	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/models"
	"lab_borrow_portal/session"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) FindUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newAuthRouter(t *testing.T, users fakeUsers, cfg config.Config, gate ...gin.HandlerFunc) (*gin.Engine, *session.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	iss := session.NewIssuer(session.NewJWTManager("secret", time.Hour), session.NewMemoryRegistry())

	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthRequired(iss, users, cfg)}, gate...)
	handlers = append(handlers, func(c *gin.Context) {
		a := ActorFrom(c)
		c.JSON(http.StatusOK, H{"id": a.ID, "role": a.Role})
	})
	r.GET("/who", handlers...)
	return r, iss
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func Test_AuthRequired(t *testing.T) {
	users := fakeUsers{
		"s1": {ID: "s1", Email: "stu@lab.edu", Role: models.RoleStudent},
		"b1": {ID: "b1", Email: "boss@lab.edu", Role: models.RoleTeacher},
	}
	cfg := config.Config{AdminEmails: []string{"boss@lab.edu"}}
	r, iss := newAuthRouter(t, users, cfg)
	ctx := context.Background()

	t.Run("no token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(r, "not-a-jwt").Code)
	})

	t.Run("valid bearer", func(t *testing.T) {
		tok, _, err := iss.Issue(ctx, "s1", "stu@lab.edu", "student")
		require.NoError(t, err)
		w := do(r, tok)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"s1","role":"student"}`, w.Body.String())
	})

	t.Run("cookie", func(t *testing.T) {
		tok, _, err := iss.Issue(ctx, "s1", "stu@lab.edu", "student")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		req.AddCookie(&http.Cookie{Name: AppSessionCookie, Value: tok})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("admin email override", func(t *testing.T) {
		tok, _, err := iss.Issue(ctx, "b1", "boss@lab.edu", "teacher")
		require.NoError(t, err)
		w := do(r, tok)
		assert.JSONEq(t, `{"id":"b1","role":"admin"}`, w.Body.String())
	})

	t.Run("revoked session", func(t *testing.T) {
		tok, claims, err := iss.Issue(ctx, "s1", "stu@lab.edu", "student")
		require.NoError(t, err)
		require.NoError(t, iss.Revoke(ctx, claims))
		assert.Equal(t, http.StatusUnauthorized, do(r, tok).Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		tok, _, err := iss.Issue(ctx, "gone", "gone@lab.edu", "student")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, do(r, tok).Code)
	})
}

func Test_RequireRole(t *testing.T) {
	users := fakeUsers{
		"s1": {ID: "s1", Email: "stu@lab.edu", Role: models.RoleStudent},
		"l1": {ID: "l1", Email: "lab@lab.edu", Role: models.RoleLabAssistant},
		"a1": {ID: "a1", Email: "adm@lab.edu", Role: models.RoleAdmin},
	}
	r, iss := newAuthRouter(t, users, config.Config{}, StaffOnly())
	ctx := context.Background()

	for id, want := range map[string]int{"s1": http.StatusForbidden, "l1": http.StatusOK, "a1": http.StatusOK} {
		tok, _, err := iss.Issue(ctx, id, users[id].Email, string(users[id].Role))
		require.NoError(t, err)
		assert.Equal(t, want, do(r, tok).Code, id)
	}
}

func Test_RequireRole_NoActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/who", AdminOnly(), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
}

type fakeBootstrap struct {
	admins  int64
	invites []models.Invite
}

func (f *fakeBootstrap) CountAdmins(context.Context) (int64, error) { return f.admins, nil }

func (f *fakeBootstrap) CreateInvite(_ context.Context, email string, role models.Role, token string, exp time.Time, by string) (*models.Invite, error) {
	inv := models.Invite{Email: email, Role: role, Token: token, ExpiresAt: exp, CreatedBy: by}
	f.invites = append(f.invites, inv)
	return &inv, nil
}

func Test_BootstrapFirstAdmin(t *testing.T) {
	cfg := config.Config{BootstrapEmail: "first@lab.edu", WebOrigin: "http://portal"}

	f := &fakeBootstrap{}
	link := BootstrapFirstAdmin(context.Background(), cfg, f)
	require.Len(t, f.invites, 1)
	assert.Equal(t, models.RoleAdmin, f.invites[0].Role)
	assert.Equal(t, "http://portal/register?inviteToken="+f.invites[0].Token, link)

	f = &fakeBootstrap{admins: 1}
	assert.Empty(t, BootstrapFirstAdmin(context.Background(), cfg, f))
	assert.Empty(t, f.invites)

	f = &fakeBootstrap{}
	assert.Empty(t, BootstrapFirstAdmin(context.Background(), config.Config{}, f))
	assert.Empty(t, f.invites)
}
