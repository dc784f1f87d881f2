package app

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lab_borrow_portal/config"
	"lab_borrow_portal/lifecycle"
	"lab_borrow_portal/models"
	"lab_borrow_portal/session"
)

const AppSessionCookie = "app_session"

// context keys
const (
	ctxActor  = "actor"
	ctxUser   = "user"
	ctxClaims = "claims"
	ctxUserID = "userID"
)

type UserLookup interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if ck, err := c.Request.Cookie(AppSessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// AuthRequired 校验 token 和会话，并把当前 Actor 放进 Context
func AuthRequired(sessions *session.Issuer, users UserLookup, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		claims, err := sessions.Verify(c.Request.Context(), tok)
		if err != nil {
			if errors.Is(err, session.ErrInvalidToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, H{"error": "session store unavailable"})
			return
		}

		// 角色以数据库为准，token 里的只是快照
		u, err := users.FindUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, lifecycle.ErrNotFound) {
				_ = sessions.Revoke(c.Request.Context(), claims)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if cfg.IsAdminEmail(u.Email) {
			u.Role = models.RoleAdmin
		}

		c.Set(ctxUserID, u.ID)
		c.Set(ctxUser, u)
		c.Set(ctxClaims, claims)
		c.Set(ctxActor, lifecycle.Actor{ID: u.ID, Role: u.Role, Name: u.FullName()})
		c.Next()
	}
}

// ActorFrom 取 AuthRequired 放进去的 Actor；未登录返回零值
func ActorFrom(c *gin.Context) lifecycle.Actor {
	v, ok := c.Get(ctxActor)
	if !ok {
		return lifecycle.Actor{}
	}
	a, _ := v.(lifecycle.Actor)
	return a
}

func UserFrom(c *gin.Context) *models.User {
	v, _ := c.Get(ctxUser)
	u, _ := v.(*models.User)
	return u
}

func ClaimsFrom(c *gin.Context) *session.Claims {
	v, _ := c.Get(ctxClaims)
	cl, _ := v.(*session.Claims)
	return cl
}

func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := ActorFrom(c)
		if a.IsZero() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		for _, r := range roles {
			if a.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
	}
}

func AdminOnly() gin.HandlerFunc { return RequireRole(models.RoleAdmin) }

func StaffOnly() gin.HandlerFunc { return RequireRole(models.RoleAdmin, models.RoleLabAssistant) }
