// app/seenmw.go
package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type SeenToucher interface {
	TouchUserSeen(ctx context.Context, userID string) error
}

// TouchLastSeen 每个用户每个 throttle 周期最多写一次 last_seen_at
func TouchLastSeen(users SeenToucher, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := ActorFrom(c)
		if a.IsZero() {
			c.Next()
			return
		}

		key := "user:lastseen:" + a.ID
		if ok, _ := rdb.SetNX(c.Request.Context(), key, "1", throttle).Result(); ok {
			_ = users.TouchUserSeen(c.Request.Context(), a.ID) // 忽略错误，不阻塞请求
		}
		c.Next()
	}
}
