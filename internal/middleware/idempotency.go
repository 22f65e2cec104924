package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"go-conge/internal/shared/apperror"
	"go-conge/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	idempotencyLock   = 30 * time.Second
)

var errRequestInProgress = apperror.New(
	apperror.CodeConflict,
	"A request with this idempotency key is still being processed",
	http.StatusConflict,
)

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response of a successful POST carrying the same
// Idempotency-Key for the same user and route. A nil client disables it.
func Idempotency(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if rdb == nil || key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := fmt.Sprintf("idemp:%s:%s:%s", c.FullPath(), c.GetString("user_id"), key)
		lockKey := cacheKey + ":lock"

		if cached, err := rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			c.Header("Idempotent-Replay", "true")
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			c.Abort()
			return
		}

		acquired, err := rdb.SetNX(ctx, lockKey, "locked", idempotencyLock).Result()
		if err != nil {
			// Redis unavailable: serve the request without replay protection.
			c.Next()
			return
		}
		if !acquired {
			response.AbortWithError(c, errRequestInProgress)
			return
		}
		defer rdb.Del(ctx, lockKey)

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if status := w.Status(); status >= 200 && status < 300 {
			rdb.Set(ctx, cacheKey, w.body.Bytes(), idempotencyTTL)
		}
	}
}
