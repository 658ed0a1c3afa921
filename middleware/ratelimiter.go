package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/lgcert/indigene-certificate/logger"
)

// RateLimiter limits requests per client IP. A Redis store is shared across
// replicas; without Redis each process keeps its own counters.
func RateLimiter(perMinute int64, rdb *redis.Client, log *logger.Logger) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 100
	}
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  perMinute,
	}

	var store limiter.Store = memory.NewStore()
	if rdb != nil {
		s, err := redisstore.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "lgcert:limiter"})
		if err != nil {
			log.Warnf("redis limiter store unavailable, using memory: %v", err)
		} else {
			store = s
		}
	}

	return ginlimiter.NewMiddleware(limiter.New(store, rate))
}
