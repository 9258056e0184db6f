package middlewares

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultRateLimitPerMinute = 60

	rateLimitPrefix  = "ratelimit:v1:"
	rateLimitWindow  = time.Minute
	rateLimitTimeout = 500 * time.Millisecond
)

// localLimiters лимитеры в памяти процесса, по одному на клиента. Используются без redis и когда redis
// недоступен. Лимитер, простоявший дольше окна, полностью восполнен и ничем не отличается от нового,
// поэтому такие записи удаляются не чаще раза в окно.
type localLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalLimiters(perMinute int, now func() time.Time) *localLimiters {
	return &localLimiters{
		limiters:  make(map[string]*limiterEntry),
		limit:     rate.Every(rateLimitWindow / time.Duration(perMinute)),
		burst:     perMinute,
		now:       now,
		lastSweep: now(),
	}
}

func (l *localLimiters) allow(subject string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= rateLimitWindow {
		l.sweepLocked(now)
	}

	entry, ok := l.limiters[subject]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[subject] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *localLimiters) sweepLocked(now time.Time) {
	for subject, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= rateLimitWindow {
			delete(l.limiters, subject)
		}
	}
	l.lastSweep = now
}

// RateLimit ограничивает число запросов клиента (юзера, если запрос авторизован, иначе ip) в минуту.
// С redis считает запросы в фиксированном минутном окне (INCR + EXPIRE), общем для всех экземпляров сервиса.
// При ошибке redis переходит на локальный лимитер.
func RateLimit(cache *redis.Client, perMinute int, l *logrus.Logger) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = DefaultRateLimitPerMinute
	}
	local := newLocalLimiters(perMinute, time.Now)

	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if caller, ok := CallerFromContext(c); ok {
			subject = "user:" + caller.UserID.String()
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(perMinute))

		var allowed bool
		if cache != nil {
			count, err := incrWindow(c.Request.Context(), cache, subject)
			if err != nil {
				l.WithError(err).Warn("redis rate limit error; falling back to local")
				allowed = local.allow(subject)
			} else {
				allowed = count <= int64(perMinute)
				c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(int64(perMinute)-count, 0), 10))
			}
		} else {
			allowed = local.allow(subject)
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(rateLimitWindow.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				NewErrorResponse(CodeTooManyRequests, "rate limit exceeded, try again later"))
			return
		}
		c.Next()
	}
}

func incrWindow(ctx context.Context, cache *redis.Client, subject string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, rateLimitTimeout)
	defer cancel()

	window := time.Now().Unix() / int64(rateLimitWindow.Seconds())
	key := rateLimitPrefix + subject + ":" + strconv.FormatInt(window, 10)

	pipe := cache.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rateLimitWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err //nolint:wrapcheck
	}
	return incr.Val(), nil
}
