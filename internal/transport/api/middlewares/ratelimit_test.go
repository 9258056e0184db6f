package middlewares

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fsdevblog/groph-ledger/internal/transport/api/testutils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RateLimitTestSuite struct {
	suite.Suite
}

func TestRateLimitSuite(t *testing.T) {
	suite.Run(t, new(RateLimitTestSuite))
}

func (s *RateLimitTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *RateLimitTestSuite) router(cache *redis.Client, perMinute int) *gin.Engine {
	r := gin.New()
	r.GET("/ping", withCaller(), RateLimit(cache, perMinute, discardLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func (s *RateLimitTestSuite) get(router http.Handler, user uuid.UUID) *http.Response {
	res, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: router,
		Method: http.MethodGet,
		URL:    "/ping",
	}, testutils.WithHeader("X-Test-User", user.String()))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = res.Body.Close() })
	return res
}

// exhaust делает limit разрешенных запросов и проверяет, что следующий отклонен.
func (s *RateLimitTestSuite) exhaust(router http.Handler, user uuid.UUID, limit int) {
	for i := 0; i < limit; i++ {
		res := s.get(router, user)
		s.Require().Equal(http.StatusOK, res.StatusCode, "request %d", i+1)
	}
	res := s.get(router, user)
	s.Require().Equal(http.StatusTooManyRequests, res.StatusCode)
	s.Equal("60", res.Header.Get("Retry-After"))
	s.Equal("3", res.Header.Get("X-RateLimit-Limit"))
}

func (s *RateLimitTestSuite) TestRedisWindow() {
	mr := miniredis.RunT(s.T())
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()
	router := s.router(cache, 3)

	user := uuid.New()
	first := s.get(router, user)
	s.Equal("2", first.Header.Get("X-RateLimit-Remaining"))
	s.exhaust(router, user, 2)

	// у другого юзера свой счетчик
	s.Equal(http.StatusOK, s.get(router, uuid.New()).StatusCode)

	keys := mr.Keys()
	s.Len(keys, 2)
	for _, key := range keys {
		s.Positive(mr.TTL(key))
	}
}

func (s *RateLimitTestSuite) TestLocalWithoutRedis() {
	router := s.router(nil, 3)
	user := uuid.New()
	s.exhaust(router, user, 3)
	s.Equal(http.StatusOK, s.get(router, uuid.New()).StatusCode)
}

func (s *RateLimitTestSuite) TestFallsBackWhenRedisDown() {
	mr := miniredis.RunT(s.T())
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer cache.Close()
	mr.Close()

	router := s.router(cache, 3)
	s.exhaust(router, uuid.New(), 3)
}

func (s *RateLimitTestSuite) TestDefaultLimit() {
	router := s.router(nil, 0)
	res := s.get(router, uuid.New())
	s.Equal(http.StatusOK, res.StatusCode)
	s.Equal("60", res.Header.Get("X-RateLimit-Limit"))
}

func (s *RateLimitTestSuite) TestLocalLimitersEvictIdle() {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	local := newLocalLimiters(2, func() time.Time { return clock })

	for i := 0; i < 100; i++ {
		s.True(local.allow("ip:10.0.0." + strconv.Itoa(i)))
	}
	s.True(local.allow("user:active"))
	s.True(local.allow("user:active"))
	s.Len(local.limiters, 101)

	// в пределах окна исчерпанный лимит не сбрасывается
	clock = clock.Add(10 * time.Second)
	s.False(local.allow("user:active"))
	s.Len(local.limiters, 101)

	// простаивавшие дольше окна удаляются, активный остается
	clock = clock.Add(rateLimitWindow - 9*time.Second)
	s.True(local.allow("user:new"))
	s.Len(local.limiters, 2)
	s.Contains(local.limiters, "user:active")
	s.Contains(local.limiters, "user:new")
}
