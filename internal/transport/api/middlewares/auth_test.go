package middlewares

import (
	"net/http"
	"testing"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/service/tokens"
	"github.com/fsdevblog/groph-ledger/internal/transport/api/testutils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type AuthTestSuite struct {
	suite.Suite
	router *gin.Engine
	secret []byte
	seen   uuid.UUID
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}

func (s *AuthTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.secret = []byte("super secret key")
	s.seen = uuid.Nil

	s.router = gin.New()
	s.router.GET("/me", AuthRequired(s.secret), func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if ok {
			s.seen = caller.UserID
		}
		c.Status(http.StatusOK)
	})
}

func (s *AuthTestSuite) get(header string) int {
	var opts []func(*testutils.RequestOptions)
	if header != "" {
		opts = append(opts, testutils.WithHeader("Authorization", header))
	}
	res, err := testutils.MakeRequest(testutils.RequestArgs{Router: s.router, Method: http.MethodGet, URL: "/me"}, opts...)
	s.Require().NoError(err)
	defer func() { _ = res.Body.Close() }()
	return res.StatusCode
}

func (s *AuthTestSuite) TestAuthRequired() {
	userID := uuid.New()
	valid, err := tokens.GenerateUserJWT(userID, time.Hour, s.secret)
	s.Require().NoError(err)
	expired, err := tokens.GenerateUserJWT(userID, -time.Minute, s.secret)
	s.Require().NoError(err)
	foreign, err := tokens.GenerateUserJWT(userID, time.Hour, []byte("another key"))
	s.Require().NoError(err)

	cases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid", header: "Bearer " + valid, wantStatus: http.StatusOK},
		{name: "no header", wantStatus: http.StatusUnauthorized},
		{name: "no bearer prefix", header: valid, wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "foreign signature", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			s.seen = uuid.Nil
			s.Equal(t.wantStatus, s.get(t.header))
			if t.wantStatus == http.StatusOK {
				s.Equal(userID, s.seen)
			} else {
				s.Equal(uuid.Nil, s.seen)
			}
		})
	}
}
