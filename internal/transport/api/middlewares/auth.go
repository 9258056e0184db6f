package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/service/tokens"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var ErrTokenNotExist = errors.New("token not exist")

const CurrentUserIDKey = "currentUserID"

// checkAuthorization извлекает токен из заголовка Authorization и проверяет его. Если токен не передан,
// вернется ошибка ErrTokenNotExist.
func checkAuthorization(c *gin.Context, jwtTokenSecret []byte) (uuid.UUID, error) {
	tokenHeader := c.GetHeader("Authorization")
	const bearer = "Bearer "

	if !strings.HasPrefix(tokenHeader, bearer) {
		return uuid.Nil, ErrTokenNotExist
	}

	userID, err := tokens.ValidateUserJWT(tokenHeader[len(bearer):], jwtTokenSecret)
	if err != nil {
		return uuid.Nil, fmt.Errorf("check authorization: %w", err)
	}
	return userID, nil
}

// AuthRequired проверяет, что запрос авторизован. Записывает в контекст (поле CurrentUserIDKey) id юзера.
func AuthRequired(jwtTokenSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := checkAuthorization(c, jwtTokenSecret)
		if err != nil {
			if !errors.Is(err, ErrTokenNotExist) {
				_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				NewErrorResponse(CodeUnauthorized, statusErrorText(http.StatusUnauthorized)))
			return
		}
		c.Set(CurrentUserIDKey, userID)
		c.Next()
	}
}

// CallerFromContext возвращает идентичность, установленную AuthRequired. Второе значение false, если
// запрос прошел мимо AuthRequired.
func CallerFromContext(c *gin.Context) (domain.Caller, bool) {
	value, exist := c.Get(CurrentUserIDKey)
	if !exist {
		return domain.Caller{}, false
	}
	userID, ok := value.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return domain.Caller{}, false
	}
	return domain.NewCaller(userID), true
}
