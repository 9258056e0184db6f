package api

import (
	"net/http"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentCaller возвращает идентичность юзера, установленную middlewares.AuthRequired. Если ее нет, отвечает 401
// и возвращает false: хендлер должен сразу выйти.
func currentCaller(c *gin.Context) (domain.Caller, bool) {
	caller, ok := middlewares.CallerFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			middlewares.NewErrorResponse(middlewares.CodeUnauthorized, "unauthorized"))
		return domain.Caller{}, false
	}
	return caller, true
}

type idURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// bindID разбирает параметр пути :id. Ошибка разбора уходит в c.Errors с типом gin.ErrorTypeBind.
func bindID(c *gin.Context) (uuid.UUID, bool) {
	var params idURI
	if err := c.ShouldBindUri(&params); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(params.ID)
	if err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return uuid.Nil, false
	}
	return id, true
}
