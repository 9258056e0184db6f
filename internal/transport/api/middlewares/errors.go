package middlewares

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Коды ошибок в теле ответа.
const (
	CodeBadRequest      = "bad_request"
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeUnprocessable   = "unprocessable_entity"
	CodeTooManyRequests = "too_many_requests"
	CodeDatabase        = "database_error"
	CodeInternal        = "internal_error"
)

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Message: message, Code: code}}
}

// Errors превращает первую ошибку из c.Errors в JSON ответ. Хендлеры только добавляют ошибку через
// c.Error(err) и выходят, статус определяется здесь по типу ошибки.
func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// обрабатываем только первую ошибку
		firstErr := c.Errors[0]
		status, body := errorResponse(firstErr)
		c.AbortWithStatusJSON(status, body)
	}
}

func errorResponse(ginErr *gin.Error) (int, ErrorResponse) {
	err := ginErr.Err

	if ginErr.IsType(gin.ErrorTypeBind) {
		return http.StatusBadRequest, bindErrorResponse(err)
	}

	var validationErr *domain.ValidationError
	var forbiddenErr *domain.ForbiddenError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
			Message: validationErr.Msg,
			Code:    CodeBadRequest,
			Field:   validationErr.Field,
		}}
	case errors.As(err, &forbiddenErr):
		return http.StatusForbidden, NewErrorResponse(CodeForbidden, forbiddenErr.Msg)
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, NewErrorResponse(CodeForbidden, statusErrorText(http.StatusForbidden))
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, NewErrorResponse(CodeNotFound, statusErrorText(http.StatusNotFound))
	case errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusConflict, NewErrorResponse(CodeConflict, statusErrorText(http.StatusConflict))
	case errors.Is(err, domain.ErrUnknown):
		// детали ошибки базы клиенту не отдаем, они попадают в лог
		return http.StatusInternalServerError, NewErrorResponse(CodeDatabase, "database error")
	default:
		return http.StatusInternalServerError, NewErrorResponse(CodeInternal, "internal error")
	}
}

// bindErrorResponse ошибка разбора или валидации тела/параметров запроса. Имя поля берется из json/form тега
// (см. api.registerValidators).
func bindErrorResponse(err error) ErrorResponse {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return ErrorResponse{Error: ErrorBody{
			Message: validationMessage(fe),
			Code:    CodeBadRequest,
			Field:   fe.Field(),
		}}
	}
	return NewErrorResponse(CodeBadRequest, "malformed request: "+err.Error())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "currency":
		return fe.Field() + " must be a 3-letter currency code"
	case "max", "lte":
		return fe.Field() + " must be at most " + fe.Param()
	case "min", "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "uuid":
		return fe.Field() + " must be a valid uuid"
	default:
		return fe.Field() + " is invalid"
	}
}

func statusErrorText(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "too many requests"
	default:
		return "internal server error"
	}
}
