package middlewares

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotent-Replayed"

	idempotencyPrefix       = "idempotency:v1:"
	maxIdempotencyKeyLength = 255
	idempotencyStoreTimeout = 2 * time.Second
)

// storedResponse запись по ключу идемпотентности. Пока хендлер работает, в ней только Fingerprint
// и InProgress.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	InProgress  bool   `json:"in_progress,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// requestFingerprint sha256 от метода, пути и тела запроса.
func requestFingerprint(method, uri string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + "\n" + uri + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// bodyRecorder дублирует тело ответа в буфер, чтобы его можно было сохранить.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b) //nolint:wrapcheck
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s) //nolint:wrapcheck
}

// Idempotency повторяет сохраненный ответ для запроса с уже встречавшимся заголовком Idempotency-Key.
// Ключ опционален и действует в пределах юзера, поэтому middleware ставится после AuthRequired.
// Вместе с ответом хранится отпечаток запроса. Повтор ключа с другим методом, путем или телом
// получает 422 и до хендлера не доходит.
// Сохраняются только ответы, записанные самим хендлером со статусом ниже 500. Ошибки, которые рендерит
// Errors, не сохраняются: такой запрос ничего не изменил и при повторе будет проверен заново.
// Если cache == nil, middleware ничего не делает.
func Idempotency(cache *redis.Client, ttl time.Duration, l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if cache == nil || key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
				Message: "Idempotency-Key is too long",
				Code:    CodeBadRequest,
				Field:   IdempotencyKeyHeader,
			}})
			return
		}

		var body []byte
		if c.Request.Body != nil {
			raw, readErr := c.GetRawData()
			if readErr != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest,
					NewErrorResponse(CodeBadRequest, "failed to read request body"))
				return
			}
			body = raw
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		fingerprint := requestFingerprint(c.Request.Method, c.Request.URL.RequestURI(), body)

		caller, _ := CallerFromContext(c)
		cacheKey := idempotencyPrefix + caller.UserID.String() + ":" + key
		log := l.WithField("idempotency_key", key)

		ctx, cancel := context.WithTimeout(c.Request.Context(), idempotencyStoreTimeout)
		defer cancel()

		marker, _ := json.Marshal(storedResponse{Fingerprint: fingerprint, InProgress: true}) //nolint:errchkjson
		reserved, reserveErr := cache.SetNX(ctx, cacheKey, marker, ttl).Result()
		if reserveErr != nil {
			log.WithError(reserveErr).Error("idempotency reservation failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				NewErrorResponse(CodeInternal, "idempotency store failure"))
			return
		}
		if !reserved {
			replay(ctx, c, cache, cacheKey, fingerprint, log)
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		c.Next()

		persistCtx, persistCancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()),
			idempotencyStoreTimeout)
		defer persistCancel()

		status := recorder.Status()
		if !recorder.Written() || len(c.Errors) > 0 || status >= http.StatusInternalServerError {
			cache.Del(persistCtx, cacheKey)
			return
		}

		payload, marshalErr := json.Marshal(storedResponse{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if marshalErr != nil {
			log.WithError(marshalErr).Error("failed to encode idempotent response")
			cache.Del(persistCtx, cacheKey)
			return
		}
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			log.WithError(err).Error("failed to persist idempotent response")
			cache.Del(persistCtx, cacheKey)
		}
	}
}

func replay(
	ctx context.Context,
	c *gin.Context,
	cache *redis.Client,
	cacheKey, fingerprint string,
	log *logrus.Entry,
) {
	cached, err := cache.Get(ctx, cacheKey).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		// ключ истек между SetNX и Get
		c.AbortWithStatusJSON(http.StatusConflict, NewErrorResponse(CodeConflict, "duplicate request, retry"))
		return
	case err != nil:
		log.WithError(err).Error("idempotency lookup failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			NewErrorResponse(CodeInternal, "idempotency store failure"))
		return
	}

	var stored storedResponse
	if unmarshalErr := json.Unmarshal(cached, &stored); unmarshalErr != nil {
		log.WithError(unmarshalErr).Warn("failed to decode stored idempotent response")
		c.AbortWithStatusJSON(http.StatusConflict, NewErrorResponse(CodeConflict, "duplicate request"))
		return
	}

	switch {
	case stored.Fingerprint != fingerprint:
		log.Warn("idempotency key reused with a different request")
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorBody{
			Message: "Idempotency-Key was already used with a different request",
			Code:    CodeUnprocessable,
			Field:   IdempotencyKeyHeader,
		}})
	case stored.InProgress:
		c.AbortWithStatusJSON(http.StatusConflict,
			NewErrorResponse(CodeConflict, "duplicate request currently processing"))
	default:
		c.Header(IdempotencyReplayedHeader, "true")
		c.Data(stored.Status, stored.ContentType, stored.Body)
		c.Abort()
	}
}
