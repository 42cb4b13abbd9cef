// Package idempotency replays the stored response of a mutating request that is
// resubmitted with the same Idempotency-Key header.
package idempotency

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/raveagil-byte/steritrack-app-sub000/pkg/errors"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotency-Replayed"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func abort(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"path":    c.Request.URL.Path,
	})
}

// Middleware returns the gin middleware. Only POST and PUT are keyed.
func Middleware(config *Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.Next()
			return
		}

		key := NormalizeKey(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			if config.RequireKey {
				abort(c, errors.ErrValidation("Idempotency-Key header is required for this operation"))
				return
			}
			c.Next()
			return
		}
		if err := ValidateKey(key, config.MaxKeyLength); err != nil {
			abort(c, errors.ErrValidation(fmt.Sprintf("invalid idempotency key: %v", err)))
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		process(c, config, key, Fingerprint(c.Request.Method, c.Request.URL.Path, body))
	}
}

func process(c *gin.Context, config *Config, key, fingerprint string) {
	ctx := c.Request.Context()
	logger := config.Logger.WithContext(ctx).With("idempotencyKey", key, "path", c.Request.URL.Path)
	path := c.FullPath()
	now := config.now()

	candidate := &Key{
		ID:                 uuid.New().String(),
		Key:                key,
		ServiceID:          config.ServiceName,
		RequestPath:        c.Request.URL.Path,
		RequestMethod:      c.Request.Method,
		RequestFingerprint: fingerprint,
		LockedAt:           &now,
		CreatedAt:          now,
		ExpiresAt:          now.Add(config.RetentionPeriod),
	}

	stored, inserted, err := config.Repository.AcquireLock(ctx, candidate)
	if err != nil {
		logger.Error("Failed to acquire idempotency lock", "error", err)
		config.record(path, "storage_error")
		abort(c, errors.ErrServiceUnavailable("idempotency storage"))
		return
	}

	if !inserted {
		if stored.RequestFingerprint != fingerprint {
			logger.Warn("Idempotency key reused with different parameters")
			config.record(path, "mismatch")
			abort(c, errors.NewAppError("IDEMPOTENCY_PARAMETER_MISMATCH",
				"request parameters differ from the original request with this idempotency key", http.StatusUnprocessableEntity))
			return
		}

		if stored.IsCompleted() {
			logger.Info("Idempotency cache hit", "statusCode", stored.ResponseCode)
			config.record(path, "hit")
			for k, v := range stored.ResponseHeaders {
				c.Header(k, v)
			}
			c.Header(HeaderReplayed, "true")
			c.Data(stored.ResponseCode, "application/json; charset=utf-8", stored.ResponseBody)
			c.Abort()
			return
		}

		won, err := config.Repository.TakeOver(ctx, stored.ID, now.Add(-config.LockTimeout), now)
		if err != nil {
			logger.Error("Failed to take over idempotency key", "error", err)
			config.record(path, "storage_error")
			abort(c, errors.ErrServiceUnavailable("idempotency storage"))
			return
		}
		if !won {
			logger.Warn("Concurrent request with the same idempotency key")
			config.record(path, "concurrent")
			abort(c, errors.NewAppError("IDEMPOTENCY_CONCURRENT_REQUEST",
				"a request with this idempotency key is currently being processed", http.StatusConflict))
			return
		}
	}

	config.record(path, "miss")

	writer := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
	c.Writer = writer
	c.Next()

	// errors left for the error handler are rendered later and never cached
	status := writer.Status()
	if status >= http.StatusInternalServerError || (len(c.Errors) > 0 && !writer.Written()) {
		if err := config.Repository.ReleaseLock(ctx, stored.ID); err != nil {
			logger.Error("Failed to release idempotency key", "error", err)
		}
		return
	}

	responseBody := writer.body.Bytes()
	if len(responseBody) > config.MaxResponseSize {
		logger.Warn("Response too large to cache", "size", len(responseBody))
		responseBody = []byte(fmt.Sprintf(`{"message":"response too large to replay","size":%d}`, len(responseBody)))
	}

	headers := map[string]string{}
	for k, v := range writer.Header() {
		if len(v) > 0 && k != "Content-Length" {
			headers[k] = v[0]
		}
	}

	if err := config.Repository.StoreResponse(ctx, stored.ID, status, responseBody, headers); err != nil {
		logger.Error("Failed to store idempotency response", "error", err)
		config.record(path, "storage_error")
	}
}
