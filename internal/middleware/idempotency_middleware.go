package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/errors"
	redisstore "github.com/ikkim/storefront-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "X-Idempotent-Replay"
	maxIdempotencyKeyLength = 128
)

type IdempotencyStore interface {
	Reserve(ctx context.Context, key, fingerprint string) (redisstore.Reservation, error)
	SaveResponse(ctx context.Context, key, fingerprint string, status int, contentType string, body []byte) error
	Release(ctx context.Context, key string) error
}

// bodyRecorder keeps a copy of everything the handler writes.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the first response for a repeated Idempotency-Key.
// Keys are scoped per user, so it must run after Authenticate. Requests
// without the header pass through; 5xx responses release the key so the
// client can retry.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" || store == nil {
			c.Next()
			return
		}

		log := GetLoggerFromContext(c)

		if len(key) > maxIdempotencyKeyLength {
			errors.BadRequest(c, errors.ValidationInvalidInput, "Idempotency-Key가 너무 깁니다")
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			errors.BadRequest(c, errors.ValidationInvalidInput, "요청 본문을 읽을 수 없습니다")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		userID, _ := GetUserID(c)
		scoped := strconv.FormatUint(uint64(userID), 10) + ":" + key
		fingerprint := requestFingerprint(c.Request.Method, c.Request.URL.Path, body)
		ctx := c.Request.Context()

		reservation, err := store.Reserve(ctx, scoped, fingerprint)
		if err != nil {
			if stderrors.Is(err, redisstore.ErrFingerprintMismatch) {
				log.Warn("Idempotency key reused with a different request", map[string]interface{}{
					"user_id": userID,
				})
				errors.RespondWithError(c, http.StatusUnprocessableEntity, errors.OrderIdempotencyConflict, "이미 다른 요청에 사용된 Idempotency-Key입니다")
				c.Abort()
				return
			}
			log.Error("Idempotency store unavailable", err)
			errors.InternalError(c, "")
			c.Abort()
			return
		}

		switch reservation.State {
		case redisstore.ReservationCompleted:
			log.Info("Replaying idempotent response", map[string]interface{}{
				"user_id": userID,
				"status":  reservation.Record.Status,
			})
			c.Header(IdempotentReplayHeader, "true")
			c.Data(reservation.Record.Status, reservation.Record.ContentType, reservation.Record.Body)
			c.Abort()
			return
		case redisstore.ReservationPending:
			errors.RespondWithError(c, http.StatusConflict, errors.OrderIdempotencyConflict, "동일한 요청이 처리 중입니다")
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		c.Next()

		status := recorder.Status()
		// the outcome is stored even if the client went away
		storeCtx := context.WithoutCancel(ctx)
		if status >= http.StatusInternalServerError {
			if err := store.Release(storeCtx, scoped); err != nil {
				log.Error("Failed to release idempotency key", err)
			}
			return
		}
		if err := store.SaveResponse(storeCtx, scoped, fingerprint, status, recorder.Header().Get("Content-Type"), recorder.body.Bytes()); err != nil {
			log.Error("Failed to save idempotent response", err, map[string]interface{}{
				"user_id": userID,
			})
		}
	}
}

func requestFingerprint(method, path string, body []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method))
	sum.Write([]byte{'|'})
	sum.Write([]byte(path))
	sum.Write([]byte{'|'})
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}
