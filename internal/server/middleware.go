package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	maxLoggedBody   = 512
	requestIDHeader = "X-Request-Id"
)

// requestID keeps a caller supplied request id or assigns a fresh uuid, and
// echoes it back so clients can correlate log lines.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), chiMiddleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			fields := []zap.Field{
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			}

			if logger.Core().Enabled(zapcore.DebugLevel) && r.Body != nil {
				logger.Debug("http request", append(fields,
					zap.String("body_preview", peekBody(r, maxLoggedBody)),
				)...)
			}

			next.ServeHTTP(ww, r)

			logger.Info("http", append(fields,
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
			)...)
		})
	}
}

type peekedBody struct {
	io.Reader
	io.Closer
}

// peekBody reads at most limit+1 bytes of the body for logging and puts them
// back in front of the unread rest, so body size limits still apply downstream.
func peekBody(r *http.Request, limit int) string {
	if limit <= 0 {
		return ""
	}

	head, _ := io.ReadAll(io.LimitReader(r.Body, int64(limit)+1))
	r.Body = peekedBody{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}

	return preview(head, limit)
}

// preview renders at most limit bytes of b, appending an ellipsis when cut.
func preview(b []byte, limit int) string {
	truncated := len(b) > limit
	if truncated {
		b = b[:limit]
	}

	// A cut can split a rune; drop the broken tail.
	s := strings.TrimSpace(strings.ToValidUTF8(string(b), ""))
	if truncated {
		s += "..."
	}
	return s
}
