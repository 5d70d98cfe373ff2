package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/middleware"
)

// maxLoggedBody caps how much of a body is kept for the log line.
const maxLoggedBody = 4 << 10

// sensitiveKeys flag fields and headers whose values must never reach the
// logs. Matching is by substring on the lower-cased name, so "token" also
// covers reset_token and access_token, and "otp" covers recovery codes.
var sensitiveKeys = []string{
	"password",
	"token",
	"authorization",
	"cookie",
	"secret",
	"credential",
	"session",
	"otp",
	"key",
	"auth",
}

// LoggingMiddleware emits one line per request and one per response, with
// bodies redacted and truncated. Response level escalates with the status
// class.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chimiddleware.GetReqID(r.Context())

			var reqBody []byte
			if r.Body != nil {
				reqBody, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(reqBody))
			}

			logger.Info("request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"body", redactBody(reqBody),
			)

			rec := &recordingWriter{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "response",
				"request_id", reqID,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", rec.size,
				"body", redactBody(rec.body.Bytes()),
			)
		})
	}
}

// recordingWriter keeps the status and a bounded copy of the body while
// passing everything through to the real writer.
type recordingWriter struct {
	http.ResponseWriter
	status int
	size   int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		w.body.Write(b[:min(len(b), room)])
	}
	w.size += len(b)
	return w.ResponseWriter.Write(b)
}

// redactBody returns a loggable rendition of a request or response body.
// JSON bodies get sensitive fields replaced; anything else is logged only
// when it contains no sensitive keyword.
func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody]
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		if containsSensitiveKey(strings.ToLower(string(body))) {
			return "[REDACTED]"
		}
		return string(body)
	}

	out, err := json.Marshal(redactValue(decoded))
	if err != nil {
		return "[REDACTED]"
	}
	return string(out)
}

func containsSensitiveKey(s string) bool {
	for _, key := range sensitiveKeys {
		if strings.Contains(s, key) {
			return true
		}
	}
	return false
}

func redactValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for name, value := range v {
			if containsSensitiveKey(strings.ToLower(name)) {
				v[name] = "[REDACTED]"
				continue
			}
			v[name] = redactValue(value)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = redactValue(item)
		}
		return v
	default:
		return v
	}
}
