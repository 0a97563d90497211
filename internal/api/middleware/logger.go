package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// maxLoggedBody caps the request bodies copied into log lines.
const maxLoggedBody = 64 << 10

const redacted = "[REDACTED]"

// RequestLogger writes one zerolog line per request with the caller and
// the JSON body, secrets redacted. Logging never fails a request.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			body, err := captureBody(req)
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					return he
				}
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
			}

			if err := next(c); err != nil {
				c.Error(err)
			}

			res := c.Response()
			ev := log.Info()
			switch {
			case res.Status >= http.StatusInternalServerError:
				ev = log.Error()
			case res.Status >= http.StatusBadRequest:
				ev = log.Warn()
			}

			ev = ev.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID))

			if claims, ok := ClaimsFrom(c); ok {
				ev = ev.Int64("user_id", claims.UserID).
					Str("role", string(claims.Role)).
					Str("email", claims.Email)
			} else {
				ev = ev.Str("caller", "anonymous")
			}
			if pretty := redactBody(body); pretty != "" {
				ev = ev.Str("body", pretty)
			}

			ev.Msg("request")
			return nil
		}
	}
}

// captureBody reads a small JSON body and puts it back for the handler.
// Bodies of unknown length are read up to maxLoggedBody; anything longer is
// handed on unread past that point and left out of the log.
func captureBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.ContentLength == 0 || req.ContentLength > maxLoggedBody {
		return nil, nil
	}
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return nil, nil
	}

	b, err := io.ReadAll(io.LimitReader(req.Body, maxLoggedBody+1))
	if err != nil {
		_ = req.Body.Close()
		return nil, err
	}
	if len(b) > maxLoggedBody {
		req.Body = readCloser{io.MultiReader(bytes.NewReader(b), req.Body), req.Body}
		return nil, nil
	}
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(b))
	return b, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// redactBody returns the indented body with password and token values
// masked. Non-JSON bodies are not logged.
func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	out, err := json.MarshalIndent(redact(v), "", "  ")
	if err != nil {
		return ""
	}
	return string(out)
}

func redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if isSecretKey(k) {
				t[k] = redacted
				continue
			}
			t[k] = redact(val)
		}
	case []any:
		for i := range t {
			t[i] = redact(t[i])
		}
	}
	return v
}

func isSecretKey(k string) bool {
	k = strings.ToLower(k)
	return strings.Contains(k, "password") || strings.Contains(k, "token") || strings.Contains(k, "secret")
}
