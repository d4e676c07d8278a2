package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions extends the default masks of RedactingLogger.
type RedactOptions struct {
	MaskHeaders []string
	MaskParams  []string
}

var (
	defaultMaskHeaders = []string{"authorization", "cookie", "set-cookie", strings.ToLower(actorHeader)}
	defaultMaskParams  = []string{"sender_id", "recipient_id", "actor_id", "wire_id", "uid"}

	// longDigits matches participant and chat ids in unmatched raw paths.
	longDigits = regexp.MustCompile(`\d{3,}`)
)

// RedactingLogger is an access logger that never records participant
// identities: identity headers are masked, id-bearing query parameters are
// blanked and the route pattern is logged instead of the raw path. It also
// attaches the request-scoped logger like Logger.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := toSet(defaultMaskHeaders, opts.MaskHeaders)
	maskParams := toSet(defaultMaskParams, opts.MaskParams)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = longDigits.ReplaceAllString(c.Request.URL.Path, "[id]")
		}

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = strings.Join(vv, ", ")
		}

		rid, _ := c.Get(requestIDKey)
		l := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set("logger", &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		ev.
			Str("query", truncate(redactQuery(c.Request.URL.RawQuery, maskParams), maxQueryLogLength)).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}

// redactQuery blanks the values of masked parameters. Unparseable queries are
// dropped entirely.
func redactQuery(raw string, mask map[string]struct{}) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return "[REDACTED]"
	}
	for k := range vals {
		if _, ok := mask[strings.ToLower(k)]; ok {
			vals[k] = []string{"[REDACTED]"}
		}
	}
	return vals.Encode()
}

func toSet(base, extra []string) map[string]struct{} {
	out := make(map[string]struct{}, len(base)+len(extra))
	for _, s := range append(append([]string(nil), base...), extra...) {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}
