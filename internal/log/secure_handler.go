package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// maskedKeys are attribute keys whose values are never logged. Site
// sections of the config file carry cookies and headers for sites behind
// a login, and the fetcher logs request metadata under these names.
var maskedKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"api_key":             true,
	"apikey":              true,
	"session":             true,
	"session_id":          true,
	"sessionid":           true,
	"sid":                 true,
	"jsessionid":          true,
}

// maskedKeywords mask any key that contains them. The bare "key" is left
// out since asset storage keys are logged everywhere.
var maskedKeywords = []string{"password", "passwd", "secret", "token", "auth", "credential", "cookie"}

// digestKeys hold content hashes and generated IDs. They are long hex or
// alphanumeric strings by nature and must stay readable.
var digestKeys = map[string]bool{
	"hash":   true,
	"id":     true,
	"job":    true,
	"job_id": true,
	"run_id": true,
}

// sensitivePatterns contains regex patterns that indicate sensitive values.
// Values matching these patterns will be sanitized regardless of key name.
var sensitivePatterns = []*regexp.Regexp{
	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// Basic auth
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// Long alphanumeric strings (API keys)
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),

	// AWS access keys
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
}

// signedParams are query parameters that grant access on their own.
// CDN and object storage URLs found on brand sites often carry them.
var signedParams = []string{
	"x-amz-signature",
	"x-amz-credential",
	"x-amz-security-token",
	"x-goog-signature",
	"x-goog-credential",
	"signature",
	"sig",
	"token",
	"access_token",
	"api_key",
	"apikey",
	"key",
}

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler masks credentials before records reach the wrapped
// handler: values under sensitive keys, token-shaped strings, and the user
// info and signed query parameters of URLs.
//
// Design decision: We wrap slog.Handler rather than providing a logger
// type because:
//  1. Crawler, fetcher and API code only ever see a plain *slog.Logger
//  2. The same masking applies to the text and JSON outputs
type SecureHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler
}

// NewSecureHandler wraps handler, or the default logger's handler when nil.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and forwards it.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

// WithAttrs masks attrs before handing them to the wrapped handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizeAttrs(attrs))}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = sanitizeAttr(a)
	}
	return out
}

// sanitizeAttr masks one attribute. Keys are checked first, then URL
// values, then value patterns.
func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizeAttrs(a.Value.Group())...)}
	}

	keyLower := strings.ToLower(a.Key)
	if maskedKeys[keyLower] || containsMaskedKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}

	strVal := a.Value.String()
	if clean, ok := RedactURL(strVal); ok {
		return slog.String(a.Key, clean)
	}
	if !digestKeys[keyLower] && isSensitiveValue(strVal) {
		return slog.String(a.Key, MaskValue)
	}

	return a
}

func containsMaskedKeyword(key string) bool {
	return slices.ContainsFunc(maskedKeywords, func(k string) bool {
		return strings.Contains(key, k)
	})
}

func isSensitiveValue(value string) bool {
	return slices.ContainsFunc(sensitivePatterns, func(re *regexp.Regexp) bool {
		return re.MatchString(value)
	})
}

// RedactURL masks the user info and signed query parameters of an
// absolute http(s) URL. It reports false when value is not such a URL,
// and returns value unchanged when there was nothing to mask.
func RedactURL(value string) (string, bool) {
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil {
		return "", false
	}

	changed := false
	if u.User != nil {
		u.User = url.User(MaskValue)
		changed = true
	}

	if u.RawQuery != "" {
		q := u.Query()
		for name := range q {
			if isSignedParam(name) {
				q.Set(name, MaskValue)
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}

	if !changed {
		return value, true
	}
	return u.String(), true
}

func isSignedParam(name string) bool {
	return slices.Contains(signedParams, strings.ToLower(name))
}

// NewSecureLogger returns a masking text logger. Debug records are kept
// only when verbose is set; otherwise the level is Warn.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output, for servers
// whose logs are shipped to an aggregator.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
