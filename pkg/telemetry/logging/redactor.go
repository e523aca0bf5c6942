package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks secrets in log attributes, by key name and by value pattern.
type Redactor struct {
	patterns []redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Pattern names.
const (
	PatternAPIKeyParam = "api_key_param"
	PatternBearerToken = "bearer_token"
	PatternPassword    = "password"
	PatternBasicAuth   = "basic_auth"
)

// sensitiveKeys are attribute key fragments whose values are always masked.
var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"auth", "authorization",
	"private_key", "privatekey",
}

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			{
				// Bugzilla and other REST APIs accept the key as a query parameter.
				name:        PatternAPIKeyParam,
				regex:       regexp.MustCompile(`(?i)(api[-_]?key|token)=[^&\s"]+`),
				replacement: "$1=***",
			},
			{
				name:        PatternBearerToken,
				regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
				replacement: "Bearer ***",
			},
			{
				name:        PatternPassword,
				regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)[:=]\s*[^\s]+`),
				replacement: "$1: ***",
			},
			{
				name:        PatternBasicAuth,
				regex:       regexp.MustCompile(`://[^/\s:@]+:[^/\s@]+@`),
				replacement: "://***:***@",
			},
		},
	}
}

// RedactString masks every pattern match in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr returns a with its value masked when the key is sensitive or
// the string form contains a secret. Groups are redacted recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		attrs := v.Group()
		out := make([]any, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, out...)
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, RedactAPIKey(v.String()))
	}

	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		if s, ok := v.Any().(fmt.Stringer); ok {
			return slog.String(a.Key, r.RedactString(s.String()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// RedactAPIKey redacts an API key, keeping only a prefix.
func RedactAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 4 {
		return "***"
	}
	return apiKey[:4] + "***"
}
