package logger

import (
	"slices"
	"strings"
)

const (
	// LevelDebug represents the debug severity level name.
	LevelDebug = "DEBUG"
	// LevelInfo represents the info severity level name.
	LevelInfo = "INFO"
	// LevelWarn represents the warning severity level name.
	LevelWarn = "WARN"
	// LevelError represents the error severity level name.
	LevelError = "ERROR"
	// LevelFatal represents the fatal severity level name.
	LevelFatal = "FATAL"
)

var allowedLevels = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
	"fatal":   LevelFatal,
}

// enum restricts a field to known values. Unknown values are kept
// lowercased when keepUnknown is set and dropped otherwise.
type enum struct {
	values      []string
	keepUnknown bool
}

func (e enum) normalize(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	return v, slices.Contains(e.values, v)
}

var enumFields = map[string]enum{
	"status":  {values: []string{"ok", "fail", "skip", "retry", "cancelled", "stale"}, keepUnknown: true},
	"outcome": {values: []string{"ok", "fail", "cancelled", "stale"}},
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"operation",
	"op",
	"cb_key",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"count",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"method",
	"path",
	"request_id",
	"step",
	"prev_step",
	"role",
	"cursor",
	"total",
	"card_id",
	"quiz_id",
	"subject_id",
	"content_type",
	"sessions",
	"err",
	"err_code",
	"error_kind",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
}
