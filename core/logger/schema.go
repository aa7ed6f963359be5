package logger

import "strings"

// normalizeLevel maps slog level names onto the upper-case names used in logs.
func normalizeLevel(level string) string {
	switch strings.ToLower(level) {
	case "", "info":
		return "INFO"
	case "warning":
		return "WARN"
	default:
		return strings.ToUpper(level)
	}
}

// normalizeStatus lower-cases status values and folds "canceled" into
// "cancelled".
func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "canceled" {
		return "cancelled"
	}
	return status
}

// normalizeOutcome accepts only the outcomes dashboards group by.
func normalizeOutcome(outcome string) (string, bool) {
	switch o := normalizeStatus(outcome); o {
	case "ok", "fail", "cancelled", "rate_limited":
		return o, true
	default:
		return "", false
	}
}

// defaultKeyOrder puts the fields shared by every line first; the rest
// follow alphabetically.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"conv_id",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"msg_kind",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"kind",
	"from",
	"to",
	"replies",
	"section",
	"payload",
	"lang",
	"username",
	"mode",
	"listen",
	"public_url",
	"source",
	"sections",
	"events",
	"sessions",
	"timezone",
	"seeder",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
}
