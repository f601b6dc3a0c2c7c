package logging

import (
	"log/slog"
	"strings"
)

const redacted = "[redacted]"

//nolint:gochecknoglobals
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"passwordhash":  {},
	"session":       {},
	"session_id":    {},
	"sessionid":     {},
	"cookie":        {},
}

// RedactAttr replaces the value of attributes whose key names a secret.
// It has the signature of slog.HandlerOptions.ReplaceAttr.
func RedactAttr(_ []string, attr slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(attr.Key)]; ok {
		return slog.String(attr.Key, redacted)
	}

	return attr
}
