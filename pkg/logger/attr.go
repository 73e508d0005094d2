package logger

import (
	"log/slog"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// SessionID records the session identifier under the key "session_id".
func SessionID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("session_id", id)
}

// Provider records the identity provider name under the key "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// IP records the client address under the key "ip".
func IP(ip string) slog.Attr {
	return slog.String("ip", ip)
}

// UserAgent records the client user agent under the key "user_agent".
func UserAgent(ua string) slog.Attr {
	return slog.String("user_agent", ua)
}

// Field records a changed field name under the key "field".
func Field(name string) slog.Attr {
	return slog.String("field", name)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Context converts a free-form context map into a "context" group.
// Keys are emitted in map iteration order; nil or empty maps yield an empty Attr.
func Context(fields map[string]any) slog.Attr {
	if len(fields) == 0 {
		return slog.Attr{}
	}
	as := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		as = append(as, slog.Any(k, v))
	}
	return slog.Attr{Key: "context", Value: slog.GroupValue(as...)}
}
