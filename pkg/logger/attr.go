package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// An empty id returns an empty Attr.
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// Feature records a feature uid under the key "feature".
func Feature(uid string) slog.Attr {
	return slog.String("feature", uid)
}

// FeatureGroup records a feature group name under the key "feature_group".
// An empty name returns an empty Attr.
func FeatureGroup(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("feature_group", name)
}

// Strategy records a toggle strategy type under the key "strategy".
func Strategy(typ string) slog.Attr {
	return slog.String("strategy", typ)
}

// Listener records a listener name under the key "listener".
func Listener(name string) slog.Attr {
	return slog.String("listener", name)
}

// EventID records an event uid under the key "event_id".
func EventID(uid string) slog.Attr {
	return slog.String("event_id", uid)
}

// Count records a number of items under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// RetryCount records the retry count under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
