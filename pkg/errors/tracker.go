package errors

import (
	"context"
)

// Tracker is the error-reporting backend (Sentry in production, a no-op
// otherwise). The logger forwards error-level records through it.
type Tracker interface {
	CaptureError(ctx context.Context, err error, tags map[string]string) error

	CaptureMessage(ctx context.Context, message string, level Level, tags map[string]string) error

	// SetUser associates the current context with a user.
	SetUser(ctx context.Context, userID string, email string, username string)

	// AddBreadcrumb records a trail event attached to subsequent captures.
	AddBreadcrumb(ctx context.Context, message string, category string, level Level, data map[string]interface{})

	// Flush waits for all pending events to be sent.
	Flush(ctx context.Context) error
}

// Level is the severity attached to a captured message.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

func (l Level) String() string {
	return string(l)
}
