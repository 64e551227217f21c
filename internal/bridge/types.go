package bridge

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/colorbridge/internal/colorcmd"
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ColorCommand is a parsed request to change the light.
type ColorCommand struct {
	ID uuid.UUID

	// Room is where the request was posted; captured frames go back there.
	Room string

	Color      colorcmd.Color
	ReceivedAt time.Time
}

// CapturedFrame is one raw camera frame taken after a successful command.
type CapturedFrame struct {
	CommandID  uuid.UUID
	Room       string
	Data       []byte
	CapturedAt time.Time
}

// timeNow is replaced in tests.
var timeNow = time.Now

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
