package notify

import "go.uber.org/zap"

// Sink receives named events with structured fields.
// Implementations must be safe for concurrent use.
type Sink interface {
	Event(name string, fields ...zap.Field)
}

// Multi forwards every event to each non-nil sink in order.
type Multi []Sink

func (m Multi) Event(name string, fields ...zap.Field) {
	for _, s := range m {
		if s == nil {
			continue
		}
		s.Event(name, fields...)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Event(string, ...zap.Field) {}

// Logger writes each event as a single Info entry whose message is the event name.
type Logger struct {
	L *zap.Logger
}

func NewLogger(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{L: l}
}

func (s *Logger) Event(name string, fields ...zap.Field) {
	s.L.Info(name, fields...)
}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}
