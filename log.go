package privatepub

import "go.uber.org/zap/zapcore"

// LogField is an alias of zapcore.Field, it could be replaced by a custom contract when Go will support generics.
type LogField = zapcore.Field

// Level is an alias of zapcore.Level, it could be replaced by a custom contract when Go will support generics.
type Level = zapcore.Level

// CheckedEntry is an alias of zapcore.CheckedEntry, it could be replaced by a custom contract when Go will support generics.
type CheckedEntry = zapcore.CheckedEntry

// Logger defines the privatepub logger.
type Logger interface {
	Info(msg string, fields ...LogField)
	Error(msg string, fields ...LogField)
	Check(level Level, msg string) *CheckedEntry
	Level() Level
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m *Message) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("channel", m.Channel)
	if m.Data.Payload.eval {
		enc.AddString("kind", "eval")
	} else {
		enc.AddString("kind", "data")
	}

	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (m *BayeuxMessage) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("channel", m.Channel)
	if m.Subscription != "" {
		enc.AddString("subscription", m.Subscription)
	}
	if m.ClientID != "" {
		enc.AddString("client_id", m.ClientID)
	}
	if m.Error != "" {
		enc.AddString("error", m.Error)
	}

	return nil
}
