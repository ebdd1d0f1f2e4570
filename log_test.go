package privatepub

import (
	"bytes"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MemorySink implements zap.Sink by writing all messages to a buffer.
type MemorySink struct {
	*bytes.Buffer
}

// Implement Close and Sync as no-ops to satisfy the interface. The Write
// method is provided by the embedded buffer.

func (s *MemorySink) Close() error { return nil }
func (s *MemorySink) Sync() error  { return nil }

func newTestLogger(t *testing.T) (*MemorySink, *zap.Logger) {
	t.Helper()

	sink := &MemorySink{new(bytes.Buffer)}
	require.NoError(t, zap.RegisterSink(t.Name(), func(*url.URL) (zap.Sink, error) {
		return sink, nil
	}))

	conf := zap.NewProductionConfig()
	conf.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	conf.OutputPaths = []string{t.Name() + "://"}

	logger, err := conf.Build()
	require.NoError(t, err)

	return sink, logger
}

func TestLogMessage(t *testing.T) {
	sink, logger := newTestLogger(t)
	defer sink.Reset()

	m := NewMessage(Config{SecretToken: "token"}, "/messages/1", Eval("alert(1)"))
	logger.Info("test", zap.Object("message", m))

	log := sink.String()
	assert.Contains(t, log, `"channel":"/messages/1"`)
	assert.Contains(t, log, `"kind":"eval"`)
	assert.NotContains(t, log, "token")
}

func TestLogBayeuxMessage(t *testing.T) {
	sink, logger := newTestLogger(t)
	defer sink.Reset()

	m := &BayeuxMessage{Channel: "/meta/subscribe", Subscription: "/messages/1", ClientID: "abc", Error: "Incorrect signature."}
	logger.Info("test", zap.Object("message", m))

	log := sink.String()
	assert.Contains(t, log, `"channel":"/meta/subscribe"`)
	assert.Contains(t, log, `"subscription":"/messages/1"`)
	assert.Contains(t, log, `"client_id":"abc"`)
	assert.Contains(t, log, `"error":"Incorrect signature."`)
}
