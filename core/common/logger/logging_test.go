package logger

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestLogger(t *testing.T) {
	var out syncBuffer
	l := NewWithWriter(&out)
	l.Info("session %d open", 1)
	l.Warn("slow %s", "actor")
	assert.Contains(t, out.String(), Prefix+"session 1 open")
	assert.Contains(t, out.String(), Prefix+"slow actor")

	impl := l.(*LLoggerImpl)
	impl.setOpen(false)
	before := out.String()
	l.Info("dropped")
	assert.Equal(t, before, out.String())
	impl.setOpen(true)
	assert.True(t, impl.ReadLoggerStatus())
}

func TestSetOpenLogger(t *testing.T) {
	impl, ok := DefaultLogger.(*LLoggerImpl)
	assert.True(t, ok)
	assert.True(t, impl.ReadLoggerStatus())
	SetOpenLogger(false)
	assert.False(t, impl.ReadLoggerStatus())
	SetOpenLogger(true)
	assert.True(t, impl.ReadLoggerStatus())
	// NilLogger不受影响
	var nl LLogger = NilLogger{}
	nl.Error("nothing %d", 1)
}
