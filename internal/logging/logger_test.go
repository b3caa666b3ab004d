package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("world", &buf, WARN)

	l.Info("не должно попасть в вывод")
	l.Warn("обрезан каскад на глубине %d", 64)

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[WARN] [world] обрезан каскад на глубине 64")
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, DEBUG, lvl)

	lvl, ok = ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, INFO, lvl)
}

func TestComponentLoggers_ReuseAndLevel(t *testing.T) {
	c := newComponentLoggers()

	a := c.get("storage")
	b := c.get("storage")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c.get("world"))

	// Уровень применяется и к созданным, и к новым логгерам
	c.setLevel(ERROR)
	assert.Equal(t, ERROR, a.minConsoleLevel)
	assert.Equal(t, ERROR, c.get("server").minConsoleLevel)

	require.NoError(t, c.close())
	assert.NotSame(t, a, c.get("storage"))
}
