package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_ConsoleLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger("test", &buf)

	logger.Debug("не должно попасть в вывод")
	logger.Info("огонь %d", 42)

	out := buf.String()
	assert.NotContains(t, out, "не должно попасть")
	assert.Contains(t, out, "[INFO] [test] огонь 42")

	logger.SetLevels(DEBUG, TRACE)
	logger.Debug("теперь видно")
	assert.Contains(t, buf.String(), "[DEBUG] [test] теперь видно")
}

func TestLogger_WithComponentSharesSinks(t *testing.T) {
	var buf bytes.Buffer
	parent := NewConsoleLogger("root", &buf)
	child := parent.WithComponent("child")

	child.Warn("предупреждение")
	assert.Contains(t, buf.String(), "[WARN] [child] предупреждение")

	// Уровни общие для родителя и потомка
	parent.SetLevels(ERROR, ERROR)
	assert.False(t, child.Enabled(WARN))
}

func TestNewLogger_WritesFile(t *testing.T) {
	dir := t.TempDir()
	SetLogDir(dir)
	defer SetLogDir("logs")

	logger, err := NewLogger("sim")
	require.NoError(t, err)
	logger.SetLevels(ERROR, TRACE)
	logger.Trace("трассировка")
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "sim_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "[TRACE] [sim] трассировка")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerManager_ReusesComponentLoggers(t *testing.T) {
	lm := &LoggerManager{loggers: make(map[string]*Logger)}

	a := lm.GetLogger("api")
	b := lm.GetLogger("api")
	assert.Same(t, a, b)
	assert.Equal(t, []string{"api"}, lm.ListComponents())
}
