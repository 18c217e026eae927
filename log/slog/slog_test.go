package slog

import (
	"bytes"
	stdslog "log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unkn0wn-root/swrcache"
)

func TestLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelInfo}))}

	l.Debug("hidden", swrcache.Fields{"key": "a"})
	l.Warn("background refresh failed", swrcache.Fields{"key": "a", "err": "boom"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="background refresh failed" err=boom key=a`)
}
