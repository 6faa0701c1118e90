package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func entryFor(level logrus.Level, module string) *logrus.Entry {
	e := logrus.NewEntry(logrus.New())
	e.Level = level
	if module != "" {
		e.Data["module"] = module
	}
	return e
}

func TestFilterHook_AllowsEverythingByDefault(t *testing.T) {
	h := NewFilterHook(&LogConfig{})
	assert.True(t, h.Allow(entryFor(logrus.DebugLevel, "aggregator")))
	assert.True(t, h.Allow(entryFor(logrus.InfoLevel, "")))
}

func TestFilterHook_ModuleFilter(t *testing.T) {
	h := NewFilterHook(&LogConfig{FilterModules: "Aggregator, worker"})

	assert.True(t, h.Allow(entryFor(logrus.InfoLevel, "aggregator")))
	assert.True(t, h.Allow(entryFor(logrus.InfoLevel, "WORKER")))
	assert.False(t, h.Allow(entryFor(logrus.InfoLevel, "cache")))
	assert.True(t, h.Allow(entryFor(logrus.InfoLevel, "")), "entries without module pass")
	assert.True(t, h.Allow(entryFor(logrus.ErrorLevel, "cache")), "errors always pass")
}

func TestFilterHook_LevelFilter(t *testing.T) {
	h := NewFilterHook(&LogConfig{FilterLogTypes: "warn"})

	assert.True(t, h.Allow(entryFor(logrus.WarnLevel, "")))
	assert.False(t, h.Allow(entryFor(logrus.InfoLevel, "")))
}

func TestAsyncHook_WritesAndDrainsOnClose(t *testing.T) {
	var buf bytes.Buffer
	hook := NewAsyncHook(&buf, 10, NewFilterHook(&LogConfig{FilterModules: "keep"}))

	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetOutput(&bytes.Buffer{})
	l.AddHook(hook)

	l.WithField("module", "keep").Info("kept line")
	l.WithField("module", "drop").Info("dropped line")

	assert.NoError(t, hook.Close())
	assert.Contains(t, buf.String(), "kept line")
	assert.NotContains(t, buf.String(), "dropped line")
}
