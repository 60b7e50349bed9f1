package logging

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithStacktrace(t *testing.T) {
	logger, hook := test.NewNullLogger()

	err := errors.WithMessage(errors.New("query failed"), "fill 8000")
	WithStacktrace(logrus.NewEntry(logger), err).Error("lookup failed")

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, "lookup failed", entry.Message)
	assert.Equal(t, err, entry.Data[logrus.ErrorKey])
	assert.NotNil(t, entry.Data[Stacktrace])
}

func TestWithStacktrace_NoStack(t *testing.T) {
	logger, hook := test.NewNullLogger()

	err := plainError("boom")
	WithStacktrace(logrus.NewEntry(logger), err).Warn("something happened")

	require.Len(t, hook.Entries, 1)
	_, hasStack := hook.LastEntry().Data[Stacktrace]
	assert.False(t, hasStack)
}

func TestExtractStack(t *testing.T) {
	assert.Nil(t, ExtractStack(nil))
	assert.Nil(t, ExtractStack(plainError("boom")))

	inner := errors.New("inner")
	wrapped := errors.WithMessage(inner, "outer")
	assert.Equal(t, inner.(stackTracer).StackTrace(), ExtractStack(wrapped))
}

func TestCommandLineFormatter(t *testing.T) {
	f := &CommandLineFormatter{}

	out, err := f.Format(&logrus.Entry{Message: "hello", Data: logrus.Fields{}})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	out, err = f.Format(&logrus.Entry{Message: "failed", Data: logrus.Fields{logrus.ErrorKey: plainError("boom")}})
	require.NoError(t, err)
	assert.Equal(t, "failed: boom\n", string(out))
}

func TestSetLevel(t *testing.T) {
	defer logrus.SetLevel(logrus.GetLevel())

	require.NoError(t, SetLevel("warn", false))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	require.NoError(t, SetLevel("warn", true))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	assert.Error(t, SetLevel("loud", false))
}

type plainError string

func (e plainError) Error() string { return string(e) }
