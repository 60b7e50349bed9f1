package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NullLogger discards everything written to it.
var NullLogger = &logrus.Logger{
	Out:       io.Discard,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.PanicLevel,
}

// NullEntry returns an entry backed by NullLogger.
func NullEntry() *logrus.Entry {
	return logrus.NewEntry(NullLogger)
}
