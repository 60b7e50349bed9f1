package logging

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// CommandLineFormatter prints only the message, followed by any error field.
// Used by popconctl, whose output is meant for humans rather than log collectors.
type CommandLineFormatter struct{}

func (f *CommandLineFormatter) Format(entry *log.Entry) ([]byte, error) {
	if err, ok := entry.Data[log.ErrorKey]; ok {
		return []byte(fmt.Sprintf("%s: %v\n", entry.Message, err)), nil
	}
	return []byte(fmt.Sprintf("%s\n", entry.Message)), nil
}

// SetLevel sets the level of the standard logger; debug takes precedence over level.
func SetLevel(level string, debug bool) error {
	if debug {
		log.SetLevel(log.DebugLevel)
		return nil
	}
	if level == "" {
		return nil
	}
	parsed, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	log.SetLevel(parsed)
	return nil
}
