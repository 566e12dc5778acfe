package scm

import (
	"fmt"
	"strings"

	"scmcicd/pkg/logging"
)

const subsystem = "SCMClient"

// leveledLogger routes go-retryablehttp logging into pkg/logging.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	logging.Error(subsystem, nil, "%s", withFields(msg, keysAndValues))
}

func (leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	// Per-request lines are too chatty for INFO.
	logging.Debug(subsystem, "%s", withFields(msg, keysAndValues))
}

func (leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	logging.Debug(subsystem, "%s", withFields(msg, keysAndValues))
}

func (leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	logging.Warn(subsystem, "%s", withFields(msg, keysAndValues))
}

func withFields(msg string, keysAndValues []interface{}) string {
	if len(keysAndValues) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := keysAndValues[i]
		var value interface{} = "(missing)"
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		}
		fmt.Fprintf(&b, " %v=%v", key, value)
	}
	return b.String()
}
