package logging

import (
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
)

// ContextHook adds go source information (file, line, func) to each
// log entry.
type ContextHook struct{}

// Levels defines which logging levels fire the hook; all of them.
func (hook ContextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire walks back the call stack to find the method that issued the
// logging call.
func (hook ContextHook) Fire(entry *logrus.Entry) error {
	if pc, file, line, ok := runtime.Caller(9); ok {
		funcName := runtime.FuncForPC(pc).Name()

		entry.Data["file"] = path.Base(file)
		entry.Data["line"] = line
		entry.Data["func"] = path.Base(funcName)
	}

	return nil
}
