package gologger

import (
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// RootName is the logger name used for connector components.
const RootName = "salesforce"

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// Component resolves the logger for a named connector component, such as
// "http" or "cli". The returned logger is never nil.
func Component(component string, provider glog.LoggerProvider, logger glog.Logger) glog.Logger {
	resolvedProvider, resolved := Resolve(RootName, provider, logger)
	component = strings.TrimSpace(component)
	if component != "" && resolvedProvider != nil {
		if named := resolvedProvider.GetLogger(RootName + "." + component); named != nil {
			resolved = named
		}
	}
	return glog.Ensure(resolved)
}

// WithFields attaches fields when the logger supports them.
func WithFields(logger glog.Logger, fields map[string]any) glog.Logger {
	logger = glog.Ensure(logger)
	if len(fields) == 0 {
		return logger
	}
	if fieldsLogger, ok := logger.(glog.FieldsLogger); ok {
		return fieldsLogger.WithFields(fields)
	}
	return logger
}
