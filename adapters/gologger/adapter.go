// Package gologger resolves one go-logger provider for the session store and
// the go-job refresh worker so both log under the same name.
package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-auth-session/core"
)

const LoggerName = "auth-session"

// Loggers is a resolved go-logger pair plus its go-job bridges.
type Loggers struct {
	Provider    glog.LoggerProvider
	Logger      glog.Logger
	JobProvider job.LoggerProvider
	JobLogger   job.Logger
}

// Resolve picks provider, then logger, then a nop logger, and bridges the
// result for go-job. An empty name falls back to LoggerName.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) Loggers {
	if name == "" {
		name = LoggerName
	}
	out := Loggers{}
	out.Provider, out.Logger = glog.Resolve(name, provider, logger)
	if out.Provider != nil {
		out.JobProvider = job.GoLoggerProvider(out.Provider)
	}
	if out.Logger != nil {
		out.JobLogger = job.GoLogger(out.Logger)
	}
	return out
}

// StoreOptions returns the core.Store options carrying l.
func (l Loggers) StoreOptions() []core.Option {
	return []core.Option{
		core.WithLoggerProvider(l.Provider),
		core.WithLogger(l.Logger),
	}
}

// StoreOptions resolves under LoggerName and returns the store options.
func StoreOptions(provider glog.LoggerProvider, logger glog.Logger) []core.Option {
	return Resolve(LoggerName, provider, logger).StoreOptions()
}
