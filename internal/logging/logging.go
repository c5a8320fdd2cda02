// Package logging builds the prefixed gommon loggers handed to services.
package logging

import (
	"io"

	"github.com/labstack/gommon/log"
)

// Logger is the subset of *log.Logger the services write to.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// LevelFor is INFO in production and DEBUG everywhere else.
func LevelFor(production bool) log.Lvl {
	if production {
		return log.INFO
	}
	return log.DEBUG
}

func New(prefix string, level log.Lvl) *log.Logger {
	l := log.New(prefix)
	l.SetLevel(level)
	return l
}

// Discard returns a logger that writes nowhere.
func Discard(prefix string) *log.Logger {
	l := log.New(prefix)
	l.SetOutput(io.Discard)
	return l
}
