package core

/*------------------------------------------------------------------
 *
 * Purpose:	Process-wide state (the log handle, verbosity) used by
 *		every engine, passed explicitly instead of duplicated per
 *		engine.
 *
 *------------------------------------------------------------------*/

import (
	"os"

	"github.com/charmbracelet/log"
)

// Process is the single well-defined holder for process-wide state: the
// logger and the root data folder, passed explicitly to every engine at
// construction instead of duplicated per engine.
type Process struct {
	Logger       *log.Logger
	RootDataPath string

	verbosity int
}

// NewProcess builds a Process with a logger writing to stderr, colorized
// when stderr is a TTY (charmbracelet/log auto-detects this).
func NewProcess(rootDataPath string) *Process {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05.000",
	})
	return &Process{Logger: logger, RootDataPath: rootDataPath}
}

// SetVerbosity implements control command `v <level>`.
func (p *Process) SetVerbosity(level int) {
	p.verbosity = level
	switch {
	case level <= 0:
		p.Logger.SetLevel(log.WarnLevel)
	case level == 1:
		p.Logger.SetLevel(log.InfoLevel)
	default:
		p.Logger.SetLevel(log.DebugLevel)
	}
}

// Verbosity returns the most recently set verbosity level.
func (p *Process) Verbosity() int { return p.verbosity }

func (p *Process) Warnf(format string, args ...any) {
	if p == nil || p.Logger == nil {
		return
	}
	p.Logger.Warnf(format, args...)
}

func (p *Process) Infof(format string, args ...any) {
	if p == nil || p.Logger == nil {
		return
	}
	p.Logger.Infof(format, args...)
}

func (p *Process) Errorf(format string, args ...any) {
	if p == nil || p.Logger == nil {
		return
	}
	p.Logger.Errorf(format, args...)
}
