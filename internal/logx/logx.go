package logx

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options control verbosity and the optional rotating log file.
type Options struct {
	Debug      bool
	Quiet      bool
	File       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

var (
	exit = os.Exit

	debugMode bool
	quietMode bool
	logger    = log.New(os.Stderr, "", log.LstdFlags)
)

// Init applies opts. It is meant to be called once from main before any
// goroutine logs.
func Init(opts Options) {
	debugMode = opts.Debug
	quietMode = opts.Quiet

	var out io.Writer = os.Stderr
	if opts.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 100), // megabytes
			MaxAge:     orDefault(opts.MaxAgeDays, 7),  // days
			MaxBackups: opts.MaxBackups,
		})
	}
	logger.SetOutput(out)
}

// SetOutput redirects all log lines to w.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Info(format string, v ...interface{}) {
	if quietMode {
		return
	}
	logger.Printf(format, v...)
}

func Debug(format string, v ...interface{}) {
	if debugMode && !quietMode {
		logger.Printf("[DEBUG] "+format, v...)
	}
}

func Warn(format string, v ...interface{}) {
	logger.Printf("[WARN] "+format, v...)
}

func Error(format string, v ...interface{}) {
	logger.Printf("[ERROR] "+format, v...)
}

// Fatal logs to every configured output, the rotating file included, and exits.
func Fatal(format string, v ...interface{}) {
	logger.Printf(format, v...)
	exit(1)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
