package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Configure sets up the standard logrus logger following the logrus levels:
// https://github.com/sirupsen/logrus#level-logging
// Internal logs go to stderr, stdout belongs to the native handler.
func Configure(level string, format string, extra ...io.Writer) error {
	log.SetReportCaller(true)
	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format: %q", format)
	}

	switch level {
	case "trace":
		log.SetFormatter(&log.JSONFormatter{})
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "fatal":
		log.SetLevel(log.FatalLevel)
	case "panic":
		log.SetLevel(log.PanicLevel)
	default:
		return fmt.Errorf("invalid log level: %q", level)
	}

	if len(extra) > 0 {
		log.SetOutput(io.MultiWriter(append([]io.Writer{os.Stderr}, extra...)...))
	} else {
		log.SetOutput(os.Stderr)
	}
	return nil
}
