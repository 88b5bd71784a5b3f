package logger

import (
	"io"
	"os"
	"path/filepath"

	"facesplit/config"
	"facesplit/internal/util/timezone"

	log "github.com/sirupsen/logrus"
)

// Init initializes the global logger. Entries go to out (stderr in CLI mode,
// so stdout carries only the JSON result) and, if configured, to cfg.File.
func Init(cfg config.LogConfig, out io.Writer) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'info': %v", cfg.Level, err)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	var formatter log.Formatter
	if cfg.Format == "json" {
		formatter = &log.JSONFormatter{}
	} else {
		formatter = &log.TextFormatter{
			FullTimestamp: true,
		}
	}
	// Zeitstempel in der konfigurierten Zeitzone
	log.SetFormatter(&timezone.Formatter{Location: timezone.Load(cfg.Timezone), Next: formatter})

	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{out}

	if cfg.File != "" {
		logDir := filepath.Dir(cfg.File)
		if err := os.MkdirAll(logDir, 0750); err != nil {
			log.Errorf("Failed to create log directory '%s': %v", logDir, err)
			// Continue without file logging if directory creation fails
		} else {
			file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0660)
			if err != nil {
				log.Errorf("Failed to open log file '%s': %v", cfg.File, err)
			} else {
				writers = append(writers, file)
				log.Infof("Logging additionally to file: %s", cfg.File)
			}
		}
	}

	log.SetOutput(io.MultiWriter(writers...))

	log.Debug("Logger initialized")
	return nil
}
