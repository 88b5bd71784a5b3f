package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"facesplit/config"
	"facesplit/internal/cli"
	"facesplit/internal/core/processor"
	"facesplit/internal/logger"
	"facesplit/internal/utils"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run führt die Anwendung aus und liefert den Exit-Code
func run(args []string) int {
	flags := pflag.NewFlagSet("facesplit", pflag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	configPath := flags.String("config", "", "Pfad zur Konfigurationsdatei (YAML)")
	flags.String("log-level", "info", "Log-Level (debug, info, warn, error)")
	flags.String("detector", config.MethodHaar, "Gesichtsdetektor: haar, dnn oder pigo")
	flags.Int("workers", 1, "parallele Segment-Worker, 0 = automatisch")
	flags.Int("port", 3000, "HTTP-Port im Servermodus")
	serve := flags.Bool("serve", false, "HTTP-API starten statt eine einzelne Analyse auszuführen")

	// stdout gehört dem JSON-Ergebnis, Logs gehen immer nach stderr
	log.SetOutput(os.Stderr)

	if err := flags.Parse(args); err != nil {
		return fail(processor.NewInputError(processor.CodeInvalidArguments, err))
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		return fail(processor.NewInputError(processor.CodeInvalidArguments, fmt.Errorf("invalid configuration: %w", err)))
	}
	if err := logger.Init(cfg.Log, os.Stderr); err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}
	if cfg.Processing.Workers == 0 {
		cfg.Processing.Workers = utils.DefaultWorkerCount()
		log.Infof("Using %d segment workers", cfg.Processing.Workers)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		if err := serveAPI(ctx, cfg); err != nil {
			log.Errorf("Server stopped with error: %v", err)
			return 1
		}
		return 0
	}

	// Argumente prüfen, bevor der Detektor geladen wird
	videoPath, specs, err := cli.ParseArgs(flags.Args())
	if err != nil {
		return fail(err)
	}

	a, err := newApp(cfg, false)
	if err != nil {
		return fail(err)
	}
	defer a.close()

	report, err := a.processor.Analyze(ctx, videoPath, specs)
	if err != nil {
		return fail(err)
	}
	if err := cli.WriteResults(os.Stdout, report.Results); err != nil {
		log.Errorf("Failed to write results: %v", err)
		return 1
	}
	return 0
}

// fail schreibt den Fehler als JSON nach stdout
func fail(err error) int {
	log.Debugf("Exiting with error: %v", err)
	if writeErr := cli.WriteError(os.Stdout, err); writeErr != nil {
		log.Errorf("Failed to write error: %v", writeErr)
	}
	return 1
}
