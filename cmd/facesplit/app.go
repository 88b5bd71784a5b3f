package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"facesplit/config"
	"facesplit/internal/api"
	"facesplit/internal/cleanup"
	"facesplit/internal/core/processor"
	"facesplit/internal/db"
	"facesplit/internal/db/repository"
	"facesplit/internal/integrations/facedetection"
	"facesplit/internal/integrations/mqtt"
	"facesplit/internal/integrations/opencv"
	"facesplit/internal/integrations/provider"
	"facesplit/internal/sse"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// app hält alle Komponenten eines Laufs
type app struct {
	detector  facedetection.Detector
	debugSvc  *opencv.DebugService
	processor *processor.SegmentProcessor
	repo      *repository.SQLiteRepository // nil ohne Store
	mqtt      *mqtt.Client                 // nil ohne MQTT
}

// newApp lädt den Detektor und verbindet die konfigurierten Ergebnis-Sinks.
// Store und MQTT sind optional; schlagen sie fehl, läuft die Analyse ohne sie.
func newApp(cfg *config.Config, serve bool, sinks ...processor.ResultSink) (*app, error) {
	a := &app{}

	if cfg.Detection.DebugFrames > 0 {
		a.debugSvc = opencv.NewDebugService(cfg.Detection.DebugFrames)
	}

	detector, err := provider.CreateDetector(cfg, a.debugSvc)
	if err != nil {
		return nil, processor.NewInputError(processor.CodeDetectorInit, fmt.Errorf("failed to initialize %s detector: %w", cfg.Detection.Method, err))
	}
	a.detector = detector

	a.processor = processor.NewSegmentProcessor(cfg, provider.CreateVideoOpener(), detector, sinks...)

	// Datenbank nur, wenn der Store aktiviert ist
	if cfg.Store.Enabled {
		log.Info("Initializing database...")
		if err := db.Initialize(cfg); err != nil {
			log.Errorf("Failed to initialize database, continuing without store: %v", err)
		} else {
			a.repo = repository.NewSQLiteRepository(db.DB)
			a.processor.AddSink(repository.NewStoreSink(a.repo))
			log.Info("Database initialization complete.")
		}
	}

	if cfg.MQTT.Enabled {
		client := mqtt.NewClient(cfg.MQTT)
		if serve {
			// Analyseaufträge nur im Servermodus annehmen
			client.RegisterHandler(mqtt.NewAnalyzeHandler(client, a.processor, 10*time.Minute))
		}
		if err := client.Start(); err != nil {
			log.Warnf("Failed to start MQTT client: %v. Continuing without MQTT.", err)
		} else {
			a.mqtt = client
			a.processor.AddSink(mqtt.NewResultPublisher(client))
		}
	} else {
		log.Debug("MQTT is disabled in config.")
	}

	return a, nil
}

func (a *app) close() {
	a.processor.Close()
	if a.mqtt != nil {
		a.mqtt.Stop()
	}
	if err := a.detector.Close(); err != nil {
		log.Warnf("Failed to close detector: %v", err)
	}
	if a.repo != nil {
		if err := db.Close(); err != nil {
			log.Warnf("Failed to close database: %v", err)
		}
	}
}

// serveAPI startet die HTTP-API und blockiert bis ctx beendet ist
func serveAPI(ctx context.Context, cfg *config.Config) error {
	hub := sse.NewHub()
	go hub.Run(ctx)

	a, err := newApp(cfg, true, hub)
	if err != nil {
		return err
	}
	defer a.close()

	opts := api.Options{
		Analyzer: a.processor,
		Pool:     a.processor.Pool(),
		Hub:      hub,
	}
	if a.repo != nil {
		opts.Repo = a.repo

		cleanupService := cleanup.NewService(a.repo, cfg.Store.RetentionDays, 24*time.Hour)
		cleanupService.StartBackgroundCleanup()
		defer cleanupService.StopBackgroundCleanup()
	}
	if a.debugSvc != nil {
		opts.Extra = append(opts.Extra, a.debugSvc)
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("Server stopped.")
	return nil
}
