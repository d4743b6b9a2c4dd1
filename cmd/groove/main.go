package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mdfaizan0/groove/internal/config"
	"github.com/mdfaizan0/groove/internal/database"
	"github.com/mdfaizan0/groove/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Startup logger, reconfigured below once config is loaded
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	configureLogger(logger, &cfg.Logging)

	if _, err := os.Stat(cfg.Media.LibraryPath); os.IsNotExist(err) {
		logger.WithField("library_path", cfg.Media.LibraryPath).Fatal("Media directory does not exist. Please create it and add your audio files.")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	grooveServer, err := server.NewGrooveServer(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating server")
	}

	if err := grooveServer.ScanMediaLibrary(); err != nil {
		logger.WithError(err).Fatal("Error scanning media library")
	}

	if cfg.Media.ScanOnStartup {
		tracks, err := db.GetAllTracks()
		if err != nil {
			logger.WithError(err).Warn("Could not get track count")
		} else if len(tracks) == 0 {
			logger.WithField("supported_formats", cfg.Media.SupportedFormats).Warn("No supported audio files found in media directory")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := grooveServer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server error")
	}
}

// configureLogger applies the [logging] config section
func configureLogger(logger *logrus.Logger, cfg *config.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, using stderr")
		} else {
			logger.SetOutput(file)
		}
	}
}
