package cmd

import (
	"context"
	"os"

	"github.com/conneroisu/randomall/internal/config"
	"github.com/conneroisu/randomall/internal/i18n"
	"github.com/conneroisu/randomall/internal/logging"
	"github.com/conneroisu/randomall/internal/storage"
)

// newLogger builds the console logger, teed to a daily file when a log
// directory is configured. The returned func closes the file.
func newLogger(cfg *config.Config) (logging.Logger, func(), error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}

	console := logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	if cfg.Logging.Dir == "" {
		return console, func() {}, nil
	}

	file, err := logging.NewFileLogger(&logging.LoggerConfig{Level: level, Format: "json"}, cfg.Logging.Dir)
	if err != nil {
		return nil, nil, err
	}
	return logging.NewMultiLogger(console, file), func() { file.Close() }, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (*storage.Store, error) {
	return storage.Open(ctx, storage.Options{
		Path:      cfg.Storage.Path,
		CacheSize: cfg.Storage.CacheSize,
		CacheTTL:  cfg.Storage.CacheTTL,
		Logger:    logger,
	})
}

func newCatalog(cfg *config.Config) (*i18n.Catalog, error) {
	return i18n.New(cfg.Locale.Language, cfg.Locale.Dir)
}
