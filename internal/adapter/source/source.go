package source

import (
	"fmt"
	"log/slog"

	"github.com/readmigo/reader/internal/adapter"
	"github.com/readmigo/reader/internal/contentapi"
	"github.com/readmigo/reader/internal/domain"
)

// NewRepository creates the content repository the configuration selects:
// the content API when a base URL is set, otherwise a local Library loaded
// from the library directory.
func NewRepository(cfg *adapter.Config, logger *slog.Logger) (domain.ContentRepository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.IsRemote() {
		client, err := contentapi.NewClient(cfg.API.BaseURL, cfg.API.Token, logger,
			contentapi.WithTimeout(cfg.API.Timeout),
			contentapi.WithRateLimit(cfg.API.RequestsPerSecond),
		)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	if cfg.Library.Dir == "" {
		return nil, fmt.Errorf("either api.base_url or library.dir is required")
	}
	dir, err := adapter.ExpandHome(cfg.Library.Dir)
	if err != nil {
		return nil, err
	}

	lib := NewLibrary(logger)
	n, err := lib.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load library %s: %w", dir, err)
	}
	logger.Info("loaded local library", "dir", dir, "books", n)
	return lib, nil
}
