package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/schema"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/storage"
	pgdir "github.com/Adithya-Monish-Kumar-K/textindex/pkg/storage/postgres"
)

// openDirectory selects the storage backend. The postgres client, if one
// was opened, must be closed by the caller.
func openDirectory(ctx context.Context, cfg *config.Config) (storage.Directory, *postgres.Client, error) {
	switch cfg.Index.Storage {
	case config.StorageMemory:
		slog.Warn("index storage is in memory, commits are lost on exit")
		return storage.NewMemory(), nil, nil
	case config.StorageFS:
		dir, err := storage.OpenFS(cfg.Index.Path)
		if err != nil {
			return nil, nil, err
		}
		return dir, nil, nil
	case config.StoragePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		dir, err := pgdir.Open(ctx, client.DB, cfg.Index.Name)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		dir.SetTimeout(cfg.Postgres.StatementTimeout)
		return dir, client, nil
	}
	return nil, nil, fmt.Errorf("unknown index storage %q", cfg.Index.Storage)
}

// loadSchema reads the schema file, if configured. A nil schema means the
// stored one governs.
func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return schema.ParseJSON(data)
}
