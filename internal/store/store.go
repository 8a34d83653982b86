// LanServe - Freelance Marketplace Backend
// Copyright 2026 LanServe Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lanserve/lanserve

// Package store persists marketplace entities in BadgerDB. Each entity is one
// JSON document under a type-prefixed key; listing queries run over secondary
// index keys whose trailing segment is the entity's UUIDv7 id, so prefix
// iteration yields chronological order without a separate timestamp index.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/lanserve/lanserve/internal/config"
	"github.com/lanserve/lanserve/internal/logging"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Store wraps the shared BadgerDB handle. Entity stores embed it.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the document store per configuration.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory || cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory || cfg.Path == "").
		Msg("Document store opened")
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store for tests.
func OpenInMemory() (*Store, error) {
	return Open(config.DatabaseConfig{InMemory: true})
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close document store: %w", err)
	}
	return nil
}

// DB exposes the raw handle for entity stores in this package.
func (s *Store) DB() *badger.DB { return s.db }

// NewID returns a UUIDv7 string. IDs sort lexicographically in creation
// order, which the index layout and aggregation tie-breaks rely on.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// getJSON loads and unmarshals one document inside a view transaction.
func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

// setJSON marshals and stores one document inside an update transaction.
func setJSON(txn *badger.Txn, key []byte, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}
