// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/solidbase/solid"
)

// Key layout:
//
//	snapshot/<fingerprint>/meta           -> snapshotMeta JSON
//	snapshot/<fingerprint>/r/<class key>  -> solid.Result JSON
const (
	snapshotPrefix = "snapshot/"
	metaSuffix     = "/meta"
	resultInfix    = "/r/"
)

// snapshotMeta describes a persisted snapshot.
type snapshotMeta struct {
	// ID is a random identifier assigned when the snapshot is written.
	ID string `json:"id"`

	// Fingerprint is the hierarchy fingerprint the results belong to.
	Fingerprint string `json:"fingerprint"`

	// CreatedAtMilli is the Unix timestamp in milliseconds of the write.
	CreatedAtMilli int64 `json:"created_at_milli"`

	// Count is the number of persisted results.
	Count int `json:"count"`
}

// Store persists resolver results keyed by hierarchy fingerprint.
//
// Thread Safety: safe for concurrent use; BadgerDB transactions provide
// isolation.
type Store struct {
	db *badger.DB
}

// OpenStore opens a snapshot store with the given configuration.
// Callers must Close() the store when done.
func OpenStore(cfg Config) (*Store, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenStoreAt opens a persistent store at the given directory with
// production defaults.
func OpenStoreAt(path string) (*Store, error) {
	cfg := DefaultConfig()
	cfg.Path = path
	return OpenStore(cfg)
}

// OpenStoreInMemory opens an in-memory store for testing.
func OpenStoreInMemory() (*Store, error) {
	return OpenStore(InMemoryConfig())
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot persists the given results under the hierarchy fingerprint,
// replacing any previous snapshot for the same fingerprint.
//
// Outputs:
//
//	string - The assigned snapshot ID.
//	error - Non-nil if the write transaction fails.
func (s *Store) SaveSnapshot(ctx context.Context, fingerprint string, results []solid.Result) (string, error) {
	if fingerprint == "" {
		return "", fmt.Errorf("fingerprint must not be empty")
	}

	meta := snapshotMeta{
		ID:             uuid.NewString(),
		Fingerprint:    fingerprint,
		CreatedAtMilli: time.Now().UnixMilli(),
		Count:          len(results),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode snapshot meta: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Drop any previous snapshot for this fingerprint so stale results
		// for removed classes cannot survive the rewrite.
		prefix := []byte(snapshotPrefix + fingerprint + resultInfix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		stale := make([][]byte, 0)
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		if err := txn.Set([]byte(snapshotPrefix+fingerprint+metaSuffix), metaBytes); err != nil {
			return err
		}
		for _, res := range results {
			data, err := json.Marshal(res)
			if err != nil {
				return fmt.Errorf("encode result for %s: %w", res.Class, err)
			}
			key := snapshotPrefix + fingerprint + resultInfix + res.Class
			if err := txn.Set([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return meta.ID, nil
}

// LoadSnapshot returns the persisted results for the given fingerprint.
//
// Description:
//
//	Returns an empty slice (not an error) when no snapshot exists for the
//	fingerprint. Results from other fingerprints are never returned, so a
//	hierarchy change invalidates persisted state wholesale.
func (s *Store) LoadSnapshot(ctx context.Context, fingerprint string) ([]solid.Result, error) {
	results := make([]solid.Result, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		prefix := []byte(snapshotPrefix + fingerprint + resultInfix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var res solid.Result
				if err := json.Unmarshal(val, &res); err != nil {
					return fmt.Errorf("decode result %s: %w", it.Item().Key(), err)
				}
				results = append(results, res)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return results, nil
}

// HasSnapshot reports whether a snapshot exists for the fingerprint.
func (s *Store) HasSnapshot(ctx context.Context, fingerprint string) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := txn.Get([]byte(snapshotPrefix + fingerprint + metaSuffix))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("lookup snapshot: %w", err)
	}
	return found, nil
}
