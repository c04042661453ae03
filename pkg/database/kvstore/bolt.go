// Zaparoo Console
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Console.
//
// Zaparoo Console is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Console is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Console.  If not, see <http://www.gnu.org/licenses/>.

package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
)

const boltBucket = "library"

type Bolt struct {
	db    *bolt.DB
	quota int64
}

func OpenBolt(path string, quota int64) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for library store: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open library store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create library bucket: %w", err)
	}

	log.Debug().Str("path", path).Msg("opened bolt library store")
	return &Bolt{db: db, quota: quota}, nil
}

func (b *Bolt) Get(key string) (string, bool, error) {
	var (
		val   string
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		v := bucket.Get([]byte(key))
		if v == nil {
			return nil
		}
		// v is only valid inside the transaction
		val = string(v)
		found = true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return val, found, nil
}

func (b *Bolt) Set(key, value string) error {
	return b.SetMany(map[string]string{key: value})
}

func (b *Bolt) SetMany(entries map[string]string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))

		var existing int64
		err := bucket.ForEach(func(k, v []byte) error {
			if _, replaced := entries[string(k)]; !replaced {
				existing += int64(len(k) + len(v))
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := checkQuota(b.quota, existing, entries); err != nil {
			return err
		}

		for _, k := range sortedKeys(entries) {
			if err := bucket.Put([]byte(k), []byte(entries[k])); err != nil {
				return fmt.Errorf("failed to write %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt write failed: %w", err)
	}
	return nil
}

func (b *Bolt) Remove(keys ...string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		for _, k := range keys {
			if err := bucket.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt delete failed: %w", err)
	}
	return nil
}

func (b *Bolt) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close library store: %w", err)
	}
	return nil
}
