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
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
)

// Memory is an in-process store, used when persistence is disabled and in
// tests.
type Memory struct {
	vals   map[string]string
	quota  int64
	mu     syncutil.RWMutex
	closed bool
}

func NewMemory(quota int64) *Memory {
	return &Memory{
		vals:  make(map[string]string),
		quota: quota,
	}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	return m.SetMany(map[string]string{key: value})
}

func (m *Memory) SetMany(entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	var existing int64
	for k, v := range m.vals {
		if _, replaced := entries[k]; !replaced {
			existing += entrySize(k, v)
		}
	}
	if err := checkQuota(m.quota, existing, entries); err != nil {
		return err
	}

	for k, v := range entries {
		m.vals[k] = v
	}
	return nil
}

func (m *Memory) Remove(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, k := range keys {
		delete(m.vals, k)
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
