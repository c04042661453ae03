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

// Package broker fans the service notification stream out to several
// consumers without letting a slow one block the rest.
package broker

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-console/pkg/helpers/syncutil"
)

type Broker struct {
	source      <-chan models.Notification
	subscribers map[int]chan models.Notification
	done        chan struct{}
	mu          syncutil.RWMutex
	nextID      int
	closed      bool
}

func NewBroker(source <-chan models.Notification) *Broker {
	return &Broker{
		source:      source,
		subscribers: make(map[int]chan models.Notification),
		done:        make(chan struct{}),
	}
}

// Start forwards notifications until ctx is done or the source closes. All
// subscriber channels are closed on exit.
func (b *Broker) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		defer b.closeAll()
		for {
			select {
			case notif, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source channel closed")
					return
				}
				b.publish(notif)
			case <-ctx.Done():
				log.Debug().Msg("broker: context cancelled, shutting down")
				return
			}
		}
	}()
}

// Done is closed once the broker loop has exited.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) publish(notif models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- notif:
		default:
			log.Warn().
				Int("subscriber_id", id).
				Str("method", notif.Method).
				Msg("subscriber channel full, dropping notification")
		}
	}
}

// Subscribe returns a channel receiving every later notification and a
// function that ends the subscription.
func (b *Broker) Subscribe(bufferSize int) (notifs <-chan models.Notification, unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.Notification, bufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	log.Debug().Int("subscriber_id", id).Msg("new subscriber registered")

	return ch, func() { b.unsubscribe(id) }
}

func (b *Broker) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

func (b *Broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.closed = true
}
