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

package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ZaparooProject/zaparoo-console/pkg/api/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func recv(t *testing.T, ch <-chan models.Notification) models.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "channel closed")
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return models.Notification{}
	}
}

func waitClosed(t *testing.T, ch <-chan models.Notification) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel was not closed")
		}
	}
}

func TestBroker_FansOutToEverySubscriber(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := make(chan models.Notification)
	b := NewBroker(source)

	a, _ := b.Subscribe(10)
	c, _ := b.Subscribe(10)
	b.Start(ctx)

	source <- models.Notification{Method: models.NotificationLibraryUpdated}
	source <- models.Notification{Method: models.NotificationCursorChanged}

	for _, ch := range []<-chan models.Notification{a, c} {
		assert.Equal(t, models.NotificationLibraryUpdated, recv(t, ch).Method)
		assert.Equal(t, models.NotificationCursorChanged, recv(t, ch).Method)
	}

	cancel()
	<-b.Done()
}

func TestBroker_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker(make(chan models.Notification))
	ch, unsubscribe := b.Subscribe(1)
	unsubscribe()
	unsubscribe()

	waitClosed(t, ch)
	assert.Empty(t, b.subscribers)
}

func TestBroker_FullSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := make(chan models.Notification)
	b := NewBroker(source)

	slow, _ := b.Subscribe(1)
	fast, _ := b.Subscribe(10)
	b.Start(ctx)

	for range 5 {
		source <- models.Notification{Method: models.NotificationEmulatorPaused}
	}

	for range 5 {
		recv(t, fast)
	}

	cancel()
	<-b.Done()

	count := 0
	for range slow {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestBroker_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	b := NewBroker(make(chan models.Notification))
	ch, _ := b.Subscribe(1)
	b.Start(ctx)

	cancel()
	waitClosed(t, ch)
	<-b.Done()

	late, _ := b.Subscribe(1)
	waitClosed(t, late)
}

func TestBroker_StopsOnSourceClose(t *testing.T) {
	t.Parallel()

	source := make(chan models.Notification)
	b := NewBroker(source)
	ch, _ := b.Subscribe(1)
	b.Start(context.Background())

	close(source)
	waitClosed(t, ch)
	<-b.Done()
}

func TestBroker_ConcurrentSubscribe(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	source := make(chan models.Notification, 100)
	b := NewBroker(source)
	b.Start(ctx)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, unsubscribe := b.Subscribe(5)
			source <- models.Notification{Method: models.NotificationLibraryReset}
			unsubscribe()
		}()
	}
	wg.Wait()

	cancel()
	<-b.Done()
}
