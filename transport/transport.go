/*
 * MIT License
 *
 * Copyright (c) 2022-2026 Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package transport defines the cohort pub/sub facility members use to
// exchange events. Implementations live in the inmem and nats sub-packages.
package transport

import (
	"context"

	"github.com/tochemey/cohort/event"
)

// Handler is invoked for every event received from the cohort.
// Calls for one subscription are serialized.
type Handler func(ctx context.Context, evt event.Event)

// Subscription is returned by Subscribe
type Subscription interface {
	// Unsubscribe stops the delivery of events to the handler
	Unsubscribe() error
}

// Transport broadcasts events to the other cohort members.
// A transport never delivers the events it published itself.
type Transport interface {
	// Connect opens the transport
	Connect(ctx context.Context) error
	// Publish broadcasts the event to the cohort
	Publish(ctx context.Context, evt event.Event) error
	// Subscribe registers a handler for inbound events
	Subscribe(handler Handler) (Subscription, error)
	// Close releases the transport and all its subscriptions
	Close(ctx context.Context) error
}
