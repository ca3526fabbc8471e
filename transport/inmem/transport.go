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

package inmem

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/event"
	"github.com/tochemey/cohort/eventstream"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/transport"
)

// Transport is a cohort transport backed by a Bus
type Transport struct {
	id    string
	bus   *Bus
	topic string

	mu            sync.Mutex
	subscriptions map[string]*subscription

	connected *atomic.Bool
	closed    *atomic.Bool

	logger log.Logger
}

// enforce compilation error
var _ transport.Transport = (*Transport)(nil)

// New creates a transport joining the given cohort on the bus
func New(bus *Bus, cohortName string, opts ...Option) *Transport {
	t := &Transport{
		id:            uuid.NewString(),
		bus:           bus,
		topic:         cohortName,
		subscriptions: make(map[string]*subscription),
		connected:     atomic.NewBool(false),
		closed:        atomic.NewBool(false),
		logger:        log.DefaultLogger,
	}

	for _, opt := range opts {
		opt.Apply(t)
	}
	t.logger = log.Component(t.logger, "transport.inmem")
	return t
}

// Connect implements transport.Transport
func (t *Transport) Connect(context.Context) error {
	if t.closed.Load() {
		return errors.ErrTransportClosed
	}
	t.connected.Store(true)
	return nil
}

// Publish implements transport.Transport
func (t *Transport) Publish(_ context.Context, evt event.Event) error {
	if err := t.check(); err != nil {
		return err
	}

	data, err := t.bus.codec.Encode(evt)
	if err != nil {
		return err
	}

	t.bus.stream.Publish(t.topic, frame{sender: t.id, data: data})
	return nil
}

// Subscribe implements transport.Transport
func (t *Transport) Subscribe(handler transport.Handler) (transport.Subscription, error) {
	if err := t.check(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		owner:      t,
		subscriber: t.bus.stream.AddSubscriber(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	t.bus.stream.Subscribe(sub.subscriber, t.topic)

	t.mu.Lock()
	t.subscriptions[sub.subscriber.ID()] = sub
	t.mu.Unlock()

	go sub.deliver(ctx, handler)
	return sub, nil
}

// Close implements transport.Transport
func (t *Transport) Close(context.Context) error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.mu.Lock()
	subs := make([]*subscription, 0, len(t.subscriptions))
	for _, sub := range t.subscriptions {
		subs = append(subs, sub)
	}
	t.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	t.connected.Store(false)
	return nil
}

func (t *Transport) check() error {
	if t.closed.Load() {
		return errors.ErrTransportClosed
	}
	if !t.connected.Load() {
		return errors.ErrTransportNotConnected
	}
	return nil
}

type subscription struct {
	owner      *Transport
	subscriber eventstream.Subscriber
	cancel     context.CancelFunc
	done       chan struct{}
	once       sync.Once
}

func (s *subscription) deliver(ctx context.Context, handler transport.Handler) {
	defer close(s.done)
	for {
		msg, ok := s.subscriber.Next(ctx)
		if !ok {
			return
		}

		f, ok := msg.Payload().(frame)
		if !ok || f.sender == s.owner.id {
			continue
		}

		evt, err := s.owner.bus.codec.Decode(f.data)
		if err != nil {
			s.owner.logger.Warnf("dropping undecodable cohort event: %v", err)
			continue
		}
		handler(ctx, evt)
	}
}

// Unsubscribe implements transport.Subscription
func (s *subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.cancel()
		s.owner.bus.stream.RemoveSubscriber(s.subscriber)
		<-s.done

		s.owner.mu.Lock()
		delete(s.owner.subscriptions, s.subscriber.ID())
		s.owner.mu.Unlock()
	})
	return nil
}
