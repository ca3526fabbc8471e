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

package eventstream

import (
	"context"
	"sync"

	gods "github.com/Workiva/go-datastructures/queue"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Subscriber receives the messages published on the topics it subscribed to.
//
// Subscribers are created by a Stream via AddSubscriber. Each subscriber owns
// an unbounded FIFO mailbox so that a slow consumer never blocks publishers.
type Subscriber interface {
	// ID returns the subscriber unique identifier
	ID() string
	// Active reports whether the subscriber still accepts messages
	Active() bool
	// Topics returns the topics the subscriber is attached to
	Topics() []string
	// Next blocks until a message is available, the context is done or the
	// subscriber is shut down. The boolean is false when no message was read.
	Next(ctx context.Context) (*Message, bool)
	// Iterator drains the messages buffered at the time of invocation
	Iterator() chan *Message
	// Shutdown stops the subscriber and releases any blocked reader
	Shutdown()

	signal(message *Message)
	subscribe(topic string)
	unsubscribe(topic string)
}

type subscriber struct {
	id string

	topicsMu sync.Mutex
	topics   map[string]struct{}

	mailbox *gods.Queue
	active  *atomic.Bool
}

var _ Subscriber = (*subscriber)(nil)

func newSubscriber() *subscriber {
	return &subscriber{
		id:      uuid.NewString(),
		topics:  make(map[string]struct{}),
		mailbox: gods.New(32),
		active:  atomic.NewBool(true),
	}
}

func (s *subscriber) ID() string {
	return s.id
}

func (s *subscriber) Active() bool {
	return s.active.Load()
}

func (s *subscriber) Topics() []string {
	s.topicsMu.Lock()
	defer s.topicsMu.Unlock()

	topics := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		topics = append(topics, topic)
	}
	return topics
}

func (s *subscriber) Next(ctx context.Context) (*Message, bool) {
	type result struct {
		items []any
		err   error
	}

	// fast path
	if s.mailbox.Len() > 0 {
		items, err := s.mailbox.Get(1)
		if err == nil && len(items) == 1 {
			return items[0].(*Message), true
		}
	}

	if ctx.Done() == nil {
		items, err := s.mailbox.Get(1)
		if err != nil || len(items) == 0 {
			return nil, false
		}
		return items[0].(*Message), true
	}

	// Get cannot be cancelled, so we poll the mailbox in short rounds
	// until a message arrives or the context ends.
	for {
		select {
		case <-ctx.Done():
			return nil, false
		default:
		}

		items, err := s.mailbox.Poll(1, pollInterval)
		switch {
		case err == nil && len(items) == 1:
			return items[0].(*Message), true
		case err == gods.ErrTimeout:
			continue
		default:
			return nil, false
		}
	}
}

func (s *subscriber) Iterator() chan *Message {
	n := s.mailbox.Len()
	out := make(chan *Message, n)
	if n > 0 {
		items, _ := s.mailbox.Get(n)
		for _, item := range items {
			out <- item.(*Message)
		}
	}
	close(out)
	return out
}

func (s *subscriber) Shutdown() {
	if s.active.CompareAndSwap(true, false) {
		s.mailbox.Dispose()
	}
}

func (s *subscriber) signal(message *Message) {
	if s.active.Load() {
		_ = s.mailbox.Put(message)
	}
}

func (s *subscriber) subscribe(topic string) {
	s.topicsMu.Lock()
	s.topics[topic] = struct{}{}
	s.topicsMu.Unlock()
}

func (s *subscriber) unsubscribe(topic string) {
	s.topicsMu.Lock()
	delete(s.topics, topic)
	s.topicsMu.Unlock()
}
