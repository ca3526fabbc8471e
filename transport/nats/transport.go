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

package nats

import (
	"context"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/event"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/transport"
)

// Transport is a cohort transport over a NATS subject
type Transport struct {
	config *Config
	mu     sync.Mutex

	connected *atomic.Bool
	closed    *atomic.Bool

	connection    *nats.Conn
	subscriptions []*nats.Subscription

	codec     *event.Codec
	codecOpts []event.CodecOption

	logger log.Logger
}

// enforce compilation error
var _ transport.Transport = (*Transport)(nil)

// New creates an instance of the nats transport
func New(config *Config, opts ...Option) *Transport {
	t := &Transport{
		config:    config,
		connected: atomic.NewBool(false),
		closed:    atomic.NewBool(false),
		logger:    log.DefaultLogger,
	}

	for _, opt := range opts {
		opt.Apply(t)
	}
	t.logger = log.Component(t.logger, "transport.nats")
	return t
}

// Connect implements transport.Transport
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed.Load() {
		return errors.ErrTransportClosed
	}

	if t.connected.Load() {
		return nil
	}

	if err := t.config.Validate(); err != nil {
		return errors.NewConfigurationError(err)
	}

	codec, err := event.NewCodec(t.codecOpts...)
	if err != nil {
		return err
	}

	opts := nats.GetDefaultOptions()
	opts.Url = t.config.NatsServer
	opts.Name = t.config.ClientName
	opts.NoEcho = true
	opts.ReconnectWait = 2 * time.Second
	opts.MaxReconnect = -1
	if t.config.ConnectTimeout > 0 {
		opts.Timeout = t.config.ConnectTimeout
	}

	maxRetries := t.config.MaxConnectRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	// exponential backoff from 100ms up to the reconnect wait
	var connection *nats.Conn
	retrier := retry.NewRetrier(maxRetries, 100*time.Millisecond, opts.ReconnectWait)
	err = retrier.RunContext(ctx, func(context.Context) error {
		var connErr error
		connection, connErr = opts.Connect()
		return connErr
	})
	if err != nil {
		_ = codec.Close()
		return errors.NewConnectionError("", err)
	}

	t.connection = connection
	t.codec = codec
	t.connected.Store(true)
	t.logger.Infof("connected to cohort subject %s", t.config.subject())
	return nil
}

// Publish implements transport.Transport
func (t *Transport) Publish(_ context.Context, evt event.Event) error {
	if err := t.check(); err != nil {
		return err
	}

	data, err := t.codec.Encode(evt)
	if err != nil {
		return err
	}
	return t.connection.Publish(t.config.subject(), data)
}

// Subscribe implements transport.Transport
func (t *Transport) Subscribe(handler transport.Handler) (transport.Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(); err != nil {
		return nil, err
	}

	// nats serializes the callbacks of a subscription
	subscription, err := t.connection.Subscribe(t.config.subject(), func(msg *nats.Msg) {
		evt, err := t.codec.Decode(msg.Data)
		if err != nil {
			t.logger.Warnf("dropping undecodable cohort event: %v", err)
			return
		}
		handler(context.Background(), evt)
	})
	if err != nil {
		return nil, err
	}

	t.subscriptions = append(t.subscriptions, subscription)
	return subscription, nil
}

// Close implements transport.Transport
func (t *Transport) Close(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	if !t.connected.Load() {
		return nil
	}

	var err error
	for _, subscription := range t.subscriptions {
		if subscription != nil && subscription.IsValid() {
			err = multierr.Append(err, subscription.Unsubscribe())
		}
	}
	t.subscriptions = nil

	if t.connection != nil {
		err = multierr.Append(err, t.connection.Flush())
		t.connection.Close()
	}

	err = multierr.Append(err, t.codec.Close())
	t.connected.Store(false)
	return err
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
