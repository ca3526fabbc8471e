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
	"github.com/tochemey/cohort/event"
	"github.com/tochemey/cohort/eventstream"
)

// Bus is an in-process cohort shared by several transports.
// Events are delivered as encoded frames so that members never share memory.
type Bus struct {
	stream eventstream.Stream
	codec  *event.Codec
}

// NewBus creates a Bus
func NewBus() (*Bus, error) {
	codec, err := event.NewCodec()
	if err != nil {
		return nil, err
	}
	return &Bus{
		stream: eventstream.New(),
		codec:  codec,
	}, nil
}

// Close stops all deliveries on the bus
func (b *Bus) Close() error {
	b.stream.Close()
	return b.codec.Close()
}

type frame struct {
	sender string
	data   []byte
}
