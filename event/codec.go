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

package event

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"

	"github.com/tochemey/cohort/errors"
)

// frame flags prefixed to every encoded envelope
const (
	frameRaw  byte = 0
	frameZstd byte = 1
)

var (
	encOptions = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}
	decOptions = cbor.DecOptions{
		MaxNestedLevels: 64,
		IndefLength:     cbor.IndefLengthForbidden,
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		IntDec:          cbor.IntDecConvertSigned,
	}
)

// Codec turns events into bytes and back.
//
// Envelopes are encoded with CBOR. Each payload starts with a one byte frame
// flag telling whether the CBOR body is zstd compressed, so members with
// different compression settings can still talk to each other.
//
// A Codec is safe for concurrent use.
type Codec struct {
	encMode  cbor.EncMode
	decMode  cbor.DecMode
	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// CodecOption configures a Codec
type CodecOption func(*Codec)

// WithCompression enables zstd compression of encoded envelopes
func WithCompression() CodecOption {
	return func(c *Codec) { c.compress = true }
}

// NewCodec creates a Codec
func NewCodec(opts ...CodecOption) (*Codec, error) {
	codec := new(Codec)
	for _, opt := range opts {
		opt(codec)
	}

	var err error
	if codec.encMode, err = encOptions.EncMode(); err != nil {
		return nil, fmt.Errorf("failed to create the cbor encoder: %w", err)
	}

	if codec.decMode, err = decOptions.DecMode(); err != nil {
		return nil, fmt.Errorf("failed to create the cbor decoder: %w", err)
	}

	// the decoder is always created because peers may compress even when we do not
	if codec.decoder, err = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
		zstd.WithDecoderMaxMemory(64<<20),
	); err != nil {
		return nil, fmt.Errorf("failed to create the zstd decoder: %w", err)
	}

	if codec.compress {
		if codec.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		); err != nil {
			codec.decoder.Close()
			return nil, fmt.Errorf("failed to create the zstd encoder: %w", err)
		}
	}
	return codec, nil
}

// Encode serializes the event
func (c *Codec) Encode(evt Event) ([]byte, error) {
	env, err := Wrap(evt)
	if err != nil {
		return nil, err
	}
	return c.EncodeEnvelope(env)
}

// EncodeEnvelope serializes an envelope as is
func (c *Codec) EncodeEnvelope(env *Envelope) ([]byte, error) {
	body, err := c.encMode.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode the event envelope: %w", err)
	}

	if !c.compress {
		out := make([]byte, 0, len(body)+1)
		out = append(out, frameRaw)
		return append(out, body...), nil
	}

	out := make([]byte, 1, len(body)/2+1)
	out[0] = frameZstd
	return c.encoder.EncodeAll(body, out), nil
}

// Decode deserializes an event
func (c *Codec) Decode(data []byte) (Event, error) {
	env, err := c.DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	return env.Unwrap()
}

// DecodeEnvelope deserializes an envelope without interpreting it
func (c *Codec) DecodeEnvelope(data []byte) (*Envelope, error) {
	if len(data) < 2 {
		return nil, errors.NewErrMalformedEnvelope(fmt.Errorf("frame too short: %d bytes", len(data)))
	}

	body := data[1:]
	switch data[0] {
	case frameRaw:
	case frameZstd:
		decompressed, err := c.decoder.DecodeAll(body, nil)
		if err != nil {
			return nil, errors.NewErrMalformedEnvelope(err)
		}
		body = decompressed
	default:
		return nil, errors.NewErrMalformedEnvelope(fmt.Errorf("unknown frame flag %d", data[0]))
	}

	env := new(Envelope)
	if err := c.decMode.Unmarshal(body, env); err != nil {
		return nil, errors.NewErrMalformedEnvelope(err)
	}
	return env, nil
}

// Close releases the compression resources
func (c *Codec) Close() error {
	var err error
	if c.encoder != nil {
		err = multierr.Append(err, c.encoder.Close())
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return err
}
