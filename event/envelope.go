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

	"github.com/tochemey/cohort/errors"
)

// ProtocolVersion is the envelope layout version understood by this package
const ProtocolVersion = 1

// Envelope is the wire shape of an event. Exactly one section is set and it
// must match Category.
type Envelope struct {
	ProtocolVersion  int              `json:"protocolVersion"`
	Category         Category         `json:"category"`
	Timestamp        int64            `json:"timestamp"`
	Originator       Originator       `json:"originator"`
	Direction        Direction        `json:"direction,omitempty"`
	GenericErrorCode string           `json:"genericErrorCode,omitempty"`
	Registry         *RegistrySection `json:"registry,omitempty"`
	TypeDef          *TypeDefSection  `json:"typeDef,omitempty"`
	Instance         *InstanceSection `json:"instance,omitempty"`
}

// Wrap builds the envelope of an event
func Wrap(evt Event) (*Envelope, error) {
	if evt == nil {
		return nil, errors.NewErrMalformedEnvelope(fmt.Errorf("nil event"))
	}

	header := evt.EventHeader()
	env := &Envelope{
		ProtocolVersion: ProtocolVersion,
		Category:        evt.Category(),
		Timestamp:       header.Timestamp,
		Originator:      header.Originator,
		Direction:       header.Direction,
	}

	switch e := evt.(type) {
	case *RegistryEvent:
		section := e.RegistrySection
		env.Registry = &section
		if section.Error != nil {
			env.GenericErrorCode = section.Error.Code.String()
		}
	case *InstanceEvent:
		section := e.InstanceSection
		env.Instance = &section
		if section.Kind.IsError() {
			env.GenericErrorCode = section.Kind.String()
		}
	case *TypeDefEvent:
		section := e.TypeDefSection
		env.TypeDef = &section
		if section.Error != nil {
			env.GenericErrorCode = section.Error.Code.String()
		}
	}
	return env, nil
}

// Unwrap turns the envelope back into an event. Unknown protocol versions and
// envelopes whose section does not match the category are rejected.
func (x *Envelope) Unwrap() (Event, error) {
	if x.ProtocolVersion != ProtocolVersion {
		return nil, errors.NewErrUnsupportedProtocolVersion(x.ProtocolVersion)
	}

	header := Header{
		Timestamp:  x.Timestamp,
		Originator: x.Originator,
		Direction:  x.Direction,
	}

	switch x.Category {
	case CategoryRegistry:
		if x.Registry == nil {
			return nil, errors.NewErrMalformedEnvelope(fmt.Errorf("missing registry section"))
		}
		return &RegistryEvent{Header: header, RegistrySection: *x.Registry}, nil
	case CategoryInstance:
		if x.Instance == nil {
			return nil, errors.NewErrMalformedEnvelope(fmt.Errorf("missing instance section"))
		}
		return &InstanceEvent{Header: header, InstanceSection: *x.Instance}, nil
	case CategoryTypeDef:
		if x.TypeDef == nil {
			return nil, errors.NewErrMalformedEnvelope(fmt.Errorf("missing typedef section"))
		}
		return &TypeDefEvent{Header: header, TypeDefSection: *x.TypeDef}, nil
	default:
		return nil, errors.NewErrMalformedEnvelope(fmt.Errorf("unknown category %d", x.Category))
	}
}
