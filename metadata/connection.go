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

package metadata

import (
	"maps"

	"github.com/tochemey/cohort/internal/validation"
)

// Endpoint is the network location of a repository connector
type Endpoint struct {
	Address  string `json:"address"`
	Protocol string `json:"protocol,omitempty"`
}

// Connection describes how to build a connector to a remote repository.
// It is the payload of REGISTRATION events.
type Connection struct {
	QualifiedName string            `json:"qualifiedName,omitempty"`
	ConnectorType string            `json:"connectorType"`
	Endpoint      Endpoint          `json:"endpoint"`
	Configuration map[string]string `json:"configuration,omitempty"`
}

// Validate checks that the connection is well-formed
func (c *Connection) Validate() error {
	if c == nil {
		return validation.NewBooleanValidator(false, "the [connection] is required").Validate()
	}
	return validation.New(validation.AllErrors()).
		AddValidator(validation.NewEmptyStringValidator("connectorType", c.ConnectorType)).
		AddValidator(validation.NewEndpointValidator(c.Endpoint.Address)).
		Validate()
}

// Equal reports whether both connections point at the same repository
// with the same settings
func (c *Connection) Equal(other *Connection) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.QualifiedName == other.QualifiedName &&
		c.ConnectorType == other.ConnectorType &&
		c.Endpoint == other.Endpoint &&
		maps.Equal(c.Configuration, other.Configuration)
}

// Clone returns a deep copy of the connection. Nil is preserved.
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}
	out := *c
	if c.Configuration != nil {
		out.Configuration = maps.Clone(c.Configuration)
	}
	return &out
}
