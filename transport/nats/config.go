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
	"fmt"
	"time"

	"github.com/tochemey/cohort/internal/validation"
)

const defaultSubjectPrefix = "cohort"

// Config represents the nats transport configuration
type Config struct {
	// NatsServer defines the nats server in the format nats://host:port
	NatsServer string
	// CohortName is the cohort the member joins. Events are published on <SubjectPrefix>.<CohortName>
	CohortName string
	// SubjectPrefix overrides the default subject prefix
	SubjectPrefix string
	// ClientName is reported to the nats server
	ClientName string
	// ConnectTimeout bounds every connection attempt
	ConnectTimeout time.Duration
	// MaxConnectRetries is the number of connection attempts before giving up
	MaxConnectRetries int
}

// Validate checks whether the given configuration is valid
func (x Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("NatsServer", x.NatsServer)).
		AddValidator(validation.NewEmptyStringValidator("CohortName", x.CohortName)).
		AddValidator(validation.NewEndpointValidator(x.NatsServer)).
		Validate()
}

func (x Config) subject() string {
	prefix := x.SubjectPrefix
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	return fmt.Sprintf("%s.%s", prefix, x.CohortName)
}
