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

package validation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// EndpointValidator checks a connector endpoint address.
//
// The address is either a host:port pair or an absolute URL with a host.
type EndpointValidator struct {
	address string
}

var _ Validator = (*EndpointValidator)(nil)

// NewEndpointValidator creates an instance of EndpointValidator
func NewEndpointValidator(address string) *EndpointValidator {
	return &EndpointValidator{address: strings.TrimSpace(address)}
}

// Validate implements validation.Validator.
func (v *EndpointValidator) Validate() error {
	if v.address == "" {
		return errors.New("the [endpoint address] is required")
	}

	if strings.Contains(v.address, "://") {
		u, err := url.Parse(v.address)
		if err != nil {
			return fmt.Errorf("invalid endpoint=(%s): %w", v.address, err)
		}
		if u.Host == "" {
			return fmt.Errorf("invalid endpoint=(%s): missing host", v.address)
		}
		return nil
	}

	host, port, err := net.SplitHostPort(v.address)
	if err != nil {
		return fmt.Errorf("invalid endpoint=(%s): %w", v.address, err)
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid endpoint=(%s): %w", v.address, err)
	}

	if host == "" || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid endpoint=(%s): out of range", v.address)
	}
	return nil
}
