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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type validationTestSuite struct {
	suite.Suite
}

func TestValidation(t *testing.T) {
	suite.Run(t, new(validationTestSuite))
}

func (s *validationTestSuite) TestNewChain() {
	s.Run("new chain without option", func() {
		chain := New()
		s.Assert().NotNil(chain)
		s.Assert().False(chain.failFast)
	})
	s.Run("new chain with options", func() {
		s.Assert().True(New(FailFast()).failFast)
		s.Assert().False(New(AllErrors()).failFast)
	})
}

func (s *validationTestSuite) TestValidate() {
	s.Run("with single validator", func() {
		err := New().AddValidator(NewEmptyStringValidator("field", "")).Validate()
		s.Assert().EqualError(err, "the [field] is required")
	})
	s.Run("with FailFast option", func() {
		err := New(FailFast()).
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "this is false").
			Validate()
		s.Assert().EqualError(err, "the [field] is required")
	})
	s.Run("with AllErrors option", func() {
		err := New(AllErrors()).
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "this is false").
			Validate()
		s.Assert().EqualError(err, "the [field] is required; this is false")
	})
	s.Run("validating twice does not accumulate", func() {
		chain := New().AddAssertion(false, "this is false")
		s.Assert().EqualError(chain.Validate(), "this is false")
		s.Assert().EqualError(chain.Validate(), "this is false")
	})
	s.Run("with no violation", func() {
		s.Assert().NoError(New().AddAssertion(true, "").AddValidator(NewEmptyStringValidator("f", "v")).Validate())
	})
}

func TestEndpointValidator(t *testing.T) {
	t.Run("With host and port", func(t *testing.T) {
		assert.NoError(t, NewEndpointValidator("127.0.0.1:4222").Validate())
	})
	t.Run("With URL", func(t *testing.T) {
		assert.NoError(t, NewEndpointValidator("https://repo.example.com/servers/cocoMDS1").Validate())
	})
	t.Run("With URL missing host", func(t *testing.T) {
		assert.Error(t, NewEndpointValidator("file:///tmp/repo").Validate())
	})
	t.Run("With blank address", func(t *testing.T) {
		assert.Error(t, NewEndpointValidator("  ").Validate())
	})
	t.Run("With invalid port", func(t *testing.T) {
		assert.Error(t, NewEndpointValidator("127.0.0.1:655387").Validate())
		assert.Error(t, NewEndpointValidator("127.0.0.1:abc").Validate())
	})
	t.Run("With missing host", func(t *testing.T) {
		assert.Error(t, NewEndpointValidator(":3222").Validate())
	})
}

func TestIdentifierValidator(t *testing.T) {
	t.Run("With happy path", func(t *testing.T) {
		require.NoError(t, NewIdentifierValidator("id", "a8f2-11e0.metadata:collection").Validate())
	})
	t.Run("With invalid length", func(t *testing.T) {
		require.Error(t, NewIdentifierValidator("id", strings.Repeat("a", 300)).Validate())
	})
	t.Run("With invalid characters", func(t *testing.T) {
		require.Error(t, NewIdentifierValidator("id", "$omeN@me").Validate())
	})
	t.Run("With empty value", func(t *testing.T) {
		require.Error(t, NewIdentifierValidator("id", "").Validate())
	})
}
