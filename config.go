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

package cohort

import (
	"os"
	"time"

	"github.com/tochemey/cohort/connector"
	"github.com/tochemey/cohort/federation"
	"github.com/tochemey/cohort/internal/validation"
	"github.com/tochemey/cohort/metadata"
	"github.com/tochemey/cohort/processor"
)

const (
	// DefaultRefreshTimeout bounds the lookup made to answer a refresh request
	DefaultRefreshTimeout = 5 * time.Second
)

// LocalRepository is the metadata repository hosted by a cohort member.
// It is implemented by *repository.Memory.
type LocalRepository interface {
	processor.ReferenceCopyStore
	// Connector returns the connector the cohort uses to read the repository
	Connector() connector.Connector
}

// Config defines the identity and the settings of a cohort member
type Config struct {
	serverName       string
	serverType       string
	organizationName string
	collectionID     string
	collectionName   string
	connection       *metadata.Connection
	repository       LocalRepository
	memberTimeout    time.Duration
	refreshTimeout   time.Duration
	maxConcurrency   int
	registryPath     string
}

// enforce compilation error
var _ validation.Validator = (*Config)(nil)

// NewConfig creates the configuration of the member hosting the given
// repository. connection is what the other members use to reach it.
func NewConfig(collectionID string, connection *metadata.Connection, repository LocalRepository) *Config {
	hostname, _ := os.Hostname()
	return &Config{
		serverName:     hostname,
		collectionID:   collectionID,
		connection:     connection.Clone(),
		repository:     repository,
		memberTimeout:  federation.DefaultMemberTimeout,
		refreshTimeout: DefaultRefreshTimeout,
		maxConcurrency: federation.DefaultMaxConcurrency,
	}
}

// WithServerName sets the name of the server hosting the repository.
// It defaults to the host name.
func (x *Config) WithServerName(name string) *Config {
	x.serverName = name
	return x
}

// WithServerType sets the type of the server hosting the repository
func (x *Config) WithServerType(serverType string) *Config {
	x.serverType = serverType
	return x
}

// WithOrganizationName sets the organization operating the server
func (x *Config) WithOrganizationName(name string) *Config {
	x.organizationName = name
	return x
}

// WithMetadataCollectionName sets the display name of the metadata collection
func (x *Config) WithMetadataCollectionName(name string) *Config {
	x.collectionName = name
	return x
}

// WithMemberTimeout sets how long a federated query waits for one member
func (x *Config) WithMemberTimeout(timeout time.Duration) *Config {
	x.memberTimeout = timeout
	return x
}

// WithRefreshTimeout sets how long the answer to a refresh request may take
func (x *Config) WithRefreshTimeout(timeout time.Duration) *Config {
	x.refreshTimeout = timeout
	return x
}

// WithMaxConcurrency caps the number of members a federated query calls at once
func (x *Config) WithMaxConcurrency(limit int) *Config {
	x.maxConcurrency = limit
	return x
}

// WithRegistryPath persists the cohort registry in a bbolt file at path.
// A restarted member then rejoins with its original registration.
func (x *Config) WithRegistryPath(path string) *Config {
	x.registryPath = path
	return x
}

// MetadataCollectionID returns the id of the local metadata collection
func (x *Config) MetadataCollectionID() string {
	return x.collectionID
}

// Validate implements validation.Validator
func (x *Config) Validate() error {
	if err := validation.
		New(validation.AllErrors()).
		AddValidator(validation.NewIdentifierValidator("metadataCollectionID", x.collectionID)).
		AddValidator(validation.NewEmptyStringValidator("serverName", x.serverName)).
		AddAssertion(x.repository != nil, "the local repository is required").
		AddAssertion(x.memberTimeout > 0, "member timeout must be positive").
		AddAssertion(x.refreshTimeout > 0, "refresh timeout must be positive").
		AddAssertion(x.maxConcurrency > 0, "max concurrency must be positive").
		Validate(); err != nil {
		return err
	}
	return x.connection.Validate()
}
