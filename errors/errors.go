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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrCohortNotConnected is returned when a component that needs the
	// connector manager is used before the local member has joined a cohort.
	ErrCohortNotConnected = errors.New("cohort is not connected")

	// ErrInvalidConfig is returned when the member configuration is incomplete.
	ErrInvalidConfig = errors.New("invalid cohort configuration")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("cohort member has already started")

	// ErrNotStarted is returned when an operation requires a started member.
	ErrNotStarted = errors.New("cohort member is not started")

	// ErrInvalidConnection is returned when a connection descriptor is malformed.
	ErrInvalidConnection = errors.New("invalid remote connection")

	// ErrUnknownConnectorType is returned when no factory is registered for a connector type.
	ErrUnknownConnectorType = errors.New("unknown connector type")

	// ErrConnectorClosed is returned when a call is made on a disconnected connector.
	ErrConnectorClosed = errors.New("connector is disconnected")

	// ErrLocalConnectorAlreadySet is returned when the local connector is registered twice.
	ErrLocalConnectorAlreadySet = errors.New("local connector is already set")

	// ErrConsumerNotFound is returned when unregistering an unknown consumer.
	ErrConsumerNotFound = errors.New("connector consumer not found")

	// ErrConflictingCollectionID is returned when two different connections
	// claim the same metadata collection id.
	ErrConflictingCollectionID = errors.New("conflicting metadata collection id")

	// ErrConflictingInstance is returned when two repositories claim the same instance guid.
	ErrConflictingInstance = errors.New("conflicting instances")

	// ErrConflictingType is returned when an instance type clashes with the local type.
	ErrConflictingType = errors.New("conflicting type")

	// ErrConflictingTypeDef is returned when two type definitions clash.
	ErrConflictingTypeDef = errors.New("conflicting type definitions")

	// ErrInvalidTypeDef is returned when a type definition fails structural validation.
	ErrInvalidTypeDef = errors.New("invalid type definition")

	// ErrTypeDefNotFound is returned when a type cannot be resolved by guid or name.
	ErrTypeDefNotFound = errors.New("type definition not found")

	// ErrNoRepositories is returned when the cohort has no live member.
	ErrNoRepositories = errors.New("no repositories available")

	// ErrNoMemberResponded is returned when every member failed a federated call.
	ErrNoMemberResponded = errors.New("no cohort member responded")

	// ErrInstanceNotFound is returned when a repository does not hold an instance.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrNoHomeMetadataCollection is returned when an instance carries no home collection id.
	ErrNoHomeMetadataCollection = errors.New("instance has no home metadata collection")

	// ErrInvalidInstance is returned when an instance is nil or has no guid.
	ErrInvalidInstance = errors.New("invalid instance")

	// ErrMemberTimeout is returned when a member does not answer within its time budget.
	ErrMemberTimeout = errors.New("cohort member timed out")

	// ErrUnsupportedProtocolVersion is returned when an envelope carries an unknown protocol version.
	ErrUnsupportedProtocolVersion = errors.New("unsupported event protocol version")

	// ErrMalformedEnvelope is returned when an envelope cannot be decoded into an event.
	ErrMalformedEnvelope = errors.New("malformed event envelope")

	// ErrTransportClosed is returned when publishing on a closed transport.
	ErrTransportClosed = errors.New("cohort transport is closed")

	// ErrTransportNotConnected is returned when the transport is used before Connect.
	ErrTransportNotConnected = errors.New("cohort transport is not connected")

	// ErrStoreClosed is returned when a registry store is used after Close.
	ErrStoreClosed = errors.New("registry store is closed")
)

// NewErrNoRepositories formats ErrNoRepositories for the given access service.
func NewErrNoRepositories(accessService string) *NotFoundError {
	return &NotFoundError{
		AccessService: accessService,
		err:           fmt.Errorf("accessService=(%s) %w", accessService, ErrNoRepositories),
	}
}

// NewErrNoMemberResponded reports a federated call that no member answered.
// cause carries the combined member failures.
func NewErrNoMemberResponded(accessService string, cause error) *NotFoundError {
	return &NotFoundError{
		AccessService: accessService,
		err:           errors.Join(fmt.Errorf("accessService=(%s) %w", accessService, ErrNoMemberResponded), cause),
	}
}

// NewErrInstanceNotFound formats ErrInstanceNotFound for the given guid.
func NewErrInstanceNotFound(guid string) *NotFoundError {
	return &NotFoundError{err: fmt.Errorf("guid=(%s) %w", guid, ErrInstanceNotFound)}
}

// NewErrMemberTimeout formats ErrMemberTimeout for the given member.
func NewErrMemberTimeout(collectionID string, cause error) *TransientError {
	return &TransientError{
		MetadataCollectionID: collectionID,
		err:                  fmt.Errorf("member=(%s) %w: %w", collectionID, ErrMemberTimeout, cause),
	}
}

// NewErrInvalidConnection wraps a validation failure with ErrInvalidConnection.
func NewErrInvalidConnection(collectionID string, err error) *ConnectionError {
	return &ConnectionError{
		MetadataCollectionID: collectionID,
		err:                  errors.Join(fmt.Errorf("member=(%s) %w", collectionID, ErrInvalidConnection), err),
	}
}

// NewErrConflictingCollectionID formats ErrConflictingCollectionID for the given id.
func NewErrConflictingCollectionID(collectionID string) *ConflictError {
	return &ConflictError{err: fmt.Errorf("metadataCollectionID=(%s) %w", collectionID, ErrConflictingCollectionID)}
}

// NewErrConflictingInstance formats ErrConflictingInstance for the given guid.
func NewErrConflictingInstance(guid, otherCollectionID string) *ConflictError {
	return &ConflictError{err: fmt.Errorf("guid=(%s) other=(%s) %w", guid, otherCollectionID, ErrConflictingInstance)}
}

// NewErrConflictingType formats ErrConflictingType for the given type guid.
func NewErrConflictingType(typeGUID, typeName string) *ConflictError {
	return &ConflictError{err: fmt.Errorf("type=(%s/%s) %w", typeGUID, typeName, ErrConflictingType)}
}

// NewErrConflictingTypeDef formats ErrConflictingTypeDef for the given type name.
func NewErrConflictingTypeDef(name string) *ConflictError {
	return &ConflictError{err: fmt.Errorf("typeDef=(%s) %w", name, ErrConflictingTypeDef)}
}

// NewErrInvalidTypeDef wraps a structural violation with ErrInvalidTypeDef.
func NewErrInvalidTypeDef(name string, err error) error {
	return errors.Join(fmt.Errorf("typeDef=(%s) %w", name, ErrInvalidTypeDef), err)
}

// NewErrUnsupportedProtocolVersion formats ErrUnsupportedProtocolVersion.
func NewErrUnsupportedProtocolVersion(version int) error {
	return fmt.Errorf("version=(%d) %w", version, ErrUnsupportedProtocolVersion)
}

// NewErrMalformedEnvelope wraps a decoding failure with ErrMalformedEnvelope.
func NewErrMalformedEnvelope(err error) error {
	return errors.Join(ErrMalformedEnvelope, err)
}

// ConfigurationError is returned when the cohort plumbing is not in place,
// typically because no connector manager is available.
type ConfigurationError struct {
	err error
}

// enforce compilation error
var _ error = (*ConfigurationError)(nil)

// NewConfigurationError returns an instance of ConfigurationError
func NewConfigurationError(err error) *ConfigurationError {
	return &ConfigurationError{err: fmt.Errorf("configuration error: %w", err)}
}

// Error implements the standard error interface
func (e *ConfigurationError) Error() string {
	return e.err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.err
}

// ConnectionError is returned when a remote connection descriptor cannot
// be turned into a connector.
type ConnectionError struct {
	MetadataCollectionID string
	err                  error
}

var _ error = (*ConnectionError)(nil)

// NewConnectionError returns an instance of ConnectionError
func NewConnectionError(collectionID string, err error) *ConnectionError {
	return &ConnectionError{MetadataCollectionID: collectionID, err: err}
}

// Error implements the standard error interface
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.err)
}

func (e *ConnectionError) Unwrap() error {
	return e.err
}

// ConflictError reports clashing collection ids, instances or types.
type ConflictError struct {
	err error
}

var _ error = (*ConflictError)(nil)

// Error implements the standard error interface
func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %v", e.err)
}

func (e *ConflictError) Unwrap() error {
	return e.err
}

// NotFoundError is returned when no cohort member can serve a request.
type NotFoundError struct {
	// AccessService names the caller when the error comes from a federated connector
	AccessService string
	err           error
}

var _ error = (*NotFoundError)(nil)

// Error implements the standard error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %v", e.err)
}

func (e *NotFoundError) Unwrap() error {
	return e.err
}

// TransientError marks a per-member failure that may succeed on retry.
type TransientError struct {
	MetadataCollectionID string
	err                  error
}

var _ error = (*TransientError)(nil)

// NewTransientError returns an instance of TransientError
func NewTransientError(collectionID string, err error) *TransientError {
	return &TransientError{MetadataCollectionID: collectionID, err: err}
}

// Error implements the standard error interface
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.err)
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// PanicError wraps a recovered panic raised while processing an event.
type PanicError struct {
	err error
}

var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}
