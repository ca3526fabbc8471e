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
	"github.com/tochemey/cohort/metadata"
)

// Originator identifies the server that emitted an event
type Originator struct {
	ServerName             string `json:"serverName,omitempty"`
	ServerType             string `json:"serverType,omitempty"`
	OrganizationName       string `json:"organizationName,omitempty"`
	MetadataCollectionID   string `json:"metadataCollectionId"`
	MetadataCollectionName string `json:"metadataCollectionName,omitempty"`
}

// Header carries the fields shared by all events
type Header struct {
	// Timestamp is the emission time in unix milliseconds
	Timestamp  int64      `json:"timestamp"`
	Originator Originator `json:"originator"`
	Direction  Direction  `json:"direction,omitempty"`
}

// EventHeader gives access to the shared header
func (h *Header) EventHeader() *Header {
	return h
}

// Event is the sum type exchanged between cohort members.
// It is implemented by *RegistryEvent, *InstanceEvent and *TypeDefEvent only.
type Event interface {
	Category() Category
	EventHeader() *Header
	sealed()
}

// RegistryError details a REGISTRATION_ERROR event
type RegistryError struct {
	Code    RegistryErrorCode `json:"code"`
	Message string            `json:"message,omitempty"`
	// TargetMetadataCollectionID is the member the error is addressed to
	TargetMetadataCollectionID string               `json:"targetMetadataCollectionId,omitempty"`
	TargetConnection           *metadata.Connection `json:"targetConnection,omitempty"`
}

// RegistrySection is the payload of registry events
type RegistrySection struct {
	Kind RegistryKind `json:"kind"`
	// RegistrationTimestamp is the time the member first joined, in unix milliseconds
	RegistrationTimestamp int64                `json:"registrationTimestamp,omitempty"`
	RemoteConnection      *metadata.Connection `json:"remoteConnection,omitempty"`
	Error                 *RegistryError       `json:"error,omitempty"`
}

// RegistryEvent announces membership changes
type RegistryEvent struct {
	Header
	RegistrySection
}

var _ Event = (*RegistryEvent)(nil)

func (*RegistryEvent) Category() Category { return CategoryRegistry }
func (*RegistryEvent) sealed()            {}

// NewRegistryEvent creates a registry event
func NewRegistryEvent(kind RegistryKind, registeredAt int64, conn *metadata.Connection) *RegistryEvent {
	return &RegistryEvent{
		RegistrySection: RegistrySection{
			Kind:                  kind,
			RegistrationTimestamp: registeredAt,
			RemoteConnection:      conn.Clone(),
		},
	}
}

// NewRegistrationErrorEvent creates a REGISTRATION_ERROR event addressed to target
func NewRegistrationErrorEvent(code RegistryErrorCode, target string, conn *metadata.Connection, message string) *RegistryEvent {
	return &RegistryEvent{
		RegistrySection: RegistrySection{
			Kind: RegistrationError,
			Error: &RegistryError{
				Code:                       code,
				Message:                    message,
				TargetMetadataCollectionID: target,
				TargetConnection:           conn.Clone(),
			},
		},
	}
}

// InstanceError details a conflict report
type InstanceError struct {
	Message                    string                   `json:"message,omitempty"`
	TargetMetadataCollectionID string                   `json:"targetMetadataCollectionId,omitempty"`
	TargetTypeDef              *metadata.TypeDefSummary `json:"targetTypeDef,omitempty"`
	TargetInstanceGUID         string                   `json:"targetInstanceGuid,omitempty"`
	// Other* describe the clashing copy held by the reporter
	OtherMetadataCollectionID string                   `json:"otherMetadataCollectionId,omitempty"`
	OtherOrigin               metadata.Provenance      `json:"otherOrigin,omitempty"`
	OtherTypeDef              *metadata.TypeDefSummary `json:"otherTypeDef,omitempty"`
	OtherInstanceGUID         string                   `json:"otherInstanceGuid,omitempty"`
}

// InstanceSection is the payload of instance events
type InstanceSection struct {
	Kind                     InstanceKind `json:"kind"`
	TypeDefGUID              string       `json:"typeDefGuid,omitempty"`
	TypeDefName              string       `json:"typeDefName,omitempty"`
	InstanceGUID             string       `json:"instanceGuid,omitempty"`
	HomeMetadataCollectionID string       `json:"homeMetadataCollectionId,omitempty"`

	Entity               *metadata.Entity       `json:"entity,omitempty"`
	OriginalEntity       *metadata.Entity       `json:"originalEntity,omitempty"`
	Relationship         *metadata.Relationship `json:"relationship,omitempty"`
	OriginalRelationship *metadata.Relationship `json:"originalRelationship,omitempty"`

	OriginalHomeMetadataCollectionID string                   `json:"originalHomeMetadataCollectionId,omitempty"`
	OriginalTypeDefSummary           *metadata.TypeDefSummary `json:"originalTypeDefSummary,omitempty"`
	OriginalInstanceGUID             string                   `json:"originalInstanceGuid,omitempty"`

	Error *InstanceError `json:"error,omitempty"`
}

// InstanceEvent announces a change to an entity or relationship
type InstanceEvent struct {
	Header
	InstanceSection
}

var _ Event = (*InstanceEvent)(nil)

func (*InstanceEvent) Category() Category { return CategoryInstance }
func (*InstanceEvent) sealed()            {}

// Instance returns the header of the entity or relationship carried by the event, if any
func (e *InstanceEvent) Instance() *metadata.Instance {
	switch {
	case e.Entity != nil:
		return &e.Entity.Instance
	case e.Relationship != nil:
		return &e.Relationship.Instance
	default:
		return nil
	}
}

// NewEntityEvent creates an entity event. The identifiers are copied from the entity.
func NewEntityEvent(kind InstanceKind, entity *metadata.Entity) *InstanceEvent {
	evt := &InstanceEvent{InstanceSection: InstanceSection{Kind: kind, Entity: entity.Clone()}}
	if entity != nil {
		evt.TypeDefGUID = entity.Type.GUID
		evt.TypeDefName = entity.Type.Name
		evt.InstanceGUID = entity.GUID
		evt.HomeMetadataCollectionID = entity.HomeMetadataCollectionID
	}
	return evt
}

// NewRelationshipEvent creates a relationship event. The identifiers are copied from the relationship.
func NewRelationshipEvent(kind InstanceKind, rel *metadata.Relationship) *InstanceEvent {
	evt := &InstanceEvent{InstanceSection: InstanceSection{Kind: kind, Relationship: rel.Clone()}}
	if rel != nil {
		evt.TypeDefGUID = rel.Type.GUID
		evt.TypeDefName = rel.Type.Name
		evt.InstanceGUID = rel.GUID
		evt.HomeMetadataCollectionID = rel.HomeMetadataCollectionID
	}
	return evt
}

// NewRefreshRequest creates a REFRESH_ENTITY_REQUEST or REFRESH_RELATIONSHIP_REQUEST.
// It carries identifiers only.
func NewRefreshRequest(kind InstanceKind, typeDef metadata.TypeDefSummary, guid, home string) *InstanceEvent {
	return &InstanceEvent{
		InstanceSection: InstanceSection{
			Kind:                     kind,
			TypeDefGUID:              typeDef.GUID,
			TypeDefName:              typeDef.Name,
			InstanceGUID:             guid,
			HomeMetadataCollectionID: home,
		},
	}
}

// NewConflictEvent creates a CONFLICTING_INSTANCES or CONFLICTING_TYPE event
func NewConflictEvent(kind InstanceKind, detail *InstanceError) *InstanceEvent {
	return &InstanceEvent{InstanceSection: InstanceSection{Kind: kind, Error: detail}}
}

// TypeDefErrorDetail details a TYPEDEF_ERROR event
type TypeDefErrorDetail struct {
	Code                       TypeDefErrorCode         `json:"code"`
	Message                    string                   `json:"message,omitempty"`
	TargetMetadataCollectionID string                   `json:"targetMetadataCollectionId,omitempty"`
	TargetTypeDef              *metadata.TypeDefSummary `json:"targetTypeDef,omitempty"`
	OtherTypeDef               *metadata.TypeDefSummary `json:"otherTypeDef,omitempty"`
}

// TypeDefSection is the payload of typedef events
type TypeDefSection struct {
	Kind TypeDefKind `json:"kind"`

	TypeDef          *metadata.TypeDef          `json:"typeDef,omitempty"`
	AttributeTypeDef *metadata.AttributeTypeDef `json:"attributeTypeDef,omitempty"`

	// Original* identify the definition before a re-identification or a delete
	OriginalTypeDef          *metadata.TypeDefSummary `json:"originalTypeDef,omitempty"`
	OriginalAttributeTypeDef *metadata.TypeDefLink    `json:"originalAttributeTypeDef,omitempty"`
	Error                    *TypeDefErrorDetail      `json:"error,omitempty"`
}

// TypeDefEvent announces a change to a type definition
type TypeDefEvent struct {
	Header
	TypeDefSection
}

var _ Event = (*TypeDefEvent)(nil)

func (*TypeDefEvent) Category() Category { return CategoryTypeDef }
func (*TypeDefEvent) sealed()            {}

// NewTypeDefEvent creates an event carrying a TypeDef
func NewTypeDefEvent(kind TypeDefKind, def *metadata.TypeDef) *TypeDefEvent {
	return &TypeDefEvent{TypeDefSection: TypeDefSection{Kind: kind, TypeDef: def.Clone()}}
}

// NewAttributeTypeDefEvent creates an event carrying an AttributeTypeDef
func NewAttributeTypeDefEvent(kind TypeDefKind, def *metadata.AttributeTypeDef) *TypeDefEvent {
	return &TypeDefEvent{TypeDefSection: TypeDefSection{Kind: kind, AttributeTypeDef: def.Clone()}}
}

// NewTypeDefErrorEvent creates a TYPEDEF_ERROR event
func NewTypeDefErrorEvent(detail *TypeDefErrorDetail) *TypeDefEvent {
	return &TypeDefEvent{TypeDefSection: TypeDefSection{Kind: TypeDefError, Error: detail}}
}
