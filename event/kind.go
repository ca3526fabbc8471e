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

// Category identifies which section an envelope carries
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryRegistry
	CategoryTypeDef
	CategoryInstance
)

var categoryNames = [...]string{"UNKNOWN", "REGISTRY", "TYPEDEF", "INSTANCE"}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return categoryNames[CategoryUnknown]
}

// Direction tells whether an event was received from or sent to the cohort
type Direction uint8

const (
	DirectionUnknown Direction = iota
	DirectionInbound
	DirectionOutbound
)

var directionNames = [...]string{"UNKNOWN", "INBOUND", "OUTBOUND"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return directionNames[DirectionUnknown]
}

// RegistryKind is the type of a registry event
type RegistryKind uint8

const (
	RegistryKindUnknown RegistryKind = iota
	Registration
	RefreshRegistrationRequest
	ReRegistration
	Unregistration
	RegistrationError
)

var registryKindNames = [...]string{
	"UNKNOWN_REGISTRY_EVENT",
	"REGISTRATION_EVENT",
	"REFRESH_REGISTRATION_REQUEST",
	"RE_REGISTRATION_EVENT",
	"UNREGISTRATION_EVENT",
	"REGISTRATION_ERROR_EVENT",
}

func (k RegistryKind) String() string {
	if int(k) < len(registryKindNames) {
		return registryKindNames[k]
	}
	return registryKindNames[RegistryKindUnknown]
}

// RegistryErrorCode qualifies a REGISTRATION_ERROR event
type RegistryErrorCode uint8

const (
	RegistryErrorNone RegistryErrorCode = iota
	BadRemoteConnection
	ConflictingCollectionID
)

var registryErrorNames = [...]string{"", "BAD_REMOTE_CONNECTION", "CONFLICTING_COLLECTION_ID"}

func (c RegistryErrorCode) String() string {
	if int(c) < len(registryErrorNames) {
		return registryErrorNames[c]
	}
	return "UNKNOWN_REGISTRY_ERROR"
}

// InstanceKind is the type of an instance event
type InstanceKind uint8

const (
	InstanceKindUnknown InstanceKind = iota
	NewEntity
	UpdatedEntity
	UndoneEntity
	DeletedEntity
	PurgedEntity
	RestoredEntity
	ReHomedEntity
	ReIdentifiedEntity
	ReTypedEntity
	RefreshEntityRequest
	RefreshedEntity
	NewRelationship
	UpdatedRelationship
	UndoneRelationship
	DeletedRelationship
	PurgedRelationship
	RestoredRelationship
	ReHomedRelationship
	ReIdentifiedRelationship
	ReTypedRelationship
	RefreshRelationshipRequest
	RefreshedRelationship
	ConflictingInstances
	ConflictingType
)

var instanceKindNames = [...]string{
	"UNKNOWN_INSTANCE_EVENT",
	"NEW_ENTITY_EVENT",
	"UPDATED_ENTITY_EVENT",
	"UNDONE_ENTITY_EVENT",
	"DELETED_ENTITY_EVENT",
	"PURGED_ENTITY_EVENT",
	"RESTORED_ENTITY_EVENT",
	"RE_HOMED_ENTITY_EVENT",
	"RE_IDENTIFIED_ENTITY_EVENT",
	"RE_TYPED_ENTITY_EVENT",
	"REFRESH_ENTITY_REQUEST",
	"REFRESHED_ENTITY_EVENT",
	"NEW_RELATIONSHIP_EVENT",
	"UPDATED_RELATIONSHIP_EVENT",
	"UNDONE_RELATIONSHIP_EVENT",
	"DELETED_RELATIONSHIP_EVENT",
	"PURGED_RELATIONSHIP_EVENT",
	"RESTORED_RELATIONSHIP_EVENT",
	"RE_HOMED_RELATIONSHIP_EVENT",
	"RE_IDENTIFIED_RELATIONSHIP_EVENT",
	"RE_TYPED_RELATIONSHIP_EVENT",
	"REFRESH_RELATIONSHIP_REQUEST",
	"REFRESHED_RELATIONSHIP_EVENT",
	"CONFLICTING_INSTANCES_EVENT",
	"CONFLICTING_TYPE_EVENT",
}

func (k InstanceKind) String() string {
	if int(k) < len(instanceKindNames) {
		return instanceKindNames[k]
	}
	return instanceKindNames[InstanceKindUnknown]
}

// IsRelationship reports whether the kind applies to relationships
func (k InstanceKind) IsRelationship() bool {
	return k >= NewRelationship && k <= RefreshedRelationship
}

// IsEntity reports whether the kind applies to entities
func (k InstanceKind) IsEntity() bool {
	return k >= NewEntity && k <= RefreshedEntity
}

// IsError reports whether the kind is a conflict report
func (k InstanceKind) IsError() bool {
	return k == ConflictingInstances || k == ConflictingType
}

// TypeDefKind is the type of a typedef event
type TypeDefKind uint8

const (
	TypeDefKindUnknown TypeDefKind = iota
	NewTypeDef
	NewAttributeTypeDef
	UpdatedTypeDef
	DeletedTypeDef
	DeletedAttributeTypeDef
	ReIdentifiedTypeDef
	ReIdentifiedAttributeTypeDef
	TypeDefError
)

var typeDefKindNames = [...]string{
	"UNKNOWN_TYPEDEF_EVENT",
	"NEW_TYPEDEF_EVENT",
	"NEW_ATTRIBUTE_TYPEDEF_EVENT",
	"UPDATED_TYPEDEF_EVENT",
	"DELETED_TYPEDEF_EVENT",
	"DELETED_ATTRIBUTE_TYPEDEF_EVENT",
	"RE_IDENTIFIED_TYPEDEF_EVENT",
	"RE_IDENTIFIED_ATTRIBUTE_TYPEDEF_EVENT",
	"TYPEDEF_ERROR_EVENT",
}

func (k TypeDefKind) String() string {
	if int(k) < len(typeDefKindNames) {
		return typeDefKindNames[k]
	}
	return typeDefKindNames[TypeDefKindUnknown]
}

// TypeDefErrorCode qualifies a TYPEDEF_ERROR event
type TypeDefErrorCode uint8

const (
	TypeDefErrorNone TypeDefErrorCode = iota
	ConflictingTypeDefs
	ConflictingAttributeTypeDefs
	InvalidTypeDef
)

var typeDefErrorNames = [...]string{"", "CONFLICTING_TYPEDEFS", "CONFLICTING_ATTRIBUTE_TYPEDEFS", "INVALID_TYPEDEF"}

func (c TypeDefErrorCode) String() string {
	if int(c) < len(typeDefErrorNames) {
		return typeDefErrorNames[c]
	}
	return "UNKNOWN_TYPEDEF_ERROR"
}
