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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/metadata"
)

func testHeader() Header {
	return Header{
		Timestamp: 1700000000123,
		Originator: Originator{
			ServerName:           "cocoMDS1",
			ServerType:           "Metadata Access Store",
			OrganizationName:     "Coco Pharmaceuticals",
			MetadataCollectionID: "A",
		},
		Direction: DirectionOutbound,
	}
}

func testEntity() *metadata.Entity {
	return &metadata.Entity{
		Instance: metadata.Instance{
			GUID:                     "G1",
			Type:                     metadata.TypeDefSummary{GUID: "T1", Name: "Asset", Version: 1},
			HomeMetadataCollectionID: "A",
			Version:                  3,
			Status:                   metadata.StatusActive,
			Provenance:               metadata.ProvenanceLocal,
			Properties:               map[string]any{"qualifiedName": "orders", "owner": "finance"},
		},
	}
}

func testEvents() map[string]Event {
	conn := &metadata.Connection{
		QualifiedName: "cocoMDS1",
		ConnectorType: "memory",
		Endpoint:      metadata.Endpoint{Address: "127.0.0.1:9443", Protocol: "tcp"},
		Configuration: map[string]string{"zone": "a"},
	}

	registration := NewRegistryEvent(Registration, 1700000000000, conn)
	registration.Header = testHeader()

	regError := NewRegistrationErrorEvent(BadRemoteConnection, "B", conn, "bad endpoint")
	regError.Header = testHeader()

	minimalRegistry := NewRegistryEvent(RefreshRegistrationRequest, 0, nil)
	minimalRegistry.Header = testHeader()

	entityEvent := NewEntityEvent(UpdatedEntity, testEntity())
	entityEvent.OriginalEntity = testEntity()
	entityEvent.Header = testHeader()

	reIdentified := NewEntityEvent(ReIdentifiedEntity, testEntity())
	reIdentified.OriginalInstanceGUID = "G0"
	reIdentified.OriginalTypeDefSummary = &metadata.TypeDefSummary{GUID: "T0", Name: "DataSet", Version: 2}
	reIdentified.OriginalHomeMetadataCollectionID = "B"
	reIdentified.Header = testHeader()

	rel := NewRelationshipEvent(NewRelationship, &metadata.Relationship{
		Instance: metadata.Instance{
			GUID:                     "R1",
			Type:                     metadata.TypeDefSummary{GUID: "T9", Name: "AssetSchema"},
			HomeMetadataCollectionID: "A",
			Version:                  1,
			Status:                   metadata.StatusActive,
		},
		End1: metadata.EntityProxy{GUID: "G1", TypeName: "Asset", HomeMetadataCollectionID: "A"},
		End2: metadata.EntityProxy{GUID: "G2", TypeName: "Schema"},
	})
	rel.Header = testHeader()

	refresh := NewRefreshRequest(RefreshEntityRequest, metadata.TypeDefSummary{GUID: "T1", Name: "Asset"}, "G1", "A")
	refresh.Header = testHeader()

	conflict := NewConflictEvent(ConflictingInstances, &InstanceError{
		Message:                    "guid already homed elsewhere",
		TargetMetadataCollectionID: "B",
		TargetTypeDef:              &metadata.TypeDefSummary{GUID: "T1", Name: "Asset"},
		TargetInstanceGUID:         "G1",
		OtherMetadataCollectionID:  "A",
		OtherOrigin:                metadata.ProvenanceLocal,
	})
	conflict.Header = testHeader()

	typeDef := NewTypeDefEvent(NewTypeDef, &metadata.TypeDef{
		GUID:      "T1",
		Name:      "Asset",
		Version:   1,
		Category:  metadata.TypeDefCategoryEntity,
		SuperType: &metadata.TypeDefLink{GUID: "T0", Name: "Referenceable"},
		Attributes: []metadata.TypeDefAttribute{
			{Name: "qualifiedName", Type: metadata.TypeDefLink{GUID: "S1", Name: "string"}, Required: true},
		},
	})
	typeDef.Header = testHeader()

	attr := NewAttributeTypeDefEvent(ReIdentifiedAttributeTypeDef, &metadata.AttributeTypeDef{
		GUID: "S2", Name: "text", Version: 1, Category: metadata.AttributeTypeDefCategoryPrimitive,
	})
	attr.OriginalAttributeTypeDef = &metadata.TypeDefLink{GUID: "S1", Name: "string"}
	attr.Header = testHeader()

	typeDefError := NewTypeDefErrorEvent(&TypeDefErrorDetail{
		Code:                       ConflictingTypeDefs,
		TargetMetadataCollectionID: "B",
		TargetTypeDef:              &metadata.TypeDefSummary{GUID: "T7", Name: "Asset"},
		OtherTypeDef:               &metadata.TypeDefSummary{GUID: "T1", Name: "Asset", Version: 1},
	})
	typeDefError.Header = testHeader()

	return map[string]Event{
		"registration":      registration,
		"registration error": regError,
		"minimal registry":  minimalRegistry,
		"updated entity":    entityEvent,
		"re-identified":     reIdentified,
		"new relationship":  rel,
		"refresh request":   refresh,
		"conflict":          conflict,
		"new typedef":       typeDef,
		"attribute typedef": attr,
		"typedef error":     typeDefError,
	}
}

func TestCodec(t *testing.T) {
	t.Run("With round trip", func(t *testing.T) {
		codec, err := NewCodec()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, codec.Close()) })

		for name, evt := range testEvents() {
			t.Run(name, func(t *testing.T) {
				bytea, err := codec.Encode(evt)
				require.NoError(t, err)
				assert.Equal(t, frameRaw, bytea[0])

				decoded, err := codec.Decode(bytea)
				require.NoError(t, err)
				assert.Equal(t, evt, decoded)
			})
		}
	})
	t.Run("With compression", func(t *testing.T) {
		codec, err := NewCodec(WithCompression())
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, codec.Close()) })

		plain, err := NewCodec()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, plain.Close()) })

		for name, evt := range testEvents() {
			t.Run(name, func(t *testing.T) {
				bytea, err := codec.Encode(evt)
				require.NoError(t, err)
				assert.Equal(t, frameZstd, bytea[0])

				// a member without compression can still read the frame
				decoded, err := plain.Decode(bytea)
				require.NoError(t, err)
				assert.Equal(t, evt, decoded)
			})
		}
	})
	t.Run("With absent optionals kept absent", func(t *testing.T) {
		codec, err := NewCodec()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, codec.Close()) })

		evt := NewEntityEvent(NewEntity, testEntity())
		bytea, err := codec.Encode(evt)
		require.NoError(t, err)

		decoded, err := codec.Decode(bytea)
		require.NoError(t, err)
		instanceEvent, ok := decoded.(*InstanceEvent)
		require.True(t, ok)
		assert.Nil(t, instanceEvent.OriginalEntity)
		assert.Nil(t, instanceEvent.Relationship)
		assert.Nil(t, instanceEvent.OriginalTypeDefSummary)
		assert.Nil(t, instanceEvent.Error)
		assert.Empty(t, instanceEvent.OriginalInstanceGUID)
	})
	t.Run("With unsupported protocol version", func(t *testing.T) {
		codec, err := NewCodec()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, codec.Close()) })

		env, err := Wrap(testEvents()["registration"])
		require.NoError(t, err)
		env.ProtocolVersion = ProtocolVersion + 1

		bytea, err := codec.EncodeEnvelope(env)
		require.NoError(t, err)

		_, err = codec.Decode(bytea)
		require.ErrorIs(t, err, errors.ErrUnsupportedProtocolVersion)
	})
	t.Run("With malformed payloads", func(t *testing.T) {
		codec, err := NewCodec()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, codec.Close()) })

		_, err = codec.Decode(nil)
		require.ErrorIs(t, err, errors.ErrMalformedEnvelope)

		_, err = codec.Decode([]byte{9, 1, 2})
		require.ErrorIs(t, err, errors.ErrMalformedEnvelope)

		_, err = codec.Decode([]byte{frameRaw, 0xff, 0xff})
		require.ErrorIs(t, err, errors.ErrMalformedEnvelope)

		_, err = codec.Decode([]byte{frameZstd, 0x01, 0x02})
		require.ErrorIs(t, err, errors.ErrMalformedEnvelope)
	})
	t.Run("With section not matching the category", func(t *testing.T) {
		codec, err := NewCodec()
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, codec.Close()) })

		env, err := Wrap(testEvents()["registration"])
		require.NoError(t, err)
		env.Category = CategoryInstance

		bytea, err := codec.EncodeEnvelope(env)
		require.NoError(t, err)

		_, err = codec.Decode(bytea)
		require.ErrorIs(t, err, errors.ErrMalformedEnvelope)
	})
}

func TestWrap(t *testing.T) {
	t.Run("With nil event", func(t *testing.T) {
		_, err := Wrap(nil)
		require.ErrorIs(t, err, errors.ErrMalformedEnvelope)
	})
	t.Run("With generic error code", func(t *testing.T) {
		events := testEvents()

		env, err := Wrap(events["registration error"])
		require.NoError(t, err)
		assert.Equal(t, "BAD_REMOTE_CONNECTION", env.GenericErrorCode)
		assert.Equal(t, CategoryRegistry, env.Category)

		env, err = Wrap(events["conflict"])
		require.NoError(t, err)
		assert.Equal(t, "CONFLICTING_INSTANCES_EVENT", env.GenericErrorCode)

		env, err = Wrap(events["typedef error"])
		require.NoError(t, err)
		assert.Equal(t, "CONFLICTING_TYPEDEFS", env.GenericErrorCode)

		env, err = Wrap(events["registration"])
		require.NoError(t, err)
		assert.Empty(t, env.GenericErrorCode)
	})
}

func TestKinds(t *testing.T) {
	assert.Equal(t, "REGISTRY", CategoryRegistry.String())
	assert.Equal(t, "UNKNOWN", Category(200).String())
	assert.Equal(t, "OUTBOUND", DirectionOutbound.String())
	assert.Equal(t, "RE_REGISTRATION_EVENT", ReRegistration.String())
	assert.Equal(t, "UNKNOWN_REGISTRY_EVENT", RegistryKind(200).String())
	assert.Equal(t, "CONFLICTING_COLLECTION_ID", ConflictingCollectionID.String())
	assert.Equal(t, "REFRESHED_RELATIONSHIP_EVENT", RefreshedRelationship.String())
	assert.Equal(t, "UNKNOWN_INSTANCE_EVENT", InstanceKind(200).String())
	assert.Equal(t, "RE_IDENTIFIED_TYPEDEF_EVENT", ReIdentifiedTypeDef.String())
	assert.Equal(t, "UNKNOWN_TYPEDEF_EVENT", TypeDefKind(200).String())
	assert.Equal(t, "INVALID_TYPEDEF", InvalidTypeDef.String())

	assert.True(t, ReTypedEntity.IsEntity())
	assert.False(t, ReTypedEntity.IsRelationship())
	assert.True(t, RefreshRelationshipRequest.IsRelationship())
	assert.True(t, ConflictingType.IsError())
	assert.False(t, ConflictingType.IsEntity())
}

func TestInstanceEventPayload(t *testing.T) {
	evt := NewEntityEvent(NewEntity, testEntity())
	require.NotNil(t, evt.Instance())
	assert.Equal(t, "G1", evt.Instance().GUID)
	assert.Equal(t, "G1", evt.InstanceGUID)
	assert.Equal(t, "T1", evt.TypeDefGUID)
	assert.Equal(t, "A", evt.HomeMetadataCollectionID)

	refresh := NewRefreshRequest(RefreshEntityRequest, metadata.TypeDefSummary{GUID: "T1"}, "G1", "A")
	assert.Nil(t, refresh.Instance())
}
