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

package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/metadata"
)

func TestTypeRegistry(t *testing.T) {
	t.Run("With Resolve", func(t *testing.T) {
		types := newTypes()

		def, err := types.Resolve("type-asset", "Asset")
		require.NoError(t, err)
		assert.Equal(t, "Asset", def.Name)

		def, err = types.Resolve("", "Asset")
		require.NoError(t, err)
		assert.Equal(t, "type-asset", def.GUID)

		def, err = types.Resolve("type-asset", "Lineage")
		require.ErrorIs(t, err, errors.ErrConflictingType)
		assert.Equal(t, "Asset", def.Name)

		_, err = types.Resolve("type-unknown", "Unknown")
		require.ErrorIs(t, err, errors.ErrTypeDefNotFound)
	})

	t.Run("With a name not learnt yet", func(t *testing.T) {
		types := newTypes()

		// the home renamed Asset before the re-identification reached this member
		def, err := types.Resolve("type-asset", "DataAsset")
		require.NoError(t, err)
		assert.Equal(t, "type-asset", def.GUID)
		assert.Equal(t, "Asset", def.Name)

		types.ReIdentifyTypeDef(assetType, &metadata.TypeDef{GUID: "type-asset", Name: "DataAsset", Version: 2, Category: metadata.TypeDefCategoryEntity})

		for _, name := range []string{"Asset", "DataAsset"} {
			def, err = types.Resolve("type-asset", name)
			require.NoError(t, err)
			assert.Equal(t, "DataAsset", def.Name)
		}
	})

	t.Run("With a re-identified type", func(t *testing.T) {
		types := newTypes()
		renamed := &metadata.TypeDef{GUID: "type-data-asset", Name: "DataAsset", Version: 2, Category: metadata.TypeDefCategoryEntity}
		types.ReIdentifyTypeDef(assetType, renamed)

		// instances may carry either identifier in any combination
		for _, ref := range []metadata.TypeDefSummary{
			{GUID: "type-asset", Name: "Asset"},
			{GUID: "type-asset", Name: "DataAsset"},
			{GUID: "type-data-asset", Name: "Asset"},
			{GUID: "type-data-asset", Name: "DataAsset"},
			{GUID: "type-not-yet-known", Name: "DataAsset"},
			{GUID: "type-not-yet-known", Name: "Asset"},
		} {
			def, err := types.Resolve(ref.GUID, ref.Name)
			require.NoError(t, err, ref)
			assert.Equal(t, "type-data-asset", def.GUID)
		}

		_, ok := types.TypeDefByName("Asset")
		assert.True(t, ok)
		require.Len(t, types.TypeDefs(), 2)

		again := &metadata.TypeDef{GUID: "type-digital-asset", Name: "DigitalAsset", Version: 3, Category: metadata.TypeDefCategoryEntity}
		types.ReIdentifyTypeDef(renamed.Summary(), again)

		def, ok := types.TypeDef("type-asset")
		require.True(t, ok)
		assert.Equal(t, "DigitalAsset", def.Name)
		def, ok = types.TypeDefByName("Asset")
		require.True(t, ok)
		assert.Equal(t, "type-digital-asset", def.GUID)
	})

	t.Run("With Validate", func(t *testing.T) {
		types := newTypes()
		types.PutAttributeTypeDef(&metadata.AttributeTypeDef{GUID: "attr-string", Name: "string", Version: 1})

		valid := &metadata.TypeDef{
			GUID:      "type-table",
			Name:      "Table",
			SuperType: &metadata.TypeDefLink{GUID: "type-asset", Name: "Asset"},
			Attributes: []metadata.TypeDefAttribute{
				{Name: "name", Type: metadata.TypeDefLink{GUID: "attr-string", Name: "string"}},
				{Name: "owner", Type: metadata.TypeDefLink{Name: "string"}},
			},
		}
		require.NoError(t, types.Validate(valid))

		unknownSuper := valid.Clone()
		unknownSuper.SuperType = &metadata.TypeDefLink{GUID: "type-nope", Name: "Nope"}
		assert.Error(t, types.Validate(unknownSuper))

		selfSuper := valid.Clone()
		selfSuper.GUID = "type-asset"
		assert.Error(t, types.Validate(selfSuper))

		duplicate := valid.Clone()
		duplicate.Attributes = append(duplicate.Attributes, metadata.TypeDefAttribute{Name: "name", Type: metadata.TypeDefLink{Name: "string"}})
		assert.Error(t, types.Validate(duplicate))

		missing := valid.Clone()
		missing.Attributes = append(missing.Attributes,
			metadata.TypeDefAttribute{Name: "size", Type: metadata.TypeDefLink{GUID: "attr-int", Name: "int"}},
			metadata.TypeDefAttribute{Name: "at", Type: metadata.TypeDefLink{GUID: "attr-date", Name: "date"}})
		err := types.Validate(missing)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "[date int]")

		assert.Error(t, types.Validate(&metadata.TypeDef{Name: "NoGUID"}))

		types.ReIdentifyAttributeTypeDef(metadata.TypeDefLink{GUID: "attr-string", Name: "string"},
			&metadata.AttributeTypeDef{GUID: "attr-text", Name: "text", Version: 2})
		require.NoError(t, types.Validate(valid))
	})

	t.Run("With removals", func(t *testing.T) {
		types := newTypes()
		types.PutAttributeTypeDef(&metadata.AttributeTypeDef{GUID: "attr-string", Name: "string", Version: 1})

		assert.True(t, types.RemoveTypeDef("type-asset"))
		assert.False(t, types.RemoveTypeDef("type-asset"))
		_, ok := types.TypeDefByName("Asset")
		assert.False(t, ok)

		assert.True(t, types.RemoveAttributeTypeDef("attr-string"))
		assert.False(t, types.RemoveAttributeTypeDef("attr-string"))
		assert.Empty(t, types.AttributeTypeDefs())
	})
}
