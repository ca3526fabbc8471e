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

// TypeDefCategory is the kind of instances a TypeDef describes
type TypeDefCategory uint8

const (
	TypeDefCategoryUnknown TypeDefCategory = iota
	TypeDefCategoryEntity
	TypeDefCategoryRelationship
	TypeDefCategoryClassification
)

// AttributeTypeDefCategory is the kind of value an AttributeTypeDef describes
type AttributeTypeDefCategory uint8

const (
	AttributeTypeDefCategoryUnknown AttributeTypeDefCategory = iota
	AttributeTypeDefCategoryPrimitive
	AttributeTypeDefCategoryEnum
	AttributeTypeDefCategoryCollection
)

// TypeDefLink references another type definition by guid and name
type TypeDefLink struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

// TypeDefAttribute is a property declared by a TypeDef
type TypeDefAttribute struct {
	Name     string      `json:"name"`
	Type     TypeDefLink `json:"type"`
	Required bool        `json:"required,omitempty"`
}

// TypeDef describes the shape of entities, relationships or classifications
type TypeDef struct {
	GUID        string             `json:"guid"`
	Name        string             `json:"name"`
	Version     int64              `json:"version"`
	Category    TypeDefCategory    `json:"category"`
	SuperType   *TypeDefLink       `json:"superType,omitempty"`
	Attributes  []TypeDefAttribute `json:"attributes,omitempty"`
	Description string             `json:"description,omitempty"`
}

// Summary returns the TypeDefSummary instances use to reference this type
func (t *TypeDef) Summary() TypeDefSummary {
	return TypeDefSummary{GUID: t.GUID, Name: t.Name, Version: t.Version}
}

// Clone returns a deep copy of the type definition. Nil is preserved.
func (t *TypeDef) Clone() *TypeDef {
	if t == nil {
		return nil
	}
	out := *t
	if t.SuperType != nil {
		super := *t.SuperType
		out.SuperType = &super
	}
	if t.Attributes != nil {
		out.Attributes = append([]TypeDefAttribute(nil), t.Attributes...)
	}
	return &out
}

// AttributeTypeDef describes the type of a property value
type AttributeTypeDef struct {
	GUID        string                   `json:"guid"`
	Name        string                   `json:"name"`
	Version     int64                    `json:"version"`
	Category    AttributeTypeDefCategory `json:"category"`
	Description string                   `json:"description,omitempty"`
}

// Clone returns a copy of the attribute type definition. Nil is preserved.
func (a *AttributeTypeDef) Clone() *AttributeTypeDef {
	if a == nil {
		return nil
	}
	out := *a
	return &out
}
