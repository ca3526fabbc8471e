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
	"fmt"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/metadata"
)

// TypeRegistry holds the type definitions known to the local member.
//
// Re-identified definitions leave an alias behind so that instance events
// still naming the previous guid or name resolve to the current definition.
type TypeRegistry struct {
	mu sync.RWMutex

	types      map[string]*metadata.TypeDef
	typeNames  map[string]string
	attributes map[string]*metadata.AttributeTypeDef
	attrNames  map[string]string

	// previous identifier -> current identifier
	guidAliases map[string]string
	nameAliases map[string]string
}

// NewTypeRegistry creates an empty TypeRegistry
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types:       make(map[string]*metadata.TypeDef),
		typeNames:   make(map[string]string),
		attributes:  make(map[string]*metadata.AttributeTypeDef),
		attrNames:   make(map[string]string),
		guidAliases: make(map[string]string),
		nameAliases: make(map[string]string),
	}
}

// TypeDef returns the type definition with the given guid. Aliases are followed.
func (r *TypeRegistry) TypeDef(guid string) (*metadata.TypeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.typeByGUID(guid)
	return def.Clone(), ok
}

// TypeDefByName returns the type definition with the given name. Aliases are followed.
func (r *TypeRegistry) TypeDefByName(name string) (*metadata.TypeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.typeByName(name)
	return def.Clone(), ok
}

// AttributeTypeDef returns the attribute type definition with the given guid
func (r *TypeRegistry) AttributeTypeDef(guid string) (*metadata.AttributeTypeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.attributes[r.currentGUID(guid)]
	return def.Clone(), ok
}

// AttributeTypeDefByName returns the attribute type definition with the given name
func (r *TypeRegistry) AttributeTypeDefByName(name string) (*metadata.AttributeTypeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	guid, ok := r.attrNames[r.currentName(name)]
	if !ok {
		return nil, false
	}
	return r.attributes[guid].Clone(), true
}

// Resolve finds the type an instance refers to.
//
// The guid wins when it is known, even under a name this member has not
// learnt yet: the type may have been renamed by its home. When the guid is
// not known, the name is used: an instance event may name a type whose new
// guid has not reached this member yet. A guid and a name that designate two
// different known types are reported with errors.ErrConflictingType.
// errors.ErrTypeDefNotFound is returned when neither is known.
func (r *TypeRegistry) Resolve(guid, name string) (*metadata.TypeDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if def, ok := r.typeByGUID(guid); ok {
		if named, ok := r.typeByName(name); ok && named.GUID != def.GUID {
			return def.Clone(), errors.NewErrConflictingType(guid, name)
		}
		return def.Clone(), nil
	}

	if def, ok := r.typeByName(name); ok {
		return def.Clone(), nil
	}

	return nil, fmt.Errorf("type=(%s/%s) %w", guid, name, errors.ErrTypeDefNotFound)
}

// PutTypeDef adds or replaces a type definition
func (r *TypeRegistry) PutTypeDef(def *metadata.TypeDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putType(def.Clone())
}

// RemoveTypeDef forgets a type definition. It reports whether it was known.
func (r *TypeRegistry) RemoveTypeDef(guid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.typeByGUID(guid)
	if !ok {
		return false
	}
	delete(r.types, def.GUID)
	delete(r.typeNames, def.Name)
	return true
}

// PutAttributeTypeDef adds or replaces an attribute type definition
func (r *TypeRegistry) PutAttributeTypeDef(def *metadata.AttributeTypeDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putAttribute(def.Clone())
}

// RemoveAttributeTypeDef forgets an attribute type definition. It reports whether it was known.
func (r *TypeRegistry) RemoveAttributeTypeDef(guid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.attributes[r.currentGUID(guid)]
	if !ok {
		return false
	}
	delete(r.attributes, def.GUID)
	delete(r.attrNames, def.Name)
	return true
}

// ReIdentifyTypeDef replaces the definition known as original with def in
// one step and keeps the previous guid and name as aliases
func (r *TypeRegistry) ReIdentifyTypeDef(original metadata.TypeDefSummary, def *metadata.TypeDef) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.types[original.GUID]; ok {
		delete(r.types, previous.GUID)
		delete(r.typeNames, previous.Name)
	} else if guid, ok := r.typeNames[original.Name]; ok {
		delete(r.types, guid)
		delete(r.typeNames, original.Name)
	}

	r.putType(def.Clone())
	r.alias(original.GUID, def.GUID, original.Name, def.Name)
}

// ReIdentifyAttributeTypeDef is the attribute type counterpart of ReIdentifyTypeDef
func (r *TypeRegistry) ReIdentifyAttributeTypeDef(original metadata.TypeDefLink, def *metadata.AttributeTypeDef) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.attributes[original.GUID]; ok {
		delete(r.attributes, previous.GUID)
		delete(r.attrNames, previous.Name)
	} else if guid, ok := r.attrNames[original.Name]; ok {
		delete(r.attributes, guid)
		delete(r.attrNames, original.Name)
	}

	r.putAttribute(def.Clone())
	r.alias(original.GUID, def.GUID, original.Name, def.Name)
}

// Validate checks that a type definition only refers to known definitions:
// its super type must be a known type and every attribute must use a known
// attribute type. Attribute names must be unique.
func (r *TypeRegistry) Validate(def *metadata.TypeDef) error {
	if def == nil || def.GUID == "" || def.Name == "" {
		return fmt.Errorf("a type definition requires a guid and a name")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if def.SuperType != nil {
		super, ok := r.typeByGUID(def.SuperType.GUID)
		if !ok {
			super, ok = r.typeByName(def.SuperType.Name)
		}
		if !ok {
			return fmt.Errorf("unknown super type %s", def.SuperType.Name)
		}
		if super.GUID == def.GUID {
			return fmt.Errorf("type %s cannot be its own super type", def.Name)
		}
	}

	known := mapset.NewThreadUnsafeSet[string]()
	for guid, attr := range r.attributes {
		known.Add(guid)
		known.Add(attr.Name)
	}
	for previous, current := range r.guidAliases {
		if _, ok := r.attributes[current]; ok {
			known.Add(previous)
		}
	}
	for previous, current := range r.nameAliases {
		if _, ok := r.attrNames[current]; ok {
			known.Add(previous)
		}
	}

	names := mapset.NewThreadUnsafeSet[string]()
	missing := mapset.NewThreadUnsafeSet[string]()
	for _, attr := range def.Attributes {
		if !names.Add(attr.Name) {
			return fmt.Errorf("attribute %s is declared twice", attr.Name)
		}
		if !known.Contains(attr.Type.GUID) && !known.Contains(attr.Type.Name) {
			missing.Add(attr.Type.Name)
		}
	}

	if missing.Cardinality() > 0 {
		unknown := missing.ToSlice()
		sort.Strings(unknown)
		return fmt.Errorf("unknown attribute types %v", unknown)
	}
	return nil
}

// TypeDefs returns the known type definitions sorted by name
func (r *TypeRegistry) TypeDefs() []*metadata.TypeDef {
	r.mu.RLock()
	out := make([]*metadata.TypeDef, 0, len(r.types))
	for _, def := range r.types {
		out = append(out, def.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AttributeTypeDefs returns the known attribute type definitions sorted by name
func (r *TypeRegistry) AttributeTypeDefs() []*metadata.AttributeTypeDef {
	r.mu.RLock()
	out := make([]*metadata.AttributeTypeDef, 0, len(r.attributes))
	for _, def := range r.attributes {
		out = append(out, def.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *TypeRegistry) typeByGUID(guid string) (*metadata.TypeDef, bool) {
	if guid == "" {
		return nil, false
	}
	def, ok := r.types[r.currentGUID(guid)]
	return def, ok
}

func (r *TypeRegistry) typeByName(name string) (*metadata.TypeDef, bool) {
	if name == "" {
		return nil, false
	}
	guid, ok := r.typeNames[r.currentName(name)]
	if !ok {
		return nil, false
	}
	def, ok := r.types[guid]
	return def, ok
}

func (r *TypeRegistry) currentGUID(guid string) string {
	if _, ok := r.types[guid]; ok {
		return guid
	}
	if _, ok := r.attributes[guid]; ok {
		return guid
	}
	if current, ok := r.guidAliases[guid]; ok {
		return current
	}
	return guid
}

func (r *TypeRegistry) currentName(name string) string {
	if _, ok := r.typeNames[name]; ok {
		return name
	}
	if _, ok := r.attrNames[name]; ok {
		return name
	}
	if current, ok := r.nameAliases[name]; ok {
		return current
	}
	return name
}

func (r *TypeRegistry) putType(def *metadata.TypeDef) {
	if previous, ok := r.types[def.GUID]; ok && previous.Name != def.Name {
		delete(r.typeNames, previous.Name)
	}
	r.types[def.GUID] = def
	r.typeNames[def.Name] = def.GUID
}

func (r *TypeRegistry) putAttribute(def *metadata.AttributeTypeDef) {
	if previous, ok := r.attributes[def.GUID]; ok && previous.Name != def.Name {
		delete(r.attrNames, previous.Name)
	}
	r.attributes[def.GUID] = def
	r.attrNames[def.Name] = def.GUID
}

// alias keeps every alias pointing at the latest identifier
func (r *TypeRegistry) alias(previousGUID, currentGUID, previousName, currentName string) {
	if previousGUID != "" && previousGUID != currentGUID {
		for older, target := range r.guidAliases {
			if target == previousGUID {
				r.guidAliases[older] = currentGUID
			}
		}
		r.guidAliases[previousGUID] = currentGUID
		delete(r.guidAliases, currentGUID)
	}
	if previousName != "" && previousName != currentName {
		for older, target := range r.nameAliases {
			if target == previousName {
				r.nameAliases[older] = currentName
			}
		}
		r.nameAliases[previousName] = currentName
		delete(r.nameAliases, currentName)
	}
}
