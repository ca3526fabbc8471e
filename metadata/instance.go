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

import (
	"fmt"
	"slices"
	"sort"

	"github.com/zeebo/xxh3"
)

// Status is the lifecycle state of an instance
type Status uint8

const (
	StatusUnknown Status = iota
	StatusActive
	StatusDeleted
	StatusPurged
)

var statusNames = [...]string{"unknown", "active", "deleted", "purged"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return statusNames[StatusUnknown]
}

// Provenance describes where the stored copy of an instance comes from
type Provenance uint8

const (
	ProvenanceUnknown Provenance = iota
	// ProvenanceLocal means the local repository is home
	ProvenanceLocal
	// ProvenanceRemote means the instance is a reference copy of a cohort member's instance
	ProvenanceRemote
	// ProvenanceDeregistered means the home repository left the cohort
	ProvenanceDeregistered
)

var provenanceNames = [...]string{"unknown", "local", "remote", "deregistered"}

func (p Provenance) String() string {
	if int(p) < len(provenanceNames) {
		return provenanceNames[p]
	}
	return provenanceNames[ProvenanceUnknown]
}

// TypeDefSummary identifies the type of an instance
type TypeDefSummary struct {
	GUID    string `json:"guid,omitempty"`
	Name    string `json:"name,omitempty"`
	Version int64  `json:"version,omitempty"`
}

// IsZero reports whether the summary carries neither guid nor name
func (s TypeDefSummary) IsZero() bool {
	return s.GUID == "" && s.Name == ""
}

// Instance is the header shared by entities and relationships
type Instance struct {
	GUID                     string         `json:"guid"`
	Type                     TypeDefSummary `json:"type"`
	HomeMetadataCollectionID string         `json:"homeMetadataCollectionId,omitempty"`
	// ReplicatedBy is set when a member other than the home distributed the instance
	ReplicatedBy string         `json:"replicatedBy,omitempty"`
	Version      int64          `json:"version"`
	Status       Status         `json:"status"`
	Provenance   Provenance     `json:"provenance,omitempty"`
	CreatedBy    string         `json:"createdBy,omitempty"`
	UpdatedBy    string         `json:"updatedBy,omitempty"`
	UpdateTime   int64          `json:"updateTime,omitempty"`
	Properties   map[string]any `json:"properties,omitempty"`
}

func (i Instance) clone() Instance {
	out := i
	if i.Properties != nil {
		out.Properties = cloneProperties(i.Properties)
	}
	return out
}

func cloneProperties(properties map[string]any) map[string]any {
	out := make(map[string]any, len(properties))
	for k, v := range properties {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the maps and slices nested in a property value
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return v
		}
		return cloneProperties(v)
	case map[any]any:
		if v == nil {
			return v
		}
		out := make(map[any]any, len(v))
		for k, item := range v {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(v)
	case []byte:
		return slices.Clone(v)
	default:
		return value
	}
}

// Fingerprint hashes the content of the instance that a version number is
// meant to cover: type, status and properties. Two copies with the same
// version and different fingerprints are in conflict.
func (i Instance) Fingerprint() uint64 {
	hasher := xxh3.New()
	_, _ = fmt.Fprintf(hasher, "%s|%s|%d|", i.Type.GUID, i.Type.Name, i.Status)

	keys := make([]string, 0, len(i.Properties))
	for k := range i.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(hasher, "%s=%v;", k, i.Properties[k])
	}
	return hasher.Sum64()
}

// Entity is a node of the metadata graph
type Entity struct {
	Instance
	Classifications []string `json:"classifications,omitempty"`
}

// Clone returns a deep copy of the entity. Nil is preserved.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	out := &Entity{Instance: e.Instance.clone()}
	if e.Classifications != nil {
		out.Classifications = append([]string(nil), e.Classifications...)
	}
	return out
}

// EntityProxy references one end of a relationship
type EntityProxy struct {
	GUID                     string `json:"guid"`
	TypeName                 string `json:"typeName,omitempty"`
	HomeMetadataCollectionID string `json:"homeMetadataCollectionId,omitempty"`
}

// Relationship links two entities
type Relationship struct {
	Instance
	End1 EntityProxy `json:"end1"`
	End2 EntityProxy `json:"end2"`
}

// Clone returns a deep copy of the relationship. Nil is preserved.
func (r *Relationship) Clone() *Relationship {
	if r == nil {
		return nil
	}
	return &Relationship{
		Instance: r.Instance.clone(),
		End1:     r.End1,
		End2:     r.End2,
	}
}
