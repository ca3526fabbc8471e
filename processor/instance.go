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
	"context"
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	gerrors "github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/event"
	"github.com/tochemey/cohort/federation"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/metadata"
)

const (
	instanceCategory = "instance"
	maxAliasHops     = 16
)

// entry is what the processor remembers about an instance
type entry struct {
	version     int64
	fingerprint uint64
	home        string
	status      metadata.Status
}

type verdict uint8

const (
	verdictApply verdict = iota
	verdictStale
	verdictContentConflict
	verdictHomeConflict
)

// payload is the entity or the relationship carried by an event
type payload struct {
	entity       *metadata.Entity
	relationship *metadata.Relationship
}

func (x payload) instance() *metadata.Instance {
	switch {
	case x.entity != nil:
		return &x.entity.Instance
	case x.relationship != nil:
		return &x.relationship.Instance
	default:
		return nil
	}
}

func (x payload) save(ctx context.Context, store ReferenceCopyStore, guid string) error {
	if x.entity != nil {
		copied := x.entity.Clone()
		copied.GUID = guid
		copied.Provenance = referenceProvenance(copied.Provenance)
		return store.SaveEntityReferenceCopy(ctx, copied)
	}
	copied := x.relationship.Clone()
	copied.GUID = guid
	copied.Provenance = referenceProvenance(copied.Provenance)
	return store.SaveRelationshipReferenceCopy(ctx, copied)
}

func (x payload) purge(ctx context.Context, store ReferenceCopyStore, guid string) error {
	if x.entity != nil {
		return store.PurgeEntityReferenceCopy(ctx, guid)
	}
	return store.PurgeRelationshipReferenceCopy(ctx, guid)
}

func referenceProvenance(current metadata.Provenance) metadata.Provenance {
	if current == metadata.ProvenanceDeregistered {
		return current
	}
	return metadata.ProvenanceRemote
}

// InstanceProcessor applies the entity and relationship events received
// from the cohort.
//
// It remembers the latest version of every instance it has seen. An event
// carrying a version that is not newer is discarded, which makes duplicate
// and out-of-order delivery harmless. Only the home repository of an
// instance may advance its version. Conflicts are reported to the cohort and
// kept in a ledger; they are never merged.
type InstanceProcessor struct {
	localID   string
	cfg       *config
	logger    log.Logger
	cache     *xsync.MapOf[string, entry]
	aliases   *xsync.MapOf[string, string]
	conflicts *ledger
	locks     stripedLock
}

// enforce compilation error
var _ federation.RetrievalSink = (*InstanceProcessor)(nil)

// NewInstanceProcessor creates the instance processor of the local member
func NewInstanceProcessor(localID string, opts ...Option) *InstanceProcessor {
	cfg := newConfig(opts...)
	return &InstanceProcessor{
		localID:   localID,
		cfg:       cfg,
		logger:    log.Component(cfg.logger, "instance-processor"),
		cache:     xsync.NewMapOf[string, entry](),
		aliases:   xsync.NewMapOf[string, string](),
		conflicts: newLedger(cfg.ledgerSize),
	}
}

// Version returns the latest version seen for an instance. Re-identified
// guids resolve to the current guid.
func (p *InstanceProcessor) Version(guid string) (int64, bool) {
	cached, ok := p.cache.Load(p.canonical(guid))
	return cached.version, ok
}

// Conflicts returns the most recent conflicts, oldest first
func (p *InstanceProcessor) Conflicts() []Conflict {
	return p.conflicts.snapshot()
}

// ProcessEvent applies an inbound instance event
func (p *InstanceProcessor) ProcessEvent(ctx context.Context, evt *event.InstanceEvent) (outcome Outcome) {
	if evt == nil {
		return OutcomeIgnored
	}

	defer func() { p.cfg.metric.RecordEvent(ctx, instanceCategory, outcome.String()) }()
	defer recoverEvent(p.logger, evt.Kind, &outcome)

	sender := evt.Originator.MetadataCollectionID
	if sender == p.localID {
		return OutcomeIgnored
	}

	switch evt.Kind {
	case event.NewEntity, event.UpdatedEntity, event.UndoneEntity, event.DeletedEntity,
		event.RestoredEntity, event.ReTypedEntity, event.RefreshedEntity, event.PurgedEntity,
		event.NewRelationship, event.UpdatedRelationship, event.UndoneRelationship, event.DeletedRelationship,
		event.RestoredRelationship, event.ReTypedRelationship, event.RefreshedRelationship, event.PurgedRelationship:
		return p.applyChange(ctx, sender, evt)
	case event.ReHomedEntity, event.ReHomedRelationship:
		return p.rehome(ctx, sender, evt)
	case event.ReIdentifiedEntity, event.ReIdentifiedRelationship:
		return p.reidentify(ctx, sender, evt)
	case event.RefreshEntityRequest, event.RefreshRelationshipRequest:
		return p.refresh(ctx, evt)
	case event.ConflictingInstances, event.ConflictingType:
		return p.report(ctx, sender, evt)
	default:
		p.logger.Warnf("ignoring instance event kind=(%s) from metadataCollection=(%s)", evt.Kind, sender)
		return OutcomeIgnored
	}
}

// ProcessRetrievedEntity implements federation.RetrievalSink. A retrieved
// entity newer than the known version is kept as a reference copy.
func (p *InstanceProcessor) ProcessRetrievedEntity(ctx context.Context, sourceCollectionID string, entity *metadata.Entity) {
	if entity == nil {
		return
	}
	p.applyRetrieved(ctx, sourceCollectionID, payload{entity: entity.Clone()})
}

// ProcessRetrievedRelationship implements federation.RetrievalSink
func (p *InstanceProcessor) ProcessRetrievedRelationship(ctx context.Context, sourceCollectionID string, rel *metadata.Relationship) {
	if rel == nil {
		return
	}
	p.applyRetrieved(ctx, sourceCollectionID, payload{relationship: rel.Clone()})
}

func (p *InstanceProcessor) applyChange(ctx context.Context, sender string, evt *event.InstanceEvent) Outcome {
	content, ok := p.validPayload(evt)
	if !ok {
		return OutcomeFailed
	}

	inst := content.instance()
	if inst.HomeMetadataCollectionID == p.localID {
		return OutcomeIgnored
	}

	if !p.fromHome(sender, inst, evt.Kind) {
		return OutcomeDiscarded
	}

	if !p.checkType(ctx, sender, inst) {
		return OutcomeDiscarded
	}

	purge := evt.Kind == event.PurgedEntity || evt.Kind == event.PurgedRelationship
	incoming := entryOf(inst)
	if purge {
		incoming.status = metadata.StatusPurged
	}

	guid := p.canonical(inst.GUID)
	write := func() error {
		if p.cfg.store == nil {
			return nil
		}
		if purge {
			return content.purge(ctx, p.cfg.store, guid)
		}
		return content.save(ctx, p.cfg.store, guid)
	}

	v, previous, err := p.commit(guid, incoming, func(current entry, loaded bool) verdict {
		switch {
		case !loaded:
			return verdictApply
		case current.status == metadata.StatusPurged:
			return verdictStale
		case current.home != incoming.home:
			return verdictHomeConflict
		case purge && incoming.version >= current.version:
			return verdictApply
		case incoming.version > current.version:
			return verdictApply
		case incoming.version == current.version && incoming.fingerprint != current.fingerprint:
			return verdictContentConflict
		default:
			return verdictStale
		}
	}, write)

	switch v {
	case verdictStale:
		p.logger.Debugf("discarding %s for guid=(%s) version=(%d)", evt.Kind, guid, incoming.version)
		return OutcomeDiscarded
	case verdictHomeConflict:
		p.conflict(ctx, event.ConflictingInstances, &event.InstanceError{
			Message:                    fmt.Sprintf("guid=(%s) is homed by metadataCollection=(%s)", guid, previous.home),
			TargetMetadataCollectionID: sender,
			TargetTypeDef:              summaryOf(inst.Type),
			TargetInstanceGUID:         guid,
			OtherMetadataCollectionID:  previous.home,
			OtherOrigin:                metadata.ProvenanceRemote,
			OtherTypeDef:               summaryOf(inst.Type),
			OtherInstanceGUID:          guid,
		})
		return OutcomeDiscarded
	case verdictContentConflict:
		p.conflict(ctx, event.ConflictingInstances, &event.InstanceError{
			Message:                    fmt.Sprintf("guid=(%s) version=(%d) was received with different content", guid, incoming.version),
			TargetMetadataCollectionID: sender,
			TargetTypeDef:              summaryOf(inst.Type),
			TargetInstanceGUID:         guid,
			OtherMetadataCollectionID:  p.localID,
			OtherOrigin:                metadata.ProvenanceRemote,
			OtherInstanceGUID:          guid,
		})
		return OutcomeDiscarded
	}

	if err != nil {
		return p.storeFailed(ctx, sender, evt.Kind, inst, guid, err)
	}

	p.logger.Debugf("applied %s for guid=(%s) version=(%d)", evt.Kind, guid, incoming.version)
	return OutcomeApplied
}

func (p *InstanceProcessor) rehome(ctx context.Context, sender string, evt *event.InstanceEvent) Outcome {
	content, ok := p.validPayload(evt)
	if !ok {
		return OutcomeFailed
	}

	inst := content.instance()
	original := evt.OriginalHomeMetadataCollectionID
	if original == "" {
		p.logger.Errorf("%s for guid=(%s) does not name the original home", evt.Kind, inst.GUID)
		return OutcomeFailed
	}

	// the new home announces the move
	if !p.fromHome(sender, inst, evt.Kind) {
		return OutcomeDiscarded
	}

	if !p.checkType(ctx, sender, inst) {
		return OutcomeDiscarded
	}

	incoming := entryOf(inst)
	guid := p.canonical(inst.GUID)
	v, previous, err := p.commit(guid, incoming, func(current entry, loaded bool) verdict {
		switch {
		case !loaded:
			return verdictApply
		case current.status == metadata.StatusPurged:
			return verdictStale
		case current.home == incoming.home:
			if incoming.version > current.version {
				return verdictApply
			}
			return verdictStale
		case current.home != original:
			return verdictHomeConflict
		case incoming.version >= current.version:
			return verdictApply
		default:
			return verdictStale
		}
	}, func() error {
		if p.cfg.store == nil {
			return nil
		}
		return content.save(ctx, p.cfg.store, guid)
	})

	switch v {
	case verdictStale:
		return OutcomeDiscarded
	case verdictHomeConflict:
		p.conflict(ctx, event.ConflictingInstances, &event.InstanceError{
			Message: fmt.Sprintf("guid=(%s) moved from metadataCollection=(%s) but is homed by metadataCollection=(%s)",
				guid, original, previous.home),
			TargetMetadataCollectionID: sender,
			TargetTypeDef:              summaryOf(inst.Type),
			TargetInstanceGUID:         guid,
			OtherMetadataCollectionID:  previous.home,
			OtherOrigin:                metadata.ProvenanceRemote,
			OtherInstanceGUID:          guid,
		})
		return OutcomeDiscarded
	}

	if err != nil {
		return p.storeFailed(ctx, sender, evt.Kind, inst, guid, err)
	}

	p.logger.Infof("guid=(%s) moved from metadataCollection=(%s) to metadataCollection=(%s)", guid, original, incoming.home)
	return OutcomeApplied
}

func (p *InstanceProcessor) reidentify(ctx context.Context, sender string, evt *event.InstanceEvent) Outcome {
	content, ok := p.validPayload(evt)
	if !ok {
		return OutcomeFailed
	}

	inst := content.instance()
	original := evt.OriginalInstanceGUID
	if original == "" || original == inst.GUID {
		p.logger.Errorf("%s for guid=(%s) does not name a different original guid", evt.Kind, inst.GUID)
		return OutcomeFailed
	}

	if inst.HomeMetadataCollectionID == p.localID {
		return OutcomeIgnored
	}

	if !p.fromHome(sender, inst, evt.Kind) {
		return OutcomeDiscarded
	}

	if !p.checkType(ctx, sender, inst) {
		return OutcomeDiscarded
	}

	incoming := entryOf(inst)
	v, _, err := p.commit(inst.GUID, incoming, func(current entry, loaded bool) verdict {
		switch {
		case !loaded:
			return verdictApply
		case current.status != metadata.StatusPurged && incoming.version > current.version:
			return verdictApply
		default:
			return verdictStale
		}
	}, func() error {
		if p.cfg.store != nil {
			if err := content.save(ctx, p.cfg.store, inst.GUID); err != nil {
				return err
			}
			if err := content.purge(ctx, p.cfg.store, original); err != nil {
				p.logger.Warnf("failed to remove the copy of re-identified guid=(%s): %v", original, err)
			}
		}
		p.aliases.Store(original, inst.GUID)
		p.cache.Delete(original)
		return nil
	}, original)

	if v != verdictApply {
		return OutcomeDiscarded
	}

	if err != nil {
		return p.storeFailed(ctx, sender, evt.Kind, inst, inst.GUID, err)
	}

	p.logger.Infof("guid=(%s) re-identified as guid=(%s)", original, inst.GUID)
	return OutcomeApplied
}

func (p *InstanceProcessor) refresh(ctx context.Context, evt *event.InstanceEvent) Outcome {
	guid := p.canonical(evt.InstanceGUID)
	home := evt.HomeMetadataCollectionID
	if guid == "" || home == "" {
		p.logger.Errorf("%s without instance guid or home", evt.Kind)
		return OutcomeFailed
	}

	if p.cfg.locator == nil {
		p.logger.Warnf("cannot answer %s for guid=(%s): no home locator", evt.Kind, guid)
		return OutcomeIgnored
	}

	home = p.canonicalHome(guid, home)
	conn, ok := p.cfg.locator.ConnectorFor(home)
	if !ok {
		p.logger.Warnf("cannot answer %s for guid=(%s): metadataCollection=(%s) is not a member", evt.Kind, guid, home)
		return OutcomeIgnored
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.refreshTimeout)
	defer cancel()

	collection, err := conn.Connector.MetadataCollection()
	if err != nil {
		p.logger.Errorf("refresh lookup of guid=(%s) at metadataCollection=(%s) failed: %v", guid, home, err)
		return OutcomeFailed
	}

	var content payload
	if evt.Kind == event.RefreshRelationshipRequest {
		content.relationship, err = collection.GetRelationship(ctx, guid)
	} else {
		content.entity, err = collection.GetEntity(ctx, guid)
	}
	if err != nil {
		p.logger.Errorf("refresh lookup of guid=(%s) at metadataCollection=(%s) failed: %v", guid, home, err)
		return OutcomeFailed
	}

	if home != p.localID {
		return p.applyRetrieved(ctx, home, content)
	}

	// the local member is home: answer the request
	var refreshed *event.InstanceEvent
	if content.relationship != nil {
		refreshed = event.NewRelationshipEvent(event.RefreshedRelationship, content.relationship)
	} else {
		refreshed = event.NewEntityEvent(event.RefreshedEntity, content.entity)
	}

	if p.cfg.publisher == nil {
		return OutcomeIgnored
	}
	if err := p.cfg.publisher.Publish(ctx, refreshed); err != nil {
		p.logger.Errorf("failed to publish %s for guid=(%s): %v", refreshed.Kind, guid, err)
		return OutcomeFailed
	}
	return OutcomeApplied
}

func (p *InstanceProcessor) report(ctx context.Context, sender string, evt *event.InstanceEvent) Outcome {
	detail := evt.Error
	if detail == nil {
		p.logger.Errorf("%s from metadataCollection=(%s) carries no detail", evt.Kind, sender)
		return OutcomeFailed
	}

	p.conflicts.record(Conflict{
		Kind:     evt.Kind.String(),
		Reporter: sender,
		Target:   detail.TargetMetadataCollectionID,
		Subject:  detail.TargetInstanceGUID,
		Message:  detail.Message,
	})
	p.cfg.metric.RecordConflict(ctx, evt.Kind.String())

	if detail.TargetMetadataCollectionID == p.localID {
		p.logger.Errorf("metadataCollection=(%s) reported %s for guid=(%s): %s",
			sender, evt.Kind, detail.TargetInstanceGUID, detail.Message)
	}
	return OutcomeApplied
}

// applyRetrieved keeps a retrieved copy when it is newer than the known version.
// Retrieved copies never raise conflicts.
func (p *InstanceProcessor) applyRetrieved(ctx context.Context, source string, content payload) Outcome {
	inst := content.instance()
	if inst == nil || inst.GUID == "" || inst.HomeMetadataCollectionID == "" || inst.HomeMetadataCollectionID == p.localID {
		return OutcomeIgnored
	}

	incoming := entryOf(inst)
	guid := p.canonical(inst.GUID)
	v, _, err := p.commit(guid, incoming, func(current entry, loaded bool) verdict {
		if !loaded || (current.status != metadata.StatusPurged && current.home == incoming.home && incoming.version > current.version) {
			return verdictApply
		}
		return verdictStale
	}, func() error {
		if p.cfg.store == nil {
			return nil
		}
		return content.save(ctx, p.cfg.store, guid)
	})

	if v != verdictApply {
		return OutcomeDiscarded
	}

	if err != nil {
		p.logger.Warnf("failed to keep the copy of guid=(%s) retrieved from metadataCollection=(%s): %v", guid, source, err)
		return OutcomeFailed
	}
	return OutcomeApplied
}

// commit decides and writes an instance while holding the locks of guid and
// of the related guids, so that the cached version and the stored copy move
// together. A failed write restores the previous cache entry.
func (p *InstanceProcessor) commit(guid string, incoming entry, decide func(current entry, loaded bool) verdict, write func() error, related ...string) (verdict, entry, error) {
	unlock := p.locks.lock(append([]string{guid}, related...)...)
	defer unlock()

	v, previous, loaded := p.advance(guid, incoming, decide)
	if v != verdictApply {
		return v, previous, nil
	}

	if err := write(); err != nil {
		p.rollback(guid, incoming, previous, loaded)
		return v, previous, err
	}
	return v, previous, nil
}

// advance runs decide atomically against the cached entry of guid and
// stores incoming when the verdict is verdictApply. It returns the entry
// that was cached before.
func (p *InstanceProcessor) advance(guid string, incoming entry, decide func(current entry, loaded bool) verdict) (verdict, entry, bool) {
	var (
		v        verdict
		previous entry
		existed  bool
	)

	p.cache.Compute(guid, func(current entry, loaded bool) (entry, bool) {
		previous, existed = current, loaded
		v = decide(current, loaded)
		if v == verdictApply {
			return incoming, false
		}
		return current, !loaded
	})
	return v, previous, existed
}

// rollback restores the previous entry when the applied one is still current
func (p *InstanceProcessor) rollback(guid string, applied, previous entry, existed bool) {
	p.cache.Compute(guid, func(current entry, loaded bool) (entry, bool) {
		if !loaded || current != applied {
			return current, !loaded
		}
		if existed {
			return previous, false
		}
		return current, true
	})
}

// storeFailed reports a copy rejected by the local repository. A copy
// claiming an instance the local repository is home for is a conflict.
func (p *InstanceProcessor) storeFailed(ctx context.Context, sender string, kind event.InstanceKind, inst *metadata.Instance, guid string, err error) Outcome {
	if !errors.Is(err, gerrors.ErrConflictingInstance) {
		p.logger.Errorf("failed to store %s for guid=(%s): %v", kind, guid, err)
		return OutcomeFailed
	}

	p.conflict(ctx, event.ConflictingInstances, &event.InstanceError{
		Message:                    err.Error(),
		TargetMetadataCollectionID: sender,
		TargetTypeDef:              summaryOf(inst.Type),
		TargetInstanceGUID:         guid,
		OtherMetadataCollectionID:  p.localID,
		OtherOrigin:                metadata.ProvenanceLocal,
		OtherInstanceGUID:          guid,
	})
	return OutcomeDiscarded
}

func (p *InstanceProcessor) validPayload(evt *event.InstanceEvent) (payload, bool) {
	var content payload
	switch {
	case evt.Kind.IsEntity():
		content.entity = evt.Entity
	case evt.Kind.IsRelationship():
		content.relationship = evt.Relationship
	}

	inst := content.instance()
	if inst == nil || inst.GUID == "" {
		p.logger.Errorf("%s from metadataCollection=(%s) carries no instance", evt.Kind, evt.Originator.MetadataCollectionID)
		return payload{}, false
	}

	if inst.HomeMetadataCollectionID == "" {
		p.logger.Errorf("%s for guid=(%s): %v", evt.Kind, inst.GUID, gerrors.ErrNoHomeMetadataCollection)
		return payload{}, false
	}
	return content, true
}

// fromHome reports whether sender may advance the instance
func (p *InstanceProcessor) fromHome(sender string, inst *metadata.Instance, kind event.InstanceKind) bool {
	if sender == inst.HomeMetadataCollectionID || (inst.ReplicatedBy != "" && sender == inst.ReplicatedBy) {
		return true
	}
	p.logger.Warnf("discarding %s for guid=(%s): metadataCollection=(%s) is not its home", kind, inst.GUID, sender)
	return false
}

func (p *InstanceProcessor) checkType(ctx context.Context, sender string, inst *metadata.Instance) bool {
	if p.cfg.types == nil {
		return true
	}

	local, err := p.cfg.types.Resolve(inst.Type.GUID, inst.Type.Name)
	switch {
	case err == nil:
		return true
	case errors.Is(err, gerrors.ErrConflictingType):
		p.conflict(ctx, event.ConflictingType, &event.InstanceError{
			Message:                    err.Error(),
			TargetMetadataCollectionID: sender,
			TargetTypeDef:              summaryOf(inst.Type),
			TargetInstanceGUID:         inst.GUID,
			OtherMetadataCollectionID:  p.localID,
			OtherOrigin:                metadata.ProvenanceLocal,
			OtherTypeDef:               summaryOf(local.Summary()),
		})
	default:
		p.logger.Warnf("discarding guid=(%s): %v", inst.GUID, err)
	}
	return false
}

func (p *InstanceProcessor) conflict(ctx context.Context, kind event.InstanceKind, detail *event.InstanceError) {
	p.conflicts.record(Conflict{
		Kind:     kind.String(),
		Reporter: p.localID,
		Target:   detail.TargetMetadataCollectionID,
		Subject:  detail.TargetInstanceGUID,
		Message:  detail.Message,
	})
	p.cfg.metric.RecordConflict(ctx, kind.String())
	p.logger.Errorf("%s: %s", kind, detail.Message)

	if p.cfg.publisher == nil {
		return
	}
	if err := p.cfg.publisher.Publish(ctx, event.NewConflictEvent(kind, detail)); err != nil {
		p.logger.Errorf("failed to publish %s: %v", kind, err)
	}
}

// canonical follows re-identifications to the current guid
func (p *InstanceProcessor) canonical(guid string) string {
	for range maxAliasHops {
		next, ok := p.aliases.Load(guid)
		if !ok {
			return guid
		}
		guid = next
	}
	return guid
}

// canonicalHome prefers the home learned from events over the one named in a request
func (p *InstanceProcessor) canonicalHome(guid, home string) string {
	if cached, ok := p.cache.Load(guid); ok && cached.home != "" && cached.status != metadata.StatusPurged {
		return cached.home
	}
	return home
}

func entryOf(inst *metadata.Instance) entry {
	return entry{
		version:     inst.Version,
		fingerprint: inst.Fingerprint(),
		home:        inst.HomeMetadataCollectionID,
		status:      inst.Status,
	}
}

func summaryOf(summary metadata.TypeDefSummary) *metadata.TypeDefSummary {
	return &summary
}
