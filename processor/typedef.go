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

	gerrors "github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/event"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/metadata"
)

const typeDefCategory = "typedef"

// TypeDefProcessor applies the type definition events received from the
// cohort to the local TypeRegistry.
//
// A new definition is accepted only when its super type and attribute types
// are known; otherwise a TYPEDEF_ERROR is published. Definitions sharing a
// name but not a guid with a known definition are reported the same way.
type TypeDefProcessor struct {
	localID   string
	types     *TypeRegistry
	cfg       *config
	logger    log.Logger
	conflicts *ledger
}

// NewTypeDefProcessor creates the type definition processor of the local member
func NewTypeDefProcessor(localID string, types *TypeRegistry, opts ...Option) *TypeDefProcessor {
	cfg := newConfig(opts...)
	if types == nil {
		types = NewTypeRegistry()
	}
	return &TypeDefProcessor{
		localID:   localID,
		types:     types,
		cfg:       cfg,
		logger:    log.Component(cfg.logger, "typedef-processor"),
		conflicts: newLedger(cfg.ledgerSize),
	}
}

// Types returns the registry the processor updates
func (p *TypeDefProcessor) Types() *TypeRegistry {
	return p.types
}

// Conflicts returns the most recent type definition errors, oldest first
func (p *TypeDefProcessor) Conflicts() []Conflict {
	return p.conflicts.snapshot()
}

// ProcessEvent applies an inbound type definition event
func (p *TypeDefProcessor) ProcessEvent(ctx context.Context, evt *event.TypeDefEvent) (outcome Outcome) {
	if evt == nil {
		return OutcomeIgnored
	}

	defer func() { p.cfg.metric.RecordEvent(ctx, typeDefCategory, outcome.String()) }()
	defer recoverEvent(p.logger, evt.Kind, &outcome)

	sender := evt.Originator.MetadataCollectionID
	if sender == p.localID {
		return OutcomeIgnored
	}

	switch evt.Kind {
	case event.NewTypeDef, event.UpdatedTypeDef:
		return p.putTypeDef(ctx, sender, evt)
	case event.NewAttributeTypeDef:
		return p.putAttributeTypeDef(ctx, sender, evt)
	case event.DeletedTypeDef:
		return p.deleteTypeDef(evt)
	case event.DeletedAttributeTypeDef:
		return p.deleteAttributeTypeDef(evt)
	case event.ReIdentifiedTypeDef:
		return p.reidentifyTypeDef(ctx, sender, evt)
	case event.ReIdentifiedAttributeTypeDef:
		return p.reidentifyAttributeTypeDef(ctx, sender, evt)
	case event.TypeDefError:
		return p.report(ctx, sender, evt)
	default:
		p.logger.Warnf("ignoring typedef event kind=(%s) from metadataCollection=(%s)", evt.Kind, sender)
		return OutcomeIgnored
	}
}

func (p *TypeDefProcessor) putTypeDef(ctx context.Context, sender string, evt *event.TypeDefEvent) Outcome {
	def := evt.TypeDef
	if def == nil || def.GUID == "" || def.Name == "" {
		p.logger.Errorf("%s from metadataCollection=(%s) carries no type definition", evt.Kind, sender)
		return OutcomeFailed
	}

	if known, ok := p.types.TypeDef(def.GUID); ok {
		if def.Version <= known.Version {
			return OutcomeDiscarded
		}
	} else if other, ok := p.types.TypeDefByName(def.Name); ok && other.GUID != def.GUID {
		p.conflict(ctx, &event.TypeDefErrorDetail{
			Code:                       event.ConflictingTypeDefs,
			Message:                    gerrors.NewErrConflictingTypeDef(def.Name).Error(),
			TargetMetadataCollectionID: sender,
			TargetTypeDef:              summaryOf(def.Summary()),
			OtherTypeDef:               summaryOf(other.Summary()),
		})
		return OutcomeDiscarded
	}

	if err := p.types.Validate(def); err != nil {
		p.conflict(ctx, &event.TypeDefErrorDetail{
			Code:                       event.InvalidTypeDef,
			Message:                    gerrors.NewErrInvalidTypeDef(def.Name, err).Error(),
			TargetMetadataCollectionID: sender,
			TargetTypeDef:              summaryOf(def.Summary()),
		})
		return OutcomeDiscarded
	}

	p.types.PutTypeDef(def)
	p.logger.Infof("type=(%s) version=(%d) accepted from metadataCollection=(%s)", def.Name, def.Version, sender)
	return OutcomeApplied
}

func (p *TypeDefProcessor) putAttributeTypeDef(ctx context.Context, sender string, evt *event.TypeDefEvent) Outcome {
	def := evt.AttributeTypeDef
	if def == nil || def.GUID == "" || def.Name == "" {
		p.logger.Errorf("%s from metadataCollection=(%s) carries no attribute type definition", evt.Kind, sender)
		return OutcomeFailed
	}

	if known, ok := p.types.AttributeTypeDef(def.GUID); ok {
		if def.Version <= known.Version {
			return OutcomeDiscarded
		}
	} else if other, ok := p.types.AttributeTypeDefByName(def.Name); ok && other.GUID != def.GUID {
		p.conflict(ctx, &event.TypeDefErrorDetail{
			Code:                       event.ConflictingAttributeTypeDefs,
			Message:                    gerrors.NewErrConflictingTypeDef(def.Name).Error(),
			TargetMetadataCollectionID: sender,
			TargetTypeDef:              &metadata.TypeDefSummary{GUID: def.GUID, Name: def.Name, Version: def.Version},
			OtherTypeDef:               &metadata.TypeDefSummary{GUID: other.GUID, Name: other.Name, Version: other.Version},
		})
		return OutcomeDiscarded
	}

	p.types.PutAttributeTypeDef(def)
	p.logger.Infof("attribute type=(%s) version=(%d) accepted from metadataCollection=(%s)", def.Name, def.Version, sender)
	return OutcomeApplied
}

func (p *TypeDefProcessor) deleteTypeDef(evt *event.TypeDefEvent) Outcome {
	guid := ""
	switch {
	case evt.OriginalTypeDef != nil:
		guid = evt.OriginalTypeDef.GUID
		if guid == "" {
			if known, ok := p.types.TypeDefByName(evt.OriginalTypeDef.Name); ok {
				guid = known.GUID
			}
		}
	case evt.TypeDef != nil:
		guid = evt.TypeDef.GUID
	}

	if guid == "" || !p.types.RemoveTypeDef(guid) {
		return OutcomeIgnored
	}
	return OutcomeApplied
}

func (p *TypeDefProcessor) deleteAttributeTypeDef(evt *event.TypeDefEvent) Outcome {
	guid := ""
	switch {
	case evt.OriginalAttributeTypeDef != nil:
		guid = evt.OriginalAttributeTypeDef.GUID
		if guid == "" {
			if known, ok := p.types.AttributeTypeDefByName(evt.OriginalAttributeTypeDef.Name); ok {
				guid = known.GUID
			}
		}
	case evt.AttributeTypeDef != nil:
		guid = evt.AttributeTypeDef.GUID
	}

	if guid == "" || !p.types.RemoveAttributeTypeDef(guid) {
		return OutcomeIgnored
	}
	return OutcomeApplied
}

func (p *TypeDefProcessor) reidentifyTypeDef(ctx context.Context, sender string, evt *event.TypeDefEvent) Outcome {
	def := evt.TypeDef
	original := evt.OriginalTypeDef
	if def == nil || original == nil || def.GUID == "" || def.Name == "" {
		p.logger.Errorf("%s from metadataCollection=(%s) is incomplete", evt.Kind, sender)
		return OutcomeFailed
	}

	// replayed rename
	if known, ok := p.types.TypeDef(def.GUID); ok && known.Name == def.Name && known.Version >= def.Version {
		return OutcomeDiscarded
	}

	if other, ok := p.types.TypeDefByName(def.Name); ok && other.GUID != def.GUID && other.GUID != original.GUID {
		p.conflict(ctx, &event.TypeDefErrorDetail{
			Code:                       event.ConflictingTypeDefs,
			Message:                    gerrors.NewErrConflictingTypeDef(def.Name).Error(),
			TargetMetadataCollectionID: sender,
			TargetTypeDef:              summaryOf(def.Summary()),
			OtherTypeDef:               summaryOf(other.Summary()),
		})
		return OutcomeDiscarded
	}

	if err := p.types.Validate(def); err != nil {
		p.conflict(ctx, &event.TypeDefErrorDetail{
			Code:                       event.InvalidTypeDef,
			Message:                    gerrors.NewErrInvalidTypeDef(def.Name, err).Error(),
			TargetMetadataCollectionID: sender,
			TargetTypeDef:              summaryOf(def.Summary()),
		})
		return OutcomeDiscarded
	}

	p.types.ReIdentifyTypeDef(*original, def)
	p.logger.Infof("type=(%s/%s) re-identified as type=(%s/%s)", original.GUID, original.Name, def.GUID, def.Name)
	return OutcomeApplied
}

func (p *TypeDefProcessor) reidentifyAttributeTypeDef(ctx context.Context, sender string, evt *event.TypeDefEvent) Outcome {
	def := evt.AttributeTypeDef
	original := evt.OriginalAttributeTypeDef
	if def == nil || original == nil || def.GUID == "" || def.Name == "" {
		p.logger.Errorf("%s from metadataCollection=(%s) is incomplete", evt.Kind, sender)
		return OutcomeFailed
	}

	if known, ok := p.types.AttributeTypeDef(def.GUID); ok && known.Name == def.Name && known.Version >= def.Version {
		return OutcomeDiscarded
	}

	if other, ok := p.types.AttributeTypeDefByName(def.Name); ok && other.GUID != def.GUID && other.GUID != original.GUID {
		p.conflict(ctx, &event.TypeDefErrorDetail{
			Code:                       event.ConflictingAttributeTypeDefs,
			Message:                    gerrors.NewErrConflictingTypeDef(def.Name).Error(),
			TargetMetadataCollectionID: sender,
			TargetTypeDef:              &metadata.TypeDefSummary{GUID: def.GUID, Name: def.Name, Version: def.Version},
			OtherTypeDef:               &metadata.TypeDefSummary{GUID: other.GUID, Name: other.Name, Version: other.Version},
		})
		return OutcomeDiscarded
	}

	p.types.ReIdentifyAttributeTypeDef(*original, def)
	p.logger.Infof("attribute type=(%s/%s) re-identified as attribute type=(%s/%s)", original.GUID, original.Name, def.GUID, def.Name)
	return OutcomeApplied
}

func (p *TypeDefProcessor) report(ctx context.Context, sender string, evt *event.TypeDefEvent) Outcome {
	detail := evt.Error
	if detail == nil {
		p.logger.Errorf("%s from metadataCollection=(%s) carries no detail", evt.Kind, sender)
		return OutcomeFailed
	}

	subject := ""
	if detail.TargetTypeDef != nil {
		subject = detail.TargetTypeDef.Name
	}

	p.conflicts.record(Conflict{
		Kind:     detail.Code.String(),
		Reporter: sender,
		Target:   detail.TargetMetadataCollectionID,
		Subject:  subject,
		Message:  detail.Message,
	})
	p.cfg.metric.RecordConflict(ctx, detail.Code.String())

	if detail.TargetMetadataCollectionID == p.localID {
		p.logger.Errorf("metadataCollection=(%s) reported %s for type=(%s): %s", sender, detail.Code, subject, detail.Message)
	}
	return OutcomeApplied
}

func (p *TypeDefProcessor) conflict(ctx context.Context, detail *event.TypeDefErrorDetail) {
	subject := ""
	if detail.TargetTypeDef != nil {
		subject = detail.TargetTypeDef.Name
	}

	p.conflicts.record(Conflict{
		Kind:     detail.Code.String(),
		Reporter: p.localID,
		Target:   detail.TargetMetadataCollectionID,
		Subject:  subject,
		Message:  detail.Message,
	})
	p.cfg.metric.RecordConflict(ctx, detail.Code.String())
	p.logger.Errorf("%s: %s", detail.Code, detail.Message)

	if p.cfg.publisher == nil {
		return
	}
	if err := p.cfg.publisher.Publish(ctx, event.NewTypeDefErrorEvent(detail)); err != nil {
		p.logger.Errorf("failed to publish %s: %v", detail.Code, err)
	}
}

