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

// Package processor applies the instance and type definition events
// received from the cohort.
//
// Every event is processed on its own. Processing is idempotent: the same
// event delivered twice, or an older event delivered after a newer one,
// leaves the local state unchanged. A failure is logged and the event is
// dropped; it never stops the processing of the following events.
package processor

import (
	"context"
	"fmt"
	"sync"

	"github.com/tochemey/cohort/errors"
	"github.com/tochemey/cohort/event"
	"github.com/tochemey/cohort/federation"
	"github.com/tochemey/cohort/log"
	"github.com/tochemey/cohort/metadata"
)

// Publisher sends events to the rest of the cohort
type Publisher interface {
	Publish(ctx context.Context, evt event.Event) error
}

// ReferenceCopyStore keeps the copies of instances homed by other members.
// It is implemented by *repository.Memory.
type ReferenceCopyStore interface {
	SaveEntityReferenceCopy(ctx context.Context, entity *metadata.Entity) error
	SaveRelationshipReferenceCopy(ctx context.Context, rel *metadata.Relationship) error
	PurgeEntityReferenceCopy(ctx context.Context, guid string) error
	PurgeRelationshipReferenceCopy(ctx context.Context, guid string) error
}

// HomeLocator finds the connector of a cohort member. It is implemented by *federation.Connector.
type HomeLocator interface {
	ConnectorFor(collectionID string) (federation.CohortConnector, bool)
}

// Outcome is the result of processing one event
type Outcome uint8

const (
	// OutcomeApplied means the event changed the local state or was recorded
	OutcomeApplied Outcome = iota
	// OutcomeDiscarded means the event was stale, duplicated or rejected
	OutcomeDiscarded
	// OutcomeIgnored means the event does not concern the local member
	OutcomeIgnored
	// OutcomeFailed means the event could not be processed
	OutcomeFailed
)

var outcomeNames = [...]string{"applied", "discarded", "ignored", "failed"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Conflict is an entry of the conflict ledger
type Conflict struct {
	// Kind is the kind of error event, an event.InstanceKind or an event.TypeDefErrorCode name
	Kind string
	// Reporter is the member that detected the conflict
	Reporter string
	// Target is the member the conflict is addressed to
	Target string
	// Subject identifies the instance or type in conflict
	Subject string
	Message string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s reported by %s to %s about %s: %s", c.Kind, c.Reporter, c.Target, c.Subject, c.Message)
}

// ledger keeps the most recent conflicts
type ledger struct {
	mu      sync.Mutex
	size    int
	entries []Conflict
}

func newLedger(size int) *ledger {
	return &ledger{size: size}
}

func (l *ledger) record(conflict Conflict) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == l.size {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, conflict)
}

func (l *ledger) snapshot() []Conflict {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Conflict(nil), l.entries...)
}

// recoverEvent turns a panic raised while processing an event into a failed outcome
func recoverEvent(logger log.Logger, kind fmt.Stringer, outcome *Outcome) {
	if r := recover(); r != nil {
		err := errors.NewPanicError(fmt.Errorf("%v", r))
		logger.Errorf("processing %s panicked: %v", kind, err)
		*outcome = OutcomeFailed
	}
}
