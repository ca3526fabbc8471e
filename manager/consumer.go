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

package manager

import (
	"context"

	"github.com/tochemey/cohort/connector"
)

// Consumer observes the cohort topology.
//
// Notifications for one consumer are delivered sequentially from a
// dedicated goroutine, never from the caller of the Manager method that
// triggered them, so a consumer may call back into the Manager.
type Consumer interface {
	// SetLocalConnector hands over the connector of the local repository.
	// The connector is shared by all consumers and must not be disconnected by them.
	SetLocalConnector(ctx context.Context, collectionID string, conn connector.Connector)
	// AddRemoteConnector hands over a connector to a new cohort member.
	// The connector is owned by the consumer.
	AddRemoteConnector(ctx context.Context, collectionID string, conn connector.Connector)
	// RemoveRemoteConnector tells the consumer a member left the cohort
	RemoveRemoteConnector(ctx context.Context, collectionID string)
}

type localConnectorSet struct {
	collectionID string
	connector    connector.Connector
}

type remoteConnectorAdded struct {
	collectionID string
	connector    connector.Connector
}

type remoteConnectorRemoved struct {
	collectionID string
}
