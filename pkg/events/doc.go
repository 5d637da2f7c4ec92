/*
Package events provides an in-memory event broker for WarpGraph's pub/sub
notifications.

The events package implements a lightweight event bus for broadcasting
graph lifecycle events to interested subscribers. It supports
asynchronous, non-blocking delivery so that operational tooling can
observe a pkg/graph handle's patch commits, checkpoints, sync rounds,
and garbage-collection passes without coupling to a specific
subscriber implementation.

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Non-blocking publish                     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │                                              │          │
	│  │  Publisher → Event Channel (buffer: 100)    │          │
	│  │       ↓                                      │          │
	│  │  Broadcast Loop                              │          │
	│  │       ↓                                      │          │
	│  │  Subscriber Channels (buffer: 50 each)      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Event Types                       │          │
	│  │                                              │          │
	│  │  Patch Events:                              │          │
	│  │    - patch.committed                        │          │
	│  │    - patch.applied                          │          │
	│  │                                              │          │
	│  │  Checkpoint / Sync Events:                  │          │
	│  │    - checkpoint.created                     │          │
	│  │    - sync.applied                           │          │
	│  │                                              │          │
	│  │  Trust / Audit Events:                      │          │
	│  │    - trust.updated                          │          │
	│  │    - audit.appended                         │          │
	│  │                                              │          │
	│  │  Maintenance Events:                        │          │
	│  │    - gc.completed                           │          │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Subscribers                      │          │
	│  │                                              │          │
	│  │  Tooling:    reacts to handle activity      │          │
	│  │  Metrics:    counts events for dashboards   │          │
	│  │  Operators:  tail a graph's live activity   │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Event Broker:
  - Central message bus for event distribution
  - Manages subscriber lifecycle
  - Non-blocking publish (buffered channel)
  - Graceful shutdown via stop channel

Event:
  - ID: Unique event identifier
  - Type: Event type (patch.committed, checkpoint.created, etc.)
  - Timestamp: When the event occurred
  - Message: Human-readable description
  - Metadata: Key-value pairs for additional context (graph, writer, etc.)

Subscriber:
  - Channel that receives Event pointers
  - Buffered (50 events) to handle bursts
  - Created via broker.Subscribe()
  - Closed via broker.Unsubscribe()

# Event Flow

Publish Flow:
 1. Publisher calls broker.Publish(event)
 2. Event added to main event channel (non-blocking)
 3. Broadcast loop receives event
 4. Event sent to all subscriber channels
 5. Subscribers receive event asynchronously
 6. Full subscriber buffers skip (no blocking)

Subscribe Flow:
 1. Subscriber calls broker.Subscribe()
 2. New buffered channel created
 3. Channel registered in subscriber map
 4. Subscriber receives events via the returned channel

Unsubscribe Flow:
 1. Subscriber calls broker.Unsubscribe(channel)
 2. Channel removed from subscriber map
 3. Channel closed

# Usage

Creating and Starting a Broker:

	import "github.com/cuemby/warpgraph/pkg/events"

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribing to Events:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
		}
	}()

Publishing Events:

	broker.Publish(&events.Event{
		ID:      "evt-123",
		Type:    events.EventPatchCommitted,
		Message: "patch committed for graph 'orders'",
		Metadata: map[string]string{
			"graph":  "orders",
			"writer": "w-7f3a",
		},
	})

Filtering Events by Type:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			switch event.Type {
			case events.EventCheckpointCreated:
				handleCheckpoint(event)
			case events.EventTrustUpdated:
				handleTrustUpdate(event)
			default:
				// Ignore other events
			}
		}
	}()

# Integration Points

This package integrates with:

  - pkg/graph: the only publisher; a Handle publishes patch.committed,
    checkpoint.created, sync.applied, and gc.completed when it was opened
    with a Broker
  - no other package publishes or subscribes; patch.applied,
    trust.updated, and audit.appended are defined but never published

# Event Types Catalog

EventPatchCommitted:
  - Published when: a writer appends a patch to its patch chain
  - Metadata: writer, sha (patch digest)
  - Subscribers: metrics, operational tailing

EventPatchApplied:
  - Published when: never; no package in this module publishes it

EventCheckpointCreated:
  - Published when: a new checkpoint commit is written
  - Metadata: commit (checkpoint digest), state_hash
  - Subscribers: metrics

EventSyncApplied:
  - Published when: a sync response from a peer lands at least one patch
  - Metadata: peer, applied (patch count)
  - Subscribers: metrics, operational tailing

EventTrustUpdated:
  - Published when: never; no package in this module publishes it

EventAuditAppended:
  - Published when: never; no package in this module publishes it

EventGCCompleted:
  - Published when: a RunGC compaction pass finishes
  - Metadata: nodes_before, nodes_after
  - Subscribers: metrics

# Design Patterns

Non-Blocking Publish:
  - Publish sends to a buffered channel and returns immediately
  - Events may be dropped if the buffer is full
  - Trade-off: throughput over guaranteed delivery

Fan-Out Pattern:
  - Single event broadcast to all subscribers
  - Each subscriber has its own channel and processing rate
  - Full buffers skip rather than block the broadcast loop

Fire-and-Forget:
  - No acknowledgment from subscribers, no retry on delivery failure
  - Suitable for observability, never for correctness-critical signaling;
    durable facts always live in the object store, not in an event

# Limitations

  - In-memory only: no persistence, no replay, no delivery guarantee
  - No topic-based filtering: subscribers filter client-side by Type
  - Not ordering-sensitive: consumers that need a total order should
    read the patch chain or checkpoint history directly rather than
    reconstruct it from events

# See Also

  - pkg/graph for the handle that publishes these events
*/
package events
