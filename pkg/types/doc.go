/*
Package types defines the core data structures shared by every other
WarpGraph package: the CRDT identity vocabulary (Dot, VersionVector,
EventId), the patch wire shape (Patch, Op and its five variants), the
materialized graph state (WarpStateV5), and the trust/audit document
shapes consumed by pkg/trust and pkg/audit.

# Architecture

This package holds data shapes only. The algorithms that operate over
them live elsewhere:

  - pkg/crdt implements the ORSet add/remove and LWW register merge rules
    that WarpStateV5.AliveNodes/AliveEdges/Props are the materialized
    output of. Each ElementView carries both the entry dots and the
    tombstone dots, not just whichever survive, so a materialized state
    can still be joined or compacted correctly later.
  - pkg/reducer folds a causally-ordered []Patch into a *WarpStateV5.
  - pkg/codec serializes a Patch or WarpStateV5 to its canonical byte
    form and computes its content hash.
  - pkg/trust and pkg/audit operate over TrustConfig/TrustChangeReceipt
    and AuditReceipt/AuditReport respectively.

# Identity

A Dot is a (writerId, counter) pair assigned once per add operation; an
EventId additionally carries a patch digest and an op index so that two
PropSet ops within the same patch still resolve deterministically under
the LWW total order. Keep these two distinct: Dot identifies an
add/remove target, EventId breaks ties between concurrent writes.

# Usage

Building a patch:

	p := types.Patch{
		Writer:  "writer-a",
		Lamport: 4,
		Context: types.NewVersionVector(),
		Ops: []types.Op{
			types.NewNodeAdd("n1", types.Dot{Writer: "writer-a", Counter: 1}),
			types.NewPropSet("n1", "label", types.InlineString("root")),
		},
	}
	if err := p.Validate(); err != nil {
		return err
	}
*/
package types
