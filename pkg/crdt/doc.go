/*
Package crdt implements the two conflict-free replicated data types the
reducer folds patches into: ORSet (add-wins observed-remove set) for node
and edge membership, and LWWRegister (last-writer-wins) for property
values. Both are pure value types; pkg/reducer owns the orchestration of
applying a causally-ordered []types.Patch against them and materializing
the result into a *types.WarpStateV5.
*/
package crdt
