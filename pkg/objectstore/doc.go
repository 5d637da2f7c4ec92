/*
Package objectstore defines the Object Store Port and provides three
adapters: [BoltStore], a durable go.etcd.io/bbolt-backed store with one
bucket per object kind, [MemoryStore], an in-process map-backed store
for tests and short-lived tooling, and [FileStore], which keeps objects
in memory like MemoryStore but persists refs as files. All three
implement [Port] identically;
pkg/graph, pkg/checkpoint, pkg/trust, and pkg/audit depend only on the
interface.
*/
package objectstore
