/*
Package reducer folds causally-ordered patches into a materialized graph
state ([Reduce]), merges two independently-materialized states produced
by disjoint patch batches ([Join]), and projects visibility over a
materialized state ([NodeVisible], [EdgeVisible], [PropVisible]).

Reduce and Join are pure functions: neither performs I/O, neither
suspends, and both are built entirely out of pkg/crdt's ORSet and
LWWRegister primitives so that commutativity, associativity, and
idempotence fall out of those primitives' own guarantees rather than
needing to be re-proven here.
*/
package reducer
