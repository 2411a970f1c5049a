// Package storage is the engine behind every table operation: it resolves
// cached table metadata, generates parameterized SQL, executes it through
// the driver, evolves table schemas on first sight of new properties,
// resolves optimistic-concurrency conflicts, honors soft deletion, and
// retries transient failures.
//
// Operations are context-first and synchronous; concurrent operations
// interleave at every driver round trip with no ordering guarantee across
// operations. Multi-statement batches travel in one round trip without a
// transaction wrapper, so a failure mid-batch can leave earlier statements
// applied; the engine accepts that edge rather than correcting it.
package storage
