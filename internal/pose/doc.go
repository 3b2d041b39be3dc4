// Package pose owns the shared ghost pose cache.
//
// Ownership boundary:
// - latest observed joint-position snapshot of the ghost proxy
//
// - the ingestion task that copies feed updates into the cache
//
// Readers always receive a deep copy; a snapshot never aliases cache memory.
package pose
