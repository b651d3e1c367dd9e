// Package doccache is a disk-backed LRU cache for command documentation
// pages, bounded by a total byte budget.
//
// Each record is one JSON file under the cache directory; the file's
// modification time serves as its last-access time, so recency survives
// process restarts without a separate index. Get refreshes the mtime on
// every hit and silently deletes records it cannot decode. Set writes
// atomically (temp file plus rename) and then kicks off an asynchronous
// eviction pass, guarded by a compare-and-swap lock so at most one pass
// runs at a time; a Set that finds the lock held simply skips the
// trigger. Eviction deletes oldest-accessed records until the total
// fits the budget.
//
// The cache is safe for concurrent use within one process. Cross-process
// writers are not coordinated beyond the atomic rename.
package doccache
