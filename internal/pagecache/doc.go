// Package pagecache provides an on-disk cache of fetched page bodies with a TTL.
//
// The cache is opt-in. Each page body is stored as <sha1(url)>.html inside the
// cache directory, and index.json records which URL each file holds and when it
// was cached. Entries older than the TTL are treated as missing and removed.
// Reads and writes of the index are guarded by a file lock so that concurrent
// runs sharing a cache directory never see a partially written index.
package pagecache
