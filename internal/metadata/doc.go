// Package metadata resolves opaque file identifiers into the descriptors the
// streaming engine needs: size, content type, display name and the object
// key inside the backend buckets.
//
// Two resolvers are provided. SQLStore persists descriptors in sqlite
// (modernc.org/sqlite) or postgres (pgx) and issues KSUID identifiers on
// registration. MemoryResolver is a fixed map, convenient for tests and
// small static deployments.
package metadata
