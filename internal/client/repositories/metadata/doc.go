// Package metadata is a small key/value store for client preferences such as
// the last used discovery filter. Values are opaque bytes; the JSON helpers
// cover the common case of structured values.
package metadata
