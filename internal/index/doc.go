// Package index holds the typed cache facades used by the indexing and
// search services. Each facade binds one named cache from the provider to
// the concrete types that cross it, so consumers never touch interface{}
// values or cache keys directly.
//
// The facades follow the cache contract: operations report success as
// booleans and a degraded backend surfaces as misses, never as errors.
package index
