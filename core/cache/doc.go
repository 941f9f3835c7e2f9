// Package cache memoizes expensive bulk enumerations across invocations.
//
// An entry is stored in a blob.Store as {"timestamp": <unix seconds>, "data": ...}
// under a key derived from the resource kind. It expires once its age reaches
// the TTL (six hours by default).
package cache
