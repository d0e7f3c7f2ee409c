// Package kv holds the key/value backends the cart snapshot is written to.
package kv

import "context"

// Store is an addressable string store. Get reports ok=false when the key
// has never been written.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}
