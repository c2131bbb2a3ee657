// Package kv provides the namespaced key-value persistence layer backing
// carts and user profiles. Values are stored as JSON; unreadable or corrupt
// entries are treated as absent rather than fatal.
package kv

import (
	"context"
	"strings"
)

// Store is the persistence surface consumed by the cart and tracker.
type Store interface {
	// Get decodes the value at key into dest. Missing and corrupt entries
	// both report found=false; corruption is logged by the backend.
	Get(ctx context.Context, key string, dest any) (found bool, err error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	// Clear removes every key in the store's namespace.
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Namespaced wraps a store so that every key is prefixed with the given
// namespace. Used to give each session its own cart/profile keyspace.
func Namespaced(store Store, namespace string) Store {
	namespace = strings.TrimSuffix(namespace, ":")
	if namespace == "" {
		return store
	}
	return &namespaced{store: store, prefix: namespace + ":"}
}

type namespaced struct {
	store  Store
	prefix string
}

func (n *namespaced) key(key string) string {
	return n.prefix + key
}

func (n *namespaced) Get(ctx context.Context, key string, dest any) (bool, error) {
	return n.store.Get(ctx, n.key(key), dest)
}

func (n *namespaced) Set(ctx context.Context, key string, value any) error {
	return n.store.Set(ctx, n.key(key), value)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	return n.store.Remove(ctx, n.key(key))
}

func (n *namespaced) Has(ctx context.Context, key string) (bool, error) {
	return n.store.Has(ctx, n.key(key))
}

// prefixClearer is implemented by backends that can delete a key range
// without touching neighbouring namespaces.
type prefixClearer interface {
	ClearPrefix(ctx context.Context, prefix string) error
}

func (n *namespaced) Clear(ctx context.Context) error {
	if pc, ok := n.store.(prefixClearer); ok {
		return pc.ClearPrefix(ctx, n.prefix)
	}
	return n.store.Clear(ctx)
}

func (n *namespaced) Ping(ctx context.Context) error {
	return n.store.Ping(ctx)
}
