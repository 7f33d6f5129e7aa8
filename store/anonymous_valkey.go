package store

import (
	"context"
	"time"

	valkey "github.com/valkey-io/valkey-go"

	"github.com/coursebook/scopedauth/authz"
)

// ValkeyAnonymousCache is a read-through cache for the anonymous permission
// set, backed by Valkey (Redis-compatible). The anonymous set is consulted
// on every single permission check, so deployments with many scopes put it
// behind a short TTL instead of hitting the database each time.
type ValkeyAnonymousCache struct {
	client valkey.Client
	source authz.AnonymousSource
	prefix string
	ttl    time.Duration
}

// NewValkeyAnonymousCache connects to Valkey and wraps the given source.
// addr example: "127.0.0.1:6379"; prefix namespaces the cache keys.
func NewValkeyAnonymousCache(addr, prefix string, ttl time.Duration, source authz.AnonymousSource) (*ValkeyAnonymousCache, error) {
	cli, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "scopedauth:"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ValkeyAnonymousCache{client: cli, source: source, prefix: prefix, ttl: ttl}, nil
}

func (c *ValkeyAnonymousCache) key(perm string) string { return c.prefix + "anon:" + perm }

// HasAnonymousPermission implements authz.AnonymousSource. A cache miss (or
// any Valkey error) falls through to the underlying source; the verdict is
// then cached with the configured TTL. Cache write failures are ignored;
// the decision is already made.
func (c *ValkeyAnonymousCache) HasAnonymousPermission(ctx context.Context, perm string) (bool, error) {
	resp := c.client.Do(ctx, c.client.B().Get().Key(c.key(perm)).Build())
	if v, err := resp.ToString(); err == nil {
		return v == "1", nil
	}

	granted, err := c.source.HasAnonymousPermission(ctx, perm)
	if err != nil {
		return false, err
	}
	v := "0"
	if granted {
		v = "1"
	}
	_ = c.client.Do(ctx, c.client.B().Set().Key(c.key(perm)).Value(v).Ex(c.ttl).Build()).Error()
	return granted, nil
}

// Invalidate drops the cached verdict for a permission. Call after granting
// or revoking an anonymous permission.
func (c *ValkeyAnonymousCache) Invalidate(ctx context.Context, perm string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(c.key(perm)).Build()).Error()
}

// Close releases the Valkey connection.
func (c *ValkeyAnonymousCache) Close() { c.client.Close() }
