package subscription

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

const lockShards = 64

// keyMutex provides per-tenant mutual exclusion without serializing
// unrelated tenants against each other. Tenant ids hash onto a fixed set of
// shards; colliding tenants share a lock, which is correct, just slightly
// coarser.
type keyMutex struct {
	shards [lockShards]sync.Mutex
}

// Lock acquires the shard for the tenant and returns the unlock func.
func (m *keyMutex) Lock(tenantID uuid.UUID) func() {
	h := fnv.New32a()
	h.Write(tenantID[:])
	shard := &m.shards[h.Sum32()%lockShards]
	shard.Lock()
	return shard.Unlock
}
