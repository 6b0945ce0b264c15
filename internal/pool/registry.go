package pool

import "sync"

// registry tracks every live pool in the process. A pool is present iff it
// has not yet terminated; terminate is the only deregistration path.
var registry = struct {
	mu    sync.Mutex
	pools map[string]*Pool
}{pools: make(map[string]*Pool)}

func register(p *Pool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.pools[p.id] = p
}

func deregister(p *Pool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.pools, p.id)
}

// Registered reports whether the pool with the given ID is still live.
func Registered(id string) bool {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	_, ok := registry.pools[id]
	return ok
}
