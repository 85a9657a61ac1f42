// Package backend provides a registry of storage gateways keyed by scheme
// name. Gateways need credentials to be useful, so they do not self-register:
// callers construct one and Register it under the scheme (or URI prefix) it
// should serve.
package backend

import (
	"sort"
	"sync"

	"github.com/drivegate/drivegate"
)

var mmu sync.RWMutex
var m map[string]drivegate.Gateway

// Register a gateway in the backend map
func Register(name string, g drivegate.Gateway) {
	mmu.Lock()
	m[name] = g
	mmu.Unlock()
}

// Unregister removes a gateway from the backend map
func Unregister(name string) {
	mmu.Lock()
	delete(m, name)
	mmu.Unlock()
}

// UnregisterAll removes all gateways from the backend map
func UnregisterAll() {
	// mainly for tests
	mmu.Lock()
	m = make(map[string]drivegate.Gateway)
	mmu.Unlock()
}

// Backend returns the registered gateway by name, or nil
func Backend(name string) drivegate.Gateway {
	mmu.RLock()
	defer mmu.RUnlock()
	return m[name]
}

// RegisteredBackends returns the sorted names of registered gateways
func RegisteredBackends() []string {
	var f []string
	mmu.RLock()
	for k := range m {
		f = append(f, k)
	}
	mmu.RUnlock()
	sort.Strings(f)
	return f
}

func init() {
	m = make(map[string]drivegate.Gateway)
}
