package intercept

import "sync"

type spliceKey struct {
	owner any
	name  string
}

// Gateway tracks splices performed on behalf of one integration.
type Gateway struct {
	mu       sync.Mutex
	installs map[spliceKey]func()
}

// NewGateway returns an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{installs: make(map[spliceKey]func())}
}

// Splice splices hook (belonging to owner) through the gateway. It reports
// whether a new replacement was installed; repeated calls for the same owner
// and hook name are no-ops. A hook already spliced elsewhere is left alone
// and not recorded, so RestoreAll only undoes this gateway's own splices.
// owner must be comparable.
func Splice[F any](g *Gateway, owner any, hook *Hook[F], build func(original F) F) bool {
	key := spliceKey{owner: owner, name: hook.Name()}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.installs[key]; ok {
		return false
	}
	if !hook.Splice(build) {
		return false
	}
	g.installs[key] = hook.Restore
	return true
}

// Installed reports whether this gateway holds the splice of owner's hook name.
func (g *Gateway) Installed(owner any, name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.installs[spliceKey{owner: owner, name: name}]
	return ok
}

// RestoreAll undoes every splice performed through the gateway.
func (g *Gateway) RestoreAll() {
	g.mu.Lock()
	restores := make([]func(), 0, len(g.installs))
	for key, restore := range g.installs {
		restores = append(restores, restore)
		delete(g.installs, key)
	}
	g.mu.Unlock()
	for _, restore := range restores {
		restore()
	}
}
