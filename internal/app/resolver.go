package app

import (
	"fmt"

	"github.com/bft-labs/bundlekit/internal/domain"
)

// resolver wires a bundle's requirements to installed bundles.
// Callers hold the framework rendezvous lock.
type resolver struct {
	lookup func(name string) (*Bundle, bool)
}

// resolve moves b and every Installed bundle it transitively requires to
// Resolved. Requirement cycles are allowed. Nothing changes when a
// requirement is missing. The newly resolved bundles are returned in
// dependency order.
func (r resolver) resolve(b *Bundle) ([]*Bundle, error) {
	var pending []*Bundle
	seen := make(map[*Bundle]bool)

	var visit func(x *Bundle) error
	visit = func(x *Bundle) error {
		if seen[x] {
			return nil
		}
		seen[x] = true
		if x.state != domain.StateInstalled {
			return nil
		}
		for _, name := range x.requires {
			dep, ok := r.lookup(name)
			if !ok {
				return fmt.Errorf("%w: %s requires %s", domain.ErrUnresolved, x.name, name)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		pending = append(pending, x)
		return nil
	}

	if err := visit(b); err != nil {
		return nil, err
	}
	for _, x := range pending {
		x.state = domain.StateResolved
	}
	return pending, nil
}
