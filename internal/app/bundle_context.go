package app

import (
	"context"
	"sync"
)

// BundleContext is a bundle's handle back into its framework. Listeners
// registered through it are removed when the bundle stops.
type BundleContext struct {
	bundle *Bundle
	fw     *Framework

	mu     sync.Mutex
	tokens []ListenerToken
}

// Bundle returns the bundle this context belongs to.
func (bc *BundleContext) Bundle() *Bundle { return bc.bundle }

// Framework returns the owning framework.
func (bc *BundleContext) Framework() *Framework { return bc.fw }

// Install installs another bundle.
func (bc *BundleContext) Install(ctx context.Context, spec BundleSpec) (*Bundle, error) {
	return bc.fw.Install(ctx, spec)
}

// Lookup returns the installed bundle with the given symbolic name.
func (bc *BundleContext) Lookup(name string) (*Bundle, bool) {
	return bc.fw.Lookup(name)
}

// Bundles returns every installed bundle ordered by id.
func (bc *BundleContext) Bundles() []*Bundle { return bc.fw.Bundles() }

// AddBundleListener registers l until RemoveListener or the bundle stops.
func (bc *BundleContext) AddBundleListener(l BundleListener) ListenerToken {
	tok := bc.fw.AddBundleListener(l)
	bc.track(tok)
	return tok
}

// AddFrameworkListener registers l until RemoveListener or the bundle stops.
func (bc *BundleContext) AddFrameworkListener(l FrameworkListener) ListenerToken {
	tok := bc.fw.AddFrameworkListener(l)
	bc.track(tok)
	return tok
}

// RemoveListener unregisters a listener added through this context.
func (bc *BundleContext) RemoveListener(tok ListenerToken) {
	bc.mu.Lock()
	for i, t := range bc.tokens {
		if t == tok {
			bc.tokens = append(bc.tokens[:i], bc.tokens[i+1:]...)
			break
		}
	}
	bc.mu.Unlock()
	bc.fw.RemoveListener(tok)
}

func (bc *BundleContext) track(tok ListenerToken) {
	bc.mu.Lock()
	bc.tokens = append(bc.tokens, tok)
	bc.mu.Unlock()
}

// release drops every listener the bundle registered.
func (bc *BundleContext) release() {
	bc.mu.Lock()
	tokens := bc.tokens
	bc.tokens = nil
	bc.mu.Unlock()
	for _, tok := range tokens {
		bc.fw.RemoveListener(tok)
	}
}
