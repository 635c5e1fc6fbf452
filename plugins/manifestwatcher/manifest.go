package manifestwatcher

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/bundlekit/pkg/bundlekit"
)

// Manifest is the desired set of bundles.
//
//	[[bundle]]
//	name = "greeter"
//	version = "1.0.0"
//	activator = "greeter"
//	requires = ["logger"]
//	start = true
type Manifest struct {
	Bundles []Entry `toml:"bundle"`
}

// Entry describes one bundle of a manifest.
type Entry struct {
	Name      string   `toml:"name"`
	Version   string   `toml:"version"`
	Activator string   `toml:"activator"`
	Requires  []string `toml:"requires"`
	Start     bool     `toml:"start"`
}

// Factory builds a fresh activator for an install.
type Factory func() bundlekit.Activator

// Catalog maps manifest activator names to factories.
type Catalog map[string]Factory

// ErrUnknownActivator is returned for a manifest entry naming an activator
// missing from the catalog.
var ErrUnknownActivator = errors.New("manifestwatcher: unknown activator")

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string, catalog Catalog) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data, catalog)
}

// ParseManifest decodes a TOML manifest and checks it against catalog.
func ParseManifest(data []byte, catalog Catalog) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Bundles))
	for i, e := range m.Bundles {
		if e.Name == "" {
			return nil, fmt.Errorf("bundle %d: name is required", i)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("bundle %q: %w", e.Name, bundlekit.ErrDuplicateBundle)
		}
		seen[e.Name] = true
		if e.Activator != "" {
			if _, ok := catalog[e.Activator]; !ok {
				return nil, fmt.Errorf("bundle %q: %w %q", e.Name, ErrUnknownActivator, e.Activator)
			}
		}
	}
	return &m, nil
}

// spec builds the install spec of e. location records where it came from.
func (e Entry) spec(catalog Catalog, location string) bundlekit.BundleSpec {
	s := bundlekit.BundleSpec{
		SymbolicName: e.Name,
		Version:      e.Version,
		Location:     location,
		Requires:     append([]string(nil), e.Requires...),
	}
	if f := catalog[e.Activator]; f != nil {
		s.Activator = f()
	}
	return s
}

// sameDefinition reports whether b was installed from an identical entry.
func (e Entry) sameDefinition(b *bundlekit.Bundle, activator string) bool {
	if b.Version() != e.Version || activator != e.Activator {
		return false
	}
	req := b.Requires()
	if len(req) != len(e.Requires) {
		return false
	}
	for i := range req {
		if req[i] != e.Requires[i] {
			return false
		}
	}
	return true
}
