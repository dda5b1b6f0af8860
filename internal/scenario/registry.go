package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Registry resolves (kind, identifier) pairs to scenario files through a
// manifest. The manifest maps each kind's section to scenario-name →
// relative-path entries and is loaded once per registry instance.
type Registry struct {
	baseDir  string
	manifest map[string]any
}

// NewRegistry returns a registry rooted at the directory holding
// manifest.json and the scenario files it points at.
func NewRegistry(baseDir string) *Registry {
	return &Registry{baseDir: baseDir}
}

// ManifestPath reports the manifest location.
func (r *Registry) ManifestPath() string {
	return filepath.Join(r.baseDir, "manifest.json")
}

func (r *Registry) loadManifest() (map[string]any, error) {
	if r.manifest != nil {
		return r.manifest, nil
	}

	data, err := os.ReadFile(r.ManifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			// A missing manifest just means nothing is registered.
			r.manifest = map[string]any{}
			return r.manifest, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, r.ManifestPath(), err)
	}

	var manifest map[string]any
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, r.ManifestPath(), err)
	}
	r.manifest = manifest
	return manifest, nil
}

// IdentifierKey extracts the scenario key from an identifier, which may be
// a raw string or an enum-like value exposing Name().
func IdentifierKey(id any) string {
	switch v := id.(type) {
	case interface{ Name() string }:
		return strings.TrimSpace(v.Name())
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// ResolvePath looks up the file path registered for a scenario. Unknown
// kinds, malformed sections, unknown scenario keys and malformed path
// values each surface as distinct errors.
func (r *Registry) ResolvePath(kind string, identifier any) (string, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return "", err
	}

	manifest, err := r.loadManifest()
	if err != nil {
		return "", err
	}

	rawSection, ok := manifest[k.Section()]
	if !ok {
		rawSection = map[string]any{}
	}
	section, ok := rawSection.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: section %q is not an object", ErrInvalidManifest, k.Section())
	}

	key := IdentifierKey(identifier)
	rawPath, ok := section[key]
	if !ok {
		return "", fmt.Errorf("%w: %q not found in %s", ErrUnknownScenario, key, k.Section())
	}
	relPath, ok := rawPath.(string)
	if !ok {
		return "", fmt.Errorf("%w: path for %q in %s is not a string", ErrInvalidManifest, key, k.Section())
	}

	return filepath.Join(r.baseDir, relPath), nil
}

// LoadByKind resolves, loads, and cross-checks a scenario: a file whose
// kind disagrees with the manifest section it was found under is rejected.
func (r *Registry) LoadByKind(kind string, identifier any) (*Definition, error) {
	path, err := r.ResolvePath(kind, identifier)
	if err != nil {
		return nil, err
	}
	def, err := Load(path)
	if err != nil {
		return nil, err
	}
	expected, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if def.Kind != expected {
		return nil, fmt.Errorf("%w: %q declares %s but was resolved through %s",
			ErrKindMismatch, def.ID, def.Kind, expected)
	}
	return def, nil
}
