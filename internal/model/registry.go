package model

import "strings"

// Descriptor is a single model's static metadata (spec.md §3 "Model
// descriptor"). Prices are USD per 1M tokens.
type Descriptor struct {
	ID             string
	DisplayName    string
	Version        string
	PriceInput     float64
	PriceOutput    float64
	ContextWindow  int
	MaxOutputToks  int
	Reasoning      bool
	Vision         bool
	Agentic        bool
}

// Registry holds the model catalog plus an alias table that redirects
// short names to canonical ids.
type Registry struct {
	models      map[string]Descriptor
	aliases     map[string]string
	brandPrefix string // stripped from a resolved name when present, e.g. "blockrun/"
}

// NewRegistry builds a Registry from a model list and an alias map. Alias
// values do not need to already be canonical ids; ResolveAlias follows
// alias chains to a fixed point.
func NewRegistry(models []Descriptor, aliases map[string]string, brandPrefix string) *Registry {
	r := &Registry{
		models:      make(map[string]Descriptor, len(models)),
		aliases:     make(map[string]string, len(aliases)),
		brandPrefix: brandPrefix,
	}
	for _, m := range models {
		r.models[m.ID] = m
	}
	for k, v := range aliases {
		r.aliases[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return r
}

// Lookup returns a model's descriptor by canonical id.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	d, ok := r.models[id]
	return d, ok
}

// All returns every registered model descriptor, for the /v1/models
// enumeration endpoint.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	return out
}

// ResolveAlias normalizes a requested model name: lowercase + trim,
// alias-map lookup, then brand-prefix stripping. Resolution is idempotent:
// ResolveAlias(ResolveAlias(x)) == ResolveAlias(x).
func (r *Registry) ResolveAlias(requested string) string {
	name := strings.ToLower(strings.TrimSpace(requested))

	// Follow the alias chain to a fixed point, bounded to avoid an
	// accidental cycle in hand-edited config hanging a request.
	for i := 0; i < 8; i++ {
		next, ok := r.aliases[name]
		if !ok || next == name {
			break
		}
		name = strings.ToLower(strings.TrimSpace(next))
	}

	if r.brandPrefix != "" && strings.HasPrefix(name, r.brandPrefix) {
		stripped := strings.TrimPrefix(name, r.brandPrefix)
		// Only strip when the remainder itself resolves to something
		// known (model id or another alias); otherwise the prefix was
		// semantically meaningful (a routing-profile name like
		// "blockrun/auto" keeps its prefix for the caller to recognize).
		if _, known := r.models[stripped]; known {
			name = stripped
		} else if _, known := r.aliases[stripped]; known {
			name = stripped
		}
	}

	return name
}

// IsProfileName reports whether name (already normalized via
// ResolveAlias) is one of the recognized routing-profile names.
func IsProfileName(name string) (Profile, bool) {
	switch name {
	case "free", "blockrun/free":
		return ProfileFree, true
	case "eco", "blockrun/eco":
		return ProfileEco, true
	case "auto", "blockrun/auto":
		return ProfileAuto, true
	case "premium", "blockrun/premium":
		return ProfilePremium, true
	default:
		return "", false
	}
}
