package projection

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Registry maps country codes to projection parameters.
// A Registry is read-only after construction.
type Registry struct {
	params map[string]Parameters
}

// NewRegistry validates and indexes the given parameter sets.
// Codes are case-insensitive; duplicates are rejected.
func NewRegistry(params ...Parameters) (*Registry, error) {
	r := &Registry{params: make(map[string]Parameters, len(params))}
	for _, p := range params {
		p.Code = normalizeCode(p.Code)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, ok := r.params[p.Code]; ok {
			return nil, errors.Wrapf(ErrInvalidParameters, "duplicate country code %q", p.Code)
		}
		r.params[p.Code] = p
	}
	return r, nil
}

// With returns a new registry where the given parameter sets replace or
// extend the receiver's entries.
func (r *Registry) With(overrides ...Parameters) (*Registry, error) {
	merged := make(map[string]Parameters, len(r.params)+len(overrides))
	for code, p := range r.params {
		merged[code] = p
	}

	seen := make(map[string]bool, len(overrides))
	for _, p := range overrides {
		p.Code = normalizeCode(p.Code)
		if seen[p.Code] {
			return nil, errors.Wrapf(ErrInvalidParameters, "duplicate country code %q", p.Code)
		}
		seen[p.Code] = true
		if err := p.Validate(); err != nil {
			return nil, err
		}
		merged[p.Code] = p
	}

	return &Registry{params: merged}, nil
}

// Get returns the parameters registered for code.
// It never substitutes another country.
func (r *Registry) Get(code string) (Parameters, error) {
	p, ok := r.params[normalizeCode(code)]
	if !ok {
		return Parameters{}, errors.Wrapf(ErrUnknownCountry, "country %q", code)
	}
	return p, nil
}

// Resolve looks up code and, only when the caller names a fallback, falls
// back to it. fellBack reports whether the fallback was used.
func (r *Registry) Resolve(code, fallback string) (p Parameters, fellBack bool, err error) {
	p, err = r.Get(code)
	if err == nil || fallback == "" || !errors.Is(err, ErrUnknownCountry) {
		return p, false, err
	}

	p, err = r.Get(fallback)
	if err != nil {
		return Parameters{}, false, errors.Wrapf(err, "fallback for %q", code)
	}
	return p, true, nil
}

// Codes returns the registered country codes in sorted order.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.params))
	for code := range r.params {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
