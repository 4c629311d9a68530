package param

import (
	"sort"
	"strings"
	"sync"
)

// Registry manages plugin parameters
type Registry struct {
	params map[string]*Parameter
	order  []string // Maintain declaration order
	mu     sync.RWMutex
}

// Report describes what Apply did with a parameter string
type Report struct {
	Applied []string // keys whose value was taken as given
	Clamped []string // keys whose value was malformed or out of range
	Ignored []string // keys the registry does not know
}

// NewRegistry creates a new parameter registry
func NewRegistry() *Registry {
	return &Registry{
		params: make(map[string]*Parameter),
		order:  make([]string, 0),
	}
}

// Add registers parameters; duplicates are skipped
func (r *Registry) Add(params ...*Parameter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range params {
		if _, exists := r.params[p.Name]; exists {
			continue
		}
		r.params[p.Name] = p
		r.order = append(r.order, p.Name)
	}
}

// Get retrieves a parameter by name
func (r *Registry) Get(name string) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.params[name]
}

// Count returns the number of parameters
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// All returns all parameters in declaration order
func (r *Registry) All() []*Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Parameter, len(r.order))
	for i, name := range r.order {
		result[i] = r.params[name]
	}
	return result
}

// ResetAll restores every parameter to its default
func (r *Registry) ResetAll() {
	for _, p := range r.All() {
		p.Reset()
	}
}

// Apply resets all parameters to their defaults and then applies a parameter
// string. Unknown keys are ignored and bad values are clamped; Apply never
// fails. When a key repeats, the last occurrence wins.
func (r *Registry) Apply(params string) Report {
	r.ResetAll()

	var report Report
	for _, tok := range Parse(params) {
		p := r.Get(tok.Key)
		if p == nil {
			report.Ignored = append(report.Ignored, tok.Key)
			continue
		}
		v, ok := ParseNumber(tok.Value)
		if p.SetValue(v) || !ok {
			report.Clamped = append(report.Clamped, tok.Key)
		} else {
			report.Applied = append(report.Applied, tok.Key)
		}
	}
	return report
}

// String returns the canonical parameter string, keys sorted
func (r *Registry) String() string {
	all := r.All()
	parts := make([]string, len(all))
	for i, p := range all {
		parts[i] = p.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, ":")
}
