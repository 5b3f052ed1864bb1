package datapull

// Registry is an ordered list of registered handlers. Registration order
// establishes priority: earlier-registered handlers are tried first.
//
// A Registry is populated once at process start and never mutated
// afterwards, so concurrent reads from different conversations are safe by
// construction. Tests build isolated registries; there is no package-level
// singleton.
type Registry struct {
	handlers []Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a handler at the lowest remaining priority. Handlers are
// never removed at runtime; hot-reloading is not supported.
func (r *Registry) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Candidates returns all registered handlers whose CanHandle predicate
// accepts the dataset, preserving registration order.
func (r *Registry) Candidates(ds Dataset) []Handler {
	var out []Handler
	for _, h := range r.handlers {
		if h.CanHandle(ds) {
			out = append(out, h)
		}
	}
	return out
}

// Named returns the handler registered under the given name, or nil.
func (r *Registry) Named(name string) Handler {
	for _, h := range r.handlers {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// Names lists registered handler names in priority order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.handlers))
	for i, h := range r.handlers {
		out[i] = h.Name()
	}
	return out
}
