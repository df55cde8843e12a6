package quota

import "fmt"

// Registry holds every configured service's quota accounting, keyed by
// service name.
type Registry struct {
	services map[string]*Service
}

// NewRegistry builds a Registry from a name -> Config mapping.
func NewRegistry(configs map[string]Config) *Registry {
	services := make(map[string]*Service, len(configs))
	for name, cfg := range configs {
		services[name] = NewService(name, cfg)
	}
	return &Registry{services: services}
}

// Get returns the named service, or an error if it isn't configured. A
// job whose request names an unconfigured service is a caller bug, not
// a transient condition.
func (r *Registry) Get(name string) (*Service, error) {
	s, ok := r.services[name]
	if !ok {
		return nil, fmt.Errorf("quota: unknown service %q", name)
	}
	return s, nil
}

// Names returns every configured service name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.services))
	for n := range r.services {
		names = append(names, n)
	}
	return names
}
