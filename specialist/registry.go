package specialist

import (
	"fmt"

	"github.com/erni-gruppe/building-agents/core"
)

// Registry holds the validated specialist graph. Construction fails fast on
// dangling handoff targets or unregistered initializer names, so a running
// service can always resolve every edge it might take.
type Registry struct {
	entry        string
	order        []string
	byName       map[string]*Specialist
	initializers map[string]Initializer
}

// NewRegistry validates and assembles a registry. The entry specialist
// receives control of new conversations.
func NewRegistry(entry string, specialists []*Specialist, initializers map[string]Initializer) (*Registry, error) {
	r := &Registry{
		entry:        entry,
		byName:       make(map[string]*Specialist, len(specialists)),
		initializers: initializers,
	}
	if r.initializers == nil {
		r.initializers = map[string]Initializer{}
	}

	for _, s := range specialists {
		if s.Name == "" {
			return nil, fmt.Errorf("specialist with empty name")
		}
		if _, exists := r.byName[s.Name]; exists {
			return nil, fmt.Errorf("duplicate specialist name %q", s.Name)
		}
		r.byName[s.Name] = s
		r.order = append(r.order, s.Name)
	}

	if _, ok := r.byName[entry]; !ok {
		return nil, fmt.Errorf("entry specialist %q not registered", entry)
	}

	for _, s := range specialists {
		for _, h := range s.Handoffs {
			if _, ok := r.byName[h.Target]; !ok {
				return nil, fmt.Errorf("specialist %q hands off to unknown target %q", s.Name, h.Target)
			}
			if h.Target == s.Name {
				return nil, fmt.Errorf("specialist %q hands off to itself", s.Name)
			}
			if h.Initializer != "" {
				if _, ok := r.initializers[h.Initializer]; !ok {
					return nil, fmt.Errorf(
						"specialist %q handoff to %q names unregistered initializer %q",
						s.Name, h.Target, h.Initializer,
					)
				}
			}
		}
	}

	return r, nil
}

// Entry returns the name of the specialist that starts new conversations.
func (r *Registry) Entry() string { return r.entry }

// Get returns a specialist by name.
func (r *Registry) Get(name string) (*Specialist, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Names returns specialist names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Initializer returns a registered initializer by name.
func (r *Registry) Initializer(name string) (Initializer, bool) {
	init, ok := r.initializers[name]
	return init, ok
}

// RunInitializer executes the named initializer against the context. A
// missing name is a no-op: the registry validated all referenced names at
// construction, so this only guards direct misuse.
func (r *Registry) RunInitializer(name string, pc *core.ProjectContext) {
	if name == "" {
		return
	}
	if init, ok := r.initializers[name]; ok {
		init(pc)
	}
}

// Listing is the public description of one specialist.
type Listing struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Handoffs        []string `json:"handoffs"`
	Tools           []string `json:"tools"`
	InputGuardrails []string `json:"input_guardrails"`
}

// Listings describes all specialists in registration order.
func (r *Registry) Listings() []Listing {
	out := make([]Listing, 0, len(r.order))
	for _, name := range r.order {
		s := r.byName[name]
		l := Listing{
			Name:            s.Name,
			Description:     s.Description,
			Handoffs:        make([]string, 0, len(s.Handoffs)),
			Tools:           make([]string, 0, len(s.Tools)),
			InputGuardrails: make([]string, 0, len(s.InputGuardrails)),
		}
		for _, h := range s.Handoffs {
			l.Handoffs = append(l.Handoffs, h.Target)
		}
		for _, t := range s.Tools {
			l.Tools = append(l.Tools, t.Name())
		}
		for _, g := range s.InputGuardrails {
			l.InputGuardrails = append(l.InputGuardrails, g.Name())
		}
		out = append(out, l)
	}
	return out
}
