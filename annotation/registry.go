package annotation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vvakame/annogql/directive"
)

// Factory builds an annotation from a directive occurrence.
// Returning a nil Annotation with a nil error skips the occurrence.
type Factory func(info *directive.Info, target directive.Target) (Annotation, error)

// Registry maps directive tags to factories. It is filled at startup and only read afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register panics when tag is empty or already registered.
func (r *Registry) Register(tag string, factory Factory) {
	if tag == "" {
		panic("annotation: empty tag")
	}
	if factory == nil {
		panic(fmt.Sprintf("annotation: nil factory for @%s", tag))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[tag]; ok {
		panic(fmt.Sprintf("annotation: @%s is already registered", tag))
	}
	r.factories[tag] = factory
}

func (r *Registry) Lookup(tag string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[tag]
	return f, ok
}

func (r *Registry) Has(tag string) bool {
	_, ok := r.Lookup(tag)
	return ok
}

// Tags returns the registered tags in lexical order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
