package registry

import (
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aretw0/panel/pkg/domain"
)

// View is an immutable, ordered snapshot of a Registry.
// Views are shared freely between goroutines; mutations of the Registry
// publish a new View and never touch existing ones.
type View struct {
	experts []domain.Expert
	index   map[string]int
}

func newView(experts []domain.Expert) *View {
	v := &View{
		experts: experts,
		index:   make(map[string]int, len(experts)),
	}
	for i, e := range experts {
		v.index[e.ID] = i
	}
	return v
}

// Len returns the number of experts in the view.
func (v *View) Len() int {
	return len(v.experts)
}

// Get looks up an expert by id.
func (v *View) Get(id string) (domain.Expert, bool) {
	i, ok := v.index[id]
	if !ok {
		return domain.Expert{}, false
	}
	return v.experts[i], true
}

// List returns a copy of the experts in registration order.
func (v *View) List() []domain.Expert {
	out := make([]domain.Expert, len(v.experts))
	copy(out, v.experts)
	return out
}

// All iterates the experts in registration order. The sequence may be ranged
// over any number of times.
func (v *View) All() iter.Seq2[int, domain.Expert] {
	return func(yield func(int, domain.Expert) bool) {
		for i, e := range v.experts {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Registry is the ordered mapping from expert id to Expert.
// Reads are lock-free against the current View; writers are serialized.
type Registry struct {
	mu   sync.Mutex
	view atomic.Pointer[View]
}

// New creates a registry holding experts in the given order.
func New(experts ...domain.Expert) (*Registry, error) {
	r := &Registry{}
	r.view.Store(newView(nil))
	if err := r.Replace(experts); err != nil {
		return nil, err
	}
	return r, nil
}

// NewDefault creates a registry seeded with domain.DefaultExperts.
func NewDefault() *Registry {
	r, err := New(domain.DefaultExperts()...)
	if err != nil {
		panic(fmt.Sprintf("registry: invalid default roster: %v", err))
	}
	return r
}

// Snapshot returns the current immutable view.
// In-flight panel requests hold on to it so later mutations do not affect them.
func (r *Registry) Snapshot() *View {
	return r.view.Load()
}

// List returns the experts in registration order.
func (r *Registry) List() []domain.Expert {
	return r.Snapshot().List()
}

// Len returns the number of registered experts.
func (r *Registry) Len() int {
	return r.Snapshot().Len()
}

// Get looks up an expert by id.
func (r *Registry) Get(id string) (domain.Expert, bool) {
	return r.Snapshot().Get(id)
}

// Register appends a new expert at the end of the iteration order.
func (r *Registry) Register(e domain.Expert) error {
	if err := validate(e); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.view.Load()
	if _, ok := cur.index[e.ID]; ok {
		return &domain.DuplicateExpertError{ID: e.ID}
	}
	next := make([]domain.Expert, len(cur.experts), len(cur.experts)+1)
	copy(next, cur.experts)
	r.view.Store(newView(append(next, e)))
	return nil
}

// Update replaces the fields of an existing expert, keeping its position.
func (r *Registry) Update(e domain.Expert) error {
	if err := validate(e); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.view.Load()
	i, ok := cur.index[e.ID]
	if !ok {
		return &domain.UnknownExpertError{ID: e.ID}
	}
	next := cur.List()
	next[i] = e
	r.view.Store(newView(next))
	return nil
}

// Remove deletes an expert. The relative order of the others is kept.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.view.Load()
	i, ok := cur.index[id]
	if !ok {
		return &domain.UnknownExpertError{ID: id}
	}
	next := make([]domain.Expert, 0, len(cur.experts)-1)
	next = append(next, cur.experts[:i]...)
	next = append(next, cur.experts[i+1:]...)
	r.view.Store(newView(next))
	return nil
}

// Replace swaps the whole roster. Either every expert is accepted or the
// registry is left untouched.
func (r *Registry) Replace(experts []domain.Expert) error {
	next := make([]domain.Expert, 0, len(experts))
	seen := make(map[string]struct{}, len(experts))
	for _, e := range experts {
		if err := validate(e); err != nil {
			return err
		}
		if _, dup := seen[e.ID]; dup {
			return &domain.DuplicateExpertError{ID: e.ID}
		}
		seen[e.ID] = struct{}{}
		next = append(next, e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.view.Store(newView(next))
	return nil
}

func validate(e domain.Expert) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: missing id", domain.ErrInvalidExpert)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: expert %q has no description", domain.ErrInvalidExpert, e.ID)
	}
	return nil
}
