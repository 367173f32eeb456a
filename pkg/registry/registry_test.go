package registry_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(experts []domain.Expert) []string {
	out := make([]string, len(experts))
	for i, e := range experts {
		out[i] = e.ID
	}
	return out
}

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New(
		domain.Expert{ID: "a", Description: "loves cats"},
		domain.Expert{ID: "b", Description: "loves dogs"},
		domain.Expert{ID: "c", Description: "loves birds"},
	)
	require.NoError(t, err)
	return r
}

func TestRegistry_Register(t *testing.T) {
	r := newRegistry(t)

	require.NoError(t, r.Register(domain.Expert{ID: "d", Description: "loves fish"}))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(r.List()))

	err := r.Register(domain.Expert{ID: "b", Description: "other"})
	var dup *domain.DuplicateExpertError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "b", dup.ID)
	got, _ := r.Get("b")
	assert.Equal(t, "loves dogs", got.Description, "registry must be unchanged")

	assert.ErrorIs(t, r.Register(domain.Expert{ID: "e"}), domain.ErrInvalidExpert)
	assert.ErrorIs(t, r.Register(domain.Expert{Description: "nameless"}), domain.ErrInvalidExpert)
	assert.Equal(t, 4, r.Len())
}

func TestRegistry_UpdateKeepsPosition(t *testing.T) {
	r := newRegistry(t)

	require.NoError(t, r.Update(domain.Expert{ID: "b", Description: "loves wolves", Name: "Wolf Fan", Avatar: "🐺"}))
	assert.Equal(t, []string{"a", "b", "c"}, ids(r.List()))
	got, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, "loves wolves", got.Description)
	assert.Equal(t, "Wolf Fan", got.Name)

	err := r.Update(domain.Expert{ID: "zzz", Description: "x"})
	assert.ErrorIs(t, err, domain.ErrUnknownExpert)
}

func TestRegistry_Remove(t *testing.T) {
	r := newRegistry(t)

	require.NoError(t, r.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, ids(r.List()))

	assert.ErrorIs(t, r.Remove("b"), domain.ErrUnknownExpert)

	require.NoError(t, r.Remove("a"))
	require.NoError(t, r.Remove("c"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := newRegistry(t)
	view := r.Snapshot()

	require.NoError(t, r.Remove("a"))
	require.NoError(t, r.Update(domain.Expert{ID: "b", Description: "changed"}))
	require.NoError(t, r.Register(domain.Expert{ID: "z", Description: "new"}))

	assert.Equal(t, []string{"a", "b", "c"}, ids(view.List()))
	got, _ := view.Get("b")
	assert.Equal(t, "loves dogs", got.Description)

	// All is restartable.
	for range 2 {
		var seen []string
		for _, e := range view.All() {
			seen = append(seen, e.ID)
		}
		assert.Equal(t, []string{"a", "b", "c"}, seen)
	}
}

func TestRegistry_ListReturnsCopy(t *testing.T) {
	r := newRegistry(t)
	list := r.List()
	list[0].Description = "mutated"

	got, _ := r.Get("a")
	assert.Equal(t, "loves cats", got.Description)
}

func TestRegistry_ConcurrentRegisterKeepsIDsUnique(t *testing.T) {
	r, err := registry.New()
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Every id is attempted twice.
			id := fmt.Sprintf("expert-%d", i%25)
			if r.Register(domain.Expert{ID: id, Description: "d"}) == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, succeeded)
	assert.Equal(t, 25, r.Len())
}

func TestRegistry_NewRejectsDuplicates(t *testing.T) {
	_, err := registry.New(
		domain.Expert{ID: "a", Description: "x"},
		domain.Expert{ID: "a", Description: "y"},
	)
	assert.ErrorIs(t, err, domain.ErrDuplicateExpert)
}

func TestNewDefault(t *testing.T) {
	r := registry.NewDefault()
	assert.Equal(t, len(domain.DefaultExperts()), r.Len())
	assert.Equal(t, "graph_specialist", r.List()[0].ID)
}
