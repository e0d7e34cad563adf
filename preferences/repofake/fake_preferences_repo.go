package repofake

import (
	"context"
	"maps"
	"sync"

	"github.com/jrsteele09/ailab-client/preferences"
)

var _ preferences.Repo = (*FakePreferencesRepo)(nil)

// FakePreferencesRepo is an in-memory preferences.Repo. Failures can be
// injected with FailWith to exercise storage error paths.
type FakePreferencesRepo struct {
	values map[preferences.Key]string
	err    error
	writes int
	lock   sync.RWMutex
}

func NewFakePreferencesRepo() *FakePreferencesRepo {
	return &FakePreferencesRepo{
		values: make(map[preferences.Key]string),
	}
}

// NewFakePreferencesRepoWith seeds the repo with values.
func NewFakePreferencesRepoWith(values map[preferences.Key]string) *FakePreferencesRepo {
	r := NewFakePreferencesRepo()
	maps.Copy(r.values, values)
	return r
}

// FailWith makes every later call return err. Pass nil to recover.
func (r *FakePreferencesRepo) FailWith(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.err = err
}

// Writes returns the number of successful mutating calls.
func (r *FakePreferencesRepo) Writes() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.writes
}

// Values returns a copy of the stored values.
func (r *FakePreferencesRepo) Values() map[preferences.Key]string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return maps.Clone(r.values)
}

func (r *FakePreferencesRepo) Load(_ context.Context) (map[preferences.Key]string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	return maps.Clone(r.values), nil
}

func (r *FakePreferencesRepo) Put(_ context.Context, values map[preferences.Key]string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.err != nil {
		return r.err
	}
	maps.Copy(r.values, values)
	r.writes++
	return nil
}

func (r *FakePreferencesRepo) Delete(_ context.Context, keys ...preferences.Key) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, k := range keys {
		delete(r.values, k)
	}
	r.writes++
	return nil
}

func (r *FakePreferencesRepo) Replace(_ context.Context, values map[preferences.Key]string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.err != nil {
		return r.err
	}
	r.values = maps.Clone(values)
	if r.values == nil {
		r.values = make(map[preferences.Key]string)
	}
	r.writes++
	return nil
}
