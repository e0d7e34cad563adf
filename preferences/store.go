package preferences

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"sync/atomic"

	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/jrsteele09/ailab-client/internal/utils"
	"github.com/rs/zerolog/log"
)

// Store owns the persisted preferences. Every read and mutation is funnelled
// through a single goroutine, so commands are applied one at a time and a
// reader never observes a partially applied write or clear.
type Store struct {
	repo     Repo
	commands chan command
	closing  chan struct{}
	done     chan struct{}
	once     sync.Once
	nextID   atomic.Uint64

	// snapshot is replaced, never mutated, by the owner goroutine before a
	// write is acknowledged.
	snapshot atomic.Pointer[map[Key]string]

	// owned by run
	values   map[Key]string
	watchers map[uint64]*watcher
}

type command struct {
	apply func() error
	reply chan error
}

type watcher struct {
	key  Key
	last *string
	ch   chan *string
}

// Open loads the current values from repo and starts the owner goroutine.
func Open(ctx context.Context, repo Repo) (*Store, error) {
	values, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", apperrors.ErrStorage, err)
	}
	if values == nil {
		values = make(map[Key]string)
	}

	s := &Store{
		repo:     repo,
		commands: make(chan command),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		values:   values,
		watchers: make(map[uint64]*watcher),
	}
	snap := maps.Clone(values)
	s.snapshot.Store(&snap)

	go s.run()
	return s, nil
}

// Close stops the owner goroutine and closes every open watch channel.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.closing) })
	<-s.done
	return nil
}

// Write durably stores a single key.
func (s *Store) Write(ctx context.Context, key Key, value string) error {
	return s.WriteAll(ctx, map[Key]string{key: value})
}

// WriteBool stores a boolean flag such as KeyRememberMe.
func (s *Store) WriteBool(ctx context.Context, key Key, value bool) error {
	return s.Write(ctx, key, strconv.FormatBool(value))
}

// WriteAll durably stores several keys as one command.
func (s *Store) WriteAll(ctx context.Context, values map[Key]string) error {
	values = maps.Clone(values)
	return s.exec(ctx, func() error {
		if err := s.repo.Put(ctx, values); err != nil {
			return fmt.Errorf("%w: put: %w", apperrors.ErrStorage, err)
		}
		next := maps.Clone(s.values)
		maps.Copy(next, values)
		s.publish(next)
		return nil
	})
}

// Remove deletes the given keys.
func (s *Store) Remove(ctx context.Context, keys ...Key) error {
	return s.exec(ctx, func() error {
		if err := s.repo.Delete(ctx, keys...); err != nil {
			return fmt.Errorf("%w: delete: %w", apperrors.ErrStorage, err)
		}
		next := maps.Clone(s.values)
		for _, k := range keys {
			delete(next, k)
		}
		s.publish(next)
		return nil
	})
}

// SaveSession replaces the whole persisted state with session.
func (s *Store) SaveSession(ctx context.Context, session SessionState) error {
	return s.replace(ctx, session.Values())
}

// Clear removes every key.
func (s *Store) Clear(ctx context.Context) error {
	return s.replace(ctx, map[Key]string{})
}

// Get returns the value of key, or nil when absent. The read is ordered after
// every previously acknowledged write.
func (s *Store) Get(ctx context.Context, key Key) (*string, error) {
	var v *string
	err := s.exec(ctx, func() error {
		v = lookup(s.values, key)
		return nil
	})
	return v, err
}

// GetBool reads a boolean flag. Absent or malformed values read as false.
func (s *Store) GetBool(ctx context.Context, key Key) (bool, error) {
	v, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return parseBool(v), nil
}

// Session returns the persisted session.
func (s *Store) Session(ctx context.Context) (SessionState, error) {
	var session SessionState
	err := s.exec(ctx, func() error {
		session = SessionFromValues(s.values)
		return nil
	})
	return session, err
}

// Peek returns the last published value of key without waiting on the owner
// goroutine. It is safe to call from request hot paths.
func (s *Store) Peek(key Key) *string {
	return lookup(*s.snapshot.Load(), key)
}

// Watch streams the value of key: the current value first, then one value per
// change. A consumer that falls behind only sees the latest value. The
// channel is closed when ctx is done or the store is closed.
func (s *Store) Watch(ctx context.Context, key Key) (<-chan *string, error) {
	id := s.nextID.Add(1)
	w := &watcher{key: key, ch: make(chan *string, 1)}

	err := s.exec(ctx, func() error {
		w.last = lookup(s.values, key)
		w.ch <- w.last
		s.watchers[id] = w
		return nil
	})
	if err != nil && apperrors.Is(err, apperrors.ErrStoreClosed) {
		return nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = s.exec(context.Background(), func() error {
				s.removeWatcher(id)
				return nil
			})
		case <-s.done:
		}
	}()

	if err != nil {
		return nil, err
	}
	return w.ch, nil
}

func (s *Store) replace(ctx context.Context, values map[Key]string) error {
	values = maps.Clone(values)
	return s.exec(ctx, func() error {
		if err := s.repo.Replace(ctx, values); err != nil {
			return fmt.Errorf("%w: replace: %w", apperrors.ErrStorage, err)
		}
		s.publish(values)
		return nil
	})
}

func (s *Store) exec(ctx context.Context, apply func() error) error {
	cmd := command{apply: apply, reply: make(chan error, 1)}

	select {
	case s.commands <- cmd:
	case <-s.closing:
		return apperrors.ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case cmd := <-s.commands:
			cmd.reply <- cmd.apply()
		case <-s.closing:
			for id := range s.watchers {
				s.removeWatcher(id)
			}
			return
		}
	}
}

// publish installs next as the current state and notifies watchers whose
// key changed. Called only from run.
func (s *Store) publish(next map[Key]string) {
	s.values = next
	snap := maps.Clone(next)
	s.snapshot.Store(&snap)

	for _, w := range s.watchers {
		v := lookup(next, w.key)
		if utils.PtrEqual(w.last, v) {
			continue
		}
		w.last = v
		w.offer(v)
	}
	log.Debug().Int("keys", len(next)).Msg("preferences updated")
}

func (s *Store) removeWatcher(id uint64) {
	if w, ok := s.watchers[id]; ok {
		close(w.ch)
		delete(s.watchers, id)
	}
}

// offer replaces any undelivered value with v. Only the owner goroutine sends,
// so the second send cannot block.
func (w *watcher) offer(v *string) {
	select {
	case w.ch <- v:
		return
	default:
	}
	select {
	case <-w.ch:
	default:
	}
	w.ch <- v
}
