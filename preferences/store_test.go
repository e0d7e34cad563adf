package preferences_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/jrsteele09/ailab-client/internal/utils"
	"github.com/jrsteele09/ailab-client/preferences"
	"github.com/jrsteele09/ailab-client/preferences/repofake"
	"github.com/stretchr/testify/require"
)

const waitFor = time.Second

func openStore(t *testing.T, repo preferences.Repo) *preferences.Store {
	t.Helper()
	store, err := preferences.Open(context.Background(), repo)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func receive(t *testing.T, ch <-chan *string) *string {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "watch channel closed unexpectedly")
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for watch value")
		return nil
	}
}

func fullSession() preferences.SessionState {
	return preferences.SessionState{
		Token:        utils.Ptr("abc123"),
		RefreshToken: utils.Ptr("refresh-1"),
		RememberMe:   true,
		UserID:       utils.Ptr("user-1"),
		Email:        utils.Ptr("ada@lab.example.com"),
		FirstName:    utils.Ptr("Ada"),
		LastName:     utils.Ptr("Lovelace"),
		Phone:        utils.Ptr(""),
	}
}

func TestOpenLoadsExistingValues(t *testing.T) {
	repo := repofake.NewFakePreferencesRepoWith(map[preferences.Key]string{
		preferences.KeyAuthToken: "abc123",
	})
	store := openStore(t, repo)

	require.Equal(t, "abc123", utils.Value(store.Peek(preferences.KeyAuthToken)))
	v, err := store.Get(context.Background(), preferences.KeyAuthToken)
	require.NoError(t, err)
	require.Equal(t, "abc123", *v)
}

func TestOpenFailsOnStorageError(t *testing.T) {
	repo := repofake.NewFakePreferencesRepo()
	repo.FailWith(errors.New("disk gone"))

	_, err := preferences.Open(context.Background(), repo)
	require.ErrorIs(t, err, apperrors.ErrStorage)
}

func TestAbsentDistinctFromEmpty(t *testing.T) {
	store := openStore(t, repofake.NewFakePreferencesRepo())
	ctx := context.Background()

	v, err := store.Get(ctx, preferences.KeyUserPhone)
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, store.Write(ctx, preferences.KeyUserPhone, ""))
	v, err = store.Get(ctx, preferences.KeyUserPhone)
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Equal(t, "", *v)
}

func TestWriteIsVisibleImmediately(t *testing.T) {
	repo := repofake.NewFakePreferencesRepo()
	store := openStore(t, repo)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, preferences.KeyAuthToken, "abc123"))

	require.Equal(t, "abc123", utils.Value(store.Peek(preferences.KeyAuthToken)))
	require.Equal(t, "abc123", repo.Values()[preferences.KeyAuthToken])

	ch, err := store.Watch(ctx, preferences.KeyAuthToken)
	require.NoError(t, err)
	require.Equal(t, "abc123", utils.Value(receive(t, ch)))
}

func TestFailedWriteLeavesStateUnchanged(t *testing.T) {
	repo := repofake.NewFakePreferencesRepo()
	store := openStore(t, repo)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, preferences.KeyAuthToken, "abc123"))
	repo.FailWith(errors.New("disk full"))

	err := store.Write(ctx, preferences.KeyAuthToken, "def456")
	require.ErrorIs(t, err, apperrors.ErrStorage)
	require.Equal(t, "abc123", utils.Value(store.Peek(preferences.KeyAuthToken)))

	err = store.Clear(ctx)
	require.ErrorIs(t, err, apperrors.ErrStorage)
	v, err := store.Get(ctx, preferences.KeyAuthToken)
	require.NoError(t, err)
	require.Equal(t, "abc123", *v)
}

func TestClearRemovesEveryKey(t *testing.T) {
	store := openStore(t, repofake.NewFakePreferencesRepo())
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, fullSession()))
	require.NoError(t, store.Clear(ctx))

	for _, key := range preferences.SessionKeys {
		v, err := store.Get(ctx, key)
		require.NoError(t, err)
		require.Nil(t, v, "key %s should be absent", key)
	}
	rememberMe, err := store.GetBool(ctx, preferences.KeyRememberMe)
	require.NoError(t, err)
	require.False(t, rememberMe)
}

func TestSaveSessionReplacesWholesale(t *testing.T) {
	store := openStore(t, repofake.NewFakePreferencesRepo())
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, fullSession()))

	second := preferences.SessionState{Token: utils.Ptr("xyz"), RememberMe: false}
	require.NoError(t, store.SaveSession(ctx, second))

	session, err := store.Session(ctx)
	require.NoError(t, err)
	require.Equal(t, "xyz", utils.Value(session.Token))
	require.Nil(t, session.RefreshToken)
	require.Nil(t, session.Email)
	require.False(t, session.RememberMe)
	require.True(t, session.HasToken())
}

func TestSessionRoundTrip(t *testing.T) {
	store := openStore(t, repofake.NewFakePreferencesRepo())
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, fullSession()))
	session, err := store.Session(ctx)
	require.NoError(t, err)
	require.Equal(t, fullSession(), session)
}

func TestWatchDeliversCurrentThenChanges(t *testing.T) {
	store := openStore(t, repofake.NewFakePreferencesRepo())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := store.Watch(ctx, preferences.KeyAuthToken)
	require.NoError(t, err)
	require.Nil(t, receive(t, ch))

	require.NoError(t, store.Write(ctx, preferences.KeyAuthToken, "abc123"))
	require.Equal(t, "abc123", utils.Value(receive(t, ch)))

	// Writing an unrelated key or the same value does not emit.
	require.NoError(t, store.Write(ctx, preferences.KeyUserEmail, "ada@lab.example.com"))
	require.NoError(t, store.Write(ctx, preferences.KeyAuthToken, "abc123"))
	select {
	case v := <-ch:
		t.Fatalf("unexpected emission %v", v)
	default:
	}

	require.NoError(t, store.Clear(ctx))
	require.Nil(t, receive(t, ch))
}

func TestWatchConflatesSlowConsumer(t *testing.T) {
	store := openStore(t, repofake.NewFakePreferencesRepo())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := store.Watch(ctx, preferences.KeyAuthToken)
	require.NoError(t, err)

	for _, token := range []string{"one", "two", "three"} {
		require.NoError(t, store.Write(ctx, preferences.KeyAuthToken, token))
	}
	require.Equal(t, "three", utils.Value(receive(t, ch)))
}

func TestWatchIsRestartable(t *testing.T) {
	store := openStore(t, repofake.NewFakePreferencesRepo())
	ctx := context.Background()

	first, cancelFirst := context.WithCancel(ctx)
	ch, err := store.Watch(first, preferences.KeyAuthToken)
	require.NoError(t, err)
	receive(t, ch)
	require.NoError(t, store.Write(ctx, preferences.KeyAuthToken, "abc123"))
	cancelFirst()

	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, waitFor, 10*time.Millisecond)

	second, cancelSecond := context.WithCancel(ctx)
	defer cancelSecond()
	ch, err = store.Watch(second, preferences.KeyAuthToken)
	require.NoError(t, err)
	require.Equal(t, "abc123", utils.Value(receive(t, ch)))
}

func TestCloseEndsWatchesAndRejectsCommands(t *testing.T) {
	store, err := preferences.Open(context.Background(), repofake.NewFakePreferencesRepo())
	require.NoError(t, err)

	ch, err := store.Watch(context.Background(), preferences.KeyAuthToken)
	require.NoError(t, err)
	receive(t, ch)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, ok := <-ch
	require.False(t, ok)

	err = store.Write(context.Background(), preferences.KeyAuthToken, "abc123")
	require.ErrorIs(t, err, apperrors.ErrStoreClosed)
	_, err = store.Watch(context.Background(), preferences.KeyAuthToken)
	require.ErrorIs(t, err, apperrors.ErrStoreClosed)
}

func TestConcurrentWritersInterleaveWholeCommands(t *testing.T) {
	store := openStore(t, repofake.NewFakePreferencesRepo())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.SaveSession(ctx, fullSession())
		}()
		go func() {
			defer wg.Done()
			_ = store.Clear(ctx)
		}()
	}
	wg.Wait()

	session, err := store.Session(ctx)
	require.NoError(t, err)
	if session.HasToken() {
		require.Equal(t, fullSession(), session)
	} else {
		require.Equal(t, preferences.SessionState{}, session)
	}
}
