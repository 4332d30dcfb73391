package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	Store
	asked []string
}

func (r *recordingStore) Load(ctx context.Context, id string) (Session, error) {
	r.asked = append(r.asked, id)
	return r.Store.Load(ctx, id)
}

func TestCandidateIDs(t *testing.T) {
	assert.Equal(t, []string{
		"offline_foo.myshopify.com",
		"offline_foo",
		"foo.myshopify.com",
	}, CandidateIDs("FOO"))
	assert.Nil(t, CandidateIDs(""))
}

func TestFindOffline_CanonicalWinsOverLegacy(t *testing.T) {
	store := &recordingStore{Store: NewMemoryStore(
		Session{ID: "offline_foo", Shop: "foo.myshopify.com", AccessToken: "legacy"},
		Session{ID: "offline_foo.myshopify.com", Shop: "foo.myshopify.com", AccessToken: "canonical"},
	)}

	s, err := FindOffline(context.Background(), store, "foo.myshopify.com", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "canonical", s.AccessToken)
	assert.Equal(t, []string{"offline_foo.myshopify.com"}, store.asked)
}

func TestFindOffline_FallsBackToLegacyIDs(t *testing.T) {
	store := &recordingStore{Store: NewMemoryStore(
		Session{ID: "foo.myshopify.com", AccessToken: "oldest"},
	)}

	s, err := FindOffline(context.Background(), store, "foo", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "oldest", s.AccessToken)
	assert.Equal(t, "foo.myshopify.com", s.Shop)
	assert.Len(t, store.asked, 3)
}

func TestFindOffline_SkipsExpiredAndForeignSessions(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	store := NewMemoryStore(
		Session{ID: "offline_foo.myshopify.com", Shop: "foo.myshopify.com", AccessToken: "expired", Expires: &past},
		Session{ID: "offline_foo", Shop: "bar.myshopify.com", AccessToken: "other-shop"},
	)

	_, err := FindOffline(context.Background(), store, "foo", time.Now())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFindOffline_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := FindOffline(context.Background(), failingStore{boom}, "foo", time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, ErrNotFound))
}

type failingStore struct{ err error }

func (f failingStore) Load(context.Context, string) (Session, error) { return Session{}, f.err }

func TestDecodeSession(t *testing.T) {
	obj, err := decodeSession([]byte(`{"id":"offline_foo.myshopify.com","shop":"foo.myshopify.com","accessToken":"shpat_1","scope":"write_draft_orders"}`))
	require.NoError(t, err)
	assert.Equal(t, "shpat_1", obj.AccessToken)
	assert.Equal(t, "write_draft_orders", obj.Scope)
	assert.Nil(t, obj.Expires)

	arr, err := decodeSession([]byte(`[["id","offline_foo.myshopify.com"],["shop","foo.myshopify.com"],["isOnline",false],["accessToken","shpat_2"],["expires",1893456000]]`))
	require.NoError(t, err)
	assert.Equal(t, "offline_foo.myshopify.com", arr.ID)
	assert.Equal(t, "shpat_2", arr.AccessToken)
	require.NotNil(t, arr.Expires)
	assert.Equal(t, int64(1893456000), arr.Expires.Unix())

	_, err = decodeSession([]byte(`not json`))
	assert.Error(t, err)
}

func TestMemoryStoreFromJSON(t *testing.T) {
	store := NewMemoryStoreFromJSON(`[{"id":"offline_foo.myshopify.com","shop":"foo.myshopify.com","accessToken":"shpat_1"},{"shop":"missing-id"}]`, nil)

	s, err := store.Load(context.Background(), "offline_foo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "shpat_1", s.AccessToken)

	_, err = store.Load(context.Background(), "offline_bar.myshopify.com")
	assert.True(t, errors.Is(err, ErrNotFound))
}
