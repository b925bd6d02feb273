package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "maxvolts_session", "test-secret", time.Hour, false), mr
}

func TestLoadWithoutCookieCreatesSession(t *testing.T) {
	sm, _ := newTestManager(t)
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	sess, err := sm.Load(context.Background(), r)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.False(t, sess.Actor().Valid())
}

func TestCommitAndReload(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, r)
	require.NoError(t, err)

	sess.SetActor(Actor{ID: 42, Email: "sparks@maxvolts.co.uk"})
	w := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, w, sess))

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(cookies[0])
	reloaded, err := sm.Load(ctx, r2)
	require.NoError(t, err)
	assert.Equal(t, int64(42), reloaded.Actor().ID)
	assert.Equal(t, "sparks@maxvolts.co.uk", reloaded.Actor().Email)
}

func TestTamperedCookieGetsFreshSession(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, r)
	require.NoError(t, err)
	sess.SetActor(Actor{ID: 42, Email: "sparks@maxvolts.co.uk"})

	w := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, w, sess))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	forged := *cookies[0]
	forged.Value = sess.ID + ".bogus-signature"
	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(&forged)

	reloaded, err := sm.Load(ctx, r2)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, reloaded.ID)
	assert.False(t, reloaded.Actor().Valid())
}

func TestDestroyRemovesSession(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, r)
	require.NoError(t, err)
	sess.SetActor(Actor{ID: 1, Email: "admin@maxvolts.co.uk"})

	w := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, w, sess))
	require.True(t, mr.Exists("maxvolts:session:"+sess.ID))

	sm.Destroy(sess)
	w2 := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, w2, sess))
	assert.False(t, mr.Exists("maxvolts:session:"+sess.ID))
}

func TestActorFromContext(t *testing.T) {
	assert.False(t, ActorFromContext(context.Background()).Valid())

	sess := &Session{ID: "abc"}
	sess.SetActor(Actor{ID: 9, Email: "office@maxvolts.co.uk"})
	ctx := ContextWithSession(context.Background(), sess)
	assert.Equal(t, int64(9), ActorFromContext(ctx).ID)
}
