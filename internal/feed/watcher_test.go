package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/readers"
	"github.com/Jameboyyy/Prayerwall/internal/session"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

func seedPost(t *testing.T, s store.Store, author, title string, createdAt time.Time) string {
	t.Helper()
	id, err := s.Add(context.Background(), models.PostsCollection, map[string]any{
		"userId":    author,
		"title":     title,
		"content":   "content of " + title,
		"createdAt": createdAt,
		"likes":     []string{},
	})
	require.NoError(t, err)
	return id
}

func TestWatcherInitialSnapshot(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	users := readers.NewUserReader(s)
	require.NoError(t, s.Update(ctx, models.UsersCollection, "u1", map[string]any{"username": "grace"}))

	base := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	seedPost(t, s, "u1", "older", base)
	seedPost(t, s, "u1", "newer", base.Add(time.Hour))

	w := NewWatcher(s, users, session.NewStatic(&session.Identity{ID: "viewer"}), nil)
	defer w.Close()
	assert.True(t, w.Loading())

	w.Open(ctx, Scope{})

	assert.False(t, w.Loading())
	items := w.Items()
	require.Len(t, items, 2)
	// Newest first.
	assert.Equal(t, "newer", items[0].Title)
	assert.Equal(t, "older", items[1].Title)
	assert.Equal(t, "grace", items[0].AuthorName)
}

func TestWatcherLiveUpdate(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	users := readers.NewUserReader(s)

	var updates int
	w := NewWatcher(s, users, session.NewStatic(&session.Identity{ID: "viewer"}), func([]Item) {
		updates++
	})
	defer w.Close()
	w.Open(ctx, Scope{})
	require.Equal(t, 1, updates)

	seedPost(t, s, "u1", "breaking", time.Now().UTC())

	assert.Equal(t, 2, updates)
	items := w.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "breaking", items[0].Title)
}

func TestWatcherScopeFiltersByAuthor(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	users := readers.NewUserReader(s)

	base := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	seedPost(t, s, "alice", "from alice", base)
	seedPost(t, s, "bob", "from bob", base.Add(time.Minute))

	w := NewWatcher(s, users, session.NewStatic(&session.Identity{ID: "viewer"}), nil)
	defer w.Close()
	w.Open(ctx, Scope{AuthorID: "alice"})

	items := w.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "from alice", items[0].Title)

	// Re-scoping replaces the listener and the item list wholesale.
	w.SetScope(ctx, Scope{AuthorID: "bob"})
	items = w.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "from bob", items[0].Title)

	// Only the new scope's listener is live: an alice post must not leak in.
	seedPost(t, s, "alice", "late from alice", base.Add(time.Hour))
	items = w.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "from bob", items[0].Title)
}

func TestWatcherCloseStopsDelivery(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	users := readers.NewUserReader(s)

	seedPost(t, s, "u1", "first", time.Now().UTC())

	w := NewWatcher(s, users, session.NewStatic(&session.Identity{ID: "viewer"}), nil)
	w.Open(ctx, Scope{})
	require.Len(t, w.Items(), 1)

	w.Close()
	w.Close() // idempotent

	seedPost(t, s, "u1", "after close", time.Now().UTC())
	assert.Len(t, w.Items(), 1)
}

func TestWatcherWaitsForIdentity(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	users := readers.NewUserReader(s)
	sess := session.NewStatic(nil)

	seedPost(t, s, "u1", "waiting", time.Now().UTC())

	w := NewWatcher(s, users, sess, nil)
	defer w.Close()
	w.Open(ctx, Scope{})

	// No identity yet: no listener, still loading.
	assert.True(t, w.Loading())
	assert.Empty(t, w.Items())

	sess.SignIn(session.Identity{ID: "viewer"})

	assert.False(t, w.Loading())
	items := w.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "waiting", items[0].Title)
}

func TestBuildItemsResolvesViewerAndComments(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	users := readers.NewUserReader(s)
	require.NoError(t, s.Update(ctx, models.UsersCollection, "u1", map[string]any{"username": "grace"}))

	postID := seedPost(t, s, "u1", "liked one", time.Now().UTC())
	require.NoError(t, s.Update(ctx, models.PostsCollection, postID, map[string]any{
		"likes": []string{"viewer", "other"},
	}))
	_, err := s.Add(ctx, models.CommentsCollection(postID), map[string]any{
		"userId": "other", "text": "amen", "createdAt": time.Now().UTC(),
	})
	require.NoError(t, err)

	docs, err := s.RunQuery(ctx, store.NewQuery(models.PostsCollection))
	require.NoError(t, err)
	items := BuildItems(ctx, s, users, "viewer", docs)

	require.Len(t, items, 1)
	assert.Equal(t, "grace", items[0].AuthorName)
	assert.Equal(t, 2, items[0].LikeCount)
	assert.True(t, items[0].ViewerLiked)
	assert.Equal(t, 1, items[0].CommentCount)
}
