// Package feed keeps a screen's list of posts live-synced with the remote
// store for the lifetime of the screen.
package feed

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/readers"
	"github.com/Jameboyyy/Prayerwall/internal/session"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// Scope selects which posts a watcher follows: the global feed, or a single
// author's posts when AuthorID is set.
type Scope struct {
	AuthorID string
}

// Item is one fully-resolved feed row: the post plus its author's display
// name, the viewer's like state and the derived comment count.
type Item struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	AuthorID     string          `json:"author_id"`
	AuthorName   string          `json:"author_name"`
	CreatedAt    time.Time       `json:"created_at"`
	LikeCount    int             `json:"likes_count"`
	ViewerLiked  bool            `json:"viewer_liked"`
	Subpost      *models.Subpost `json:"subpost,omitempty"`
	CommentCount int             `json:"comment_count"`
}

// Watcher owns zero or one store listener for its current scope. Every
// change event rebuilds the whole item list; Close (and every re-scope)
// releases the active listener before anything else happens, so no callback
// is ever delivered twice or after teardown.
type Watcher struct {
	store    store.Store
	users    *readers.UserReader
	session  session.Provider
	onUpdate func([]Item)

	mu             sync.Mutex
	scope          Scope
	gen            int
	release        func()
	sessionRelease func()
	items          []Item
	loading        bool
	closed         bool
}

// NewWatcher creates a watcher. onUpdate may be nil; when set it fires after
// every item-list replacement with the new list.
func NewWatcher(s store.Store, users *readers.UserReader, sess session.Provider, onUpdate func([]Item)) *Watcher {
	return &Watcher{
		store:    s,
		users:    users,
		session:  sess,
		onUpdate: onUpdate,
		loading:  true,
	}
}

func feedQuery(scope Scope) store.Query {
	q := store.NewQuery(models.PostsCollection).OrderedBy("createdAt", true)
	if scope.AuthorID != "" {
		q = q.Where("userId", scope.AuthorID)
	}
	return q
}

// Open starts watching the given scope. Without a signed-in identity no
// listener is opened and the watcher stays in the loading state until the
// session provider reports one.
func (w *Watcher) Open(ctx context.Context, scope Scope) {
	w.mu.Lock()
	w.scope = scope
	if w.sessionRelease == nil {
		w.sessionRelease = w.session.OnChange(func(*session.Identity) {
			w.open(ctx)
		})
	}
	w.mu.Unlock()
	w.open(ctx)
}

// SetScope re-scopes the watcher, releasing the previous listener before the
// new one is opened.
func (w *Watcher) SetScope(ctx context.Context, scope Scope) {
	w.mu.Lock()
	w.scope = scope
	w.mu.Unlock()
	w.open(ctx)
}

func (w *Watcher) open(ctx context.Context) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	previous := w.release
	w.release = nil
	w.gen++
	gen := w.gen
	scope := w.scope
	w.loading = true
	w.mu.Unlock()

	if previous != nil {
		previous()
	}

	if w.session.Current() == nil {
		return
	}

	release, err := w.store.Subscribe(ctx, feedQuery(scope),
		func(docs []store.Document) { w.handleEvent(ctx, gen, docs) },
		func(err error) { log.Printf("feed listener error: %v", err) },
	)
	if err != nil {
		log.Printf("open feed listener: %v", err)
		return
	}

	w.mu.Lock()
	if w.closed || gen != w.gen {
		w.mu.Unlock()
		release()
		return
	}
	w.release = release
	w.mu.Unlock()
}

func (w *Watcher) handleEvent(ctx context.Context, gen int, docs []store.Document) {
	viewer := ""
	if id := w.session.Current(); id != nil {
		viewer = id.ID
	}
	items := BuildItems(ctx, w.store, w.users, viewer, docs)

	w.mu.Lock()
	if w.closed || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.items = items
	w.loading = false
	cb := w.onUpdate
	w.mu.Unlock()

	if cb != nil {
		cb(items)
	}
}

// Close releases the listener and the session registration. Idempotent;
// events that race with Close never replace the item list.
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	release := w.release
	sessionRelease := w.sessionRelease
	w.release = nil
	w.sessionRelease = nil
	w.mu.Unlock()

	if release != nil {
		release()
	}
	if sessionRelease != nil {
		sessionRelease()
	}
}

// Items returns the current view model list.
func (w *Watcher) Items() []Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Item, len(w.items))
	copy(out, w.items)
	return out
}

// Loading reports whether the watcher has yet to deliver a first snapshot.
func (w *Watcher) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

// BuildItems resolves raw post documents into feed items, preserving the
// order the store returned. Author names resolve through the user reader
// (with its fallbacks) and each post's comment count is derived by a fresh
// sub-collection query; a failed count query logs and renders zero.
func BuildItems(ctx context.Context, s store.Store, users *readers.UserReader, viewerID string, docs []store.Document) []Item {
	items := make([]Item, 0, len(docs))
	for _, doc := range docs {
		post := models.PostFromDocument(doc)
		commentCount := 0
		comments, err := s.RunQuery(ctx, store.NewQuery(models.CommentsCollection(post.ID)))
		if err != nil {
			log.Printf("count comments for post %s: %v", post.ID, err)
		} else {
			commentCount = len(comments)
		}
		items = append(items, Item{
			ID:           post.ID,
			Title:        post.Title,
			Content:      post.Content,
			AuthorID:     post.AuthorID,
			AuthorName:   users.Username(ctx, post.AuthorID),
			CreatedAt:    post.CreatedAt,
			LikeCount:    post.LikeCount(),
			ViewerLiked:  post.LikedBy(viewerID),
			Subpost:      post.Subpost,
			CommentCount: commentCount,
		})
	}
	return items
}
