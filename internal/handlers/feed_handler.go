package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Jameboyyy/Prayerwall/internal/feed"
	"github.com/Jameboyyy/Prayerwall/internal/models"
	"github.com/Jameboyyy/Prayerwall/internal/readers"
	"github.com/Jameboyyy/Prayerwall/internal/session"
	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// FeedHandler serves the post feed, both as one-shot snapshots and as a
// live-updating stream.
type FeedHandler struct {
	store store.Store
	users *readers.UserReader
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(s store.Store, users *readers.UserReader) *FeedHandler {
	return &FeedHandler{store: s, users: users}
}

// RegisterFeedRoutes registers feed routes.
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/feed/stream", h.StreamFeed)
}

// GetFeed returns the current feed snapshot, newest first. An author query
// parameter narrows the feed to one user's posts.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	q := store.NewQuery(models.PostsCollection).OrderedBy("createdAt", true)
	if author := c.QueryParam("author"); author != "" {
		q = q.Where("userId", author)
	}
	docs, err := h.store.RunQuery(ctx, q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, feed.BuildItems(ctx, h.store, h.users, identity.ID, docs))
}

// StreamFeed pushes feed snapshots over server-sent events for as long as the
// client stays connected. The first event is the current snapshot; every
// store change after that pushes a fresh one. When snapshots arrive faster
// than the client drains them, intermediate ones are dropped; the latest
// always goes out.
func (h *FeedHandler) StreamFeed(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	scope := feed.Scope{AuthorID: c.QueryParam("author")}

	updates := make(chan []feed.Item, 1)
	watcher := feed.NewWatcher(h.store, h.users, session.NewStatic(identity), func(items []feed.Item) {
		for {
			select {
			case updates <- items:
				return
			default:
				// Stale snapshot still queued; replace it.
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	defer watcher.Close()

	ctx := c.Request().Context()
	watcher.Open(ctx, scope)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case items := <-updates:
			payload, err := json.Marshal(items)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(res, "event: feed\ndata: %s\n\n", payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
