// Package interactions applies single-field and single-relation changes
// against the remote store, using a transaction wherever the change depends
// on the field's current value.
package interactions

import (
	"errors"

	"github.com/Jameboyyy/Prayerwall/internal/store"
)

// Sentinel errors surfaced to the HTTP layer.
var (
	ErrNotAuthor     = errors.New("only the post author may do this")
	ErrSubpostExists = errors.New("post already has a subpost")
)

// Mutators groups the write operations the screens dispatch.
type Mutators struct {
	store store.Store
}

// NewMutators creates the mutator set over the given store.
func NewMutators(s store.Store) *Mutators {
	return &Mutators{store: s}
}
