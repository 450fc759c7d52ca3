package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompareValues(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"times", early, late, -1},
		{"equal times", early, early, 0},
		{"time vs rfc3339 string", early, late.Format(time.RFC3339Nano), -1},
		{"rfc3339 string vs time", late.Format(time.RFC3339Nano), early, 1},
		{"ints", 1, 2, -1},
		{"int vs float", 3, 2.5, 1},
		{"int32 vs int64", int32(7), int64(7), 0},
		{"strings", "alice", "bob", -1},
		{"nil sorts first", nil, "x", -1},
		{"both nil", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareValues(tt.a, tt.b))
		})
	}
}

func TestMatches(t *testing.T) {
	doc := Document{ID: "1", Data: map[string]any{"userId": "alice", "n": 3}}

	assert.True(t, matches(doc, NewQuery("posts")))
	assert.True(t, matches(doc, NewQuery("posts").Where("userId", "alice")))
	assert.True(t, matches(doc, NewQuery("posts").Where("userId", "alice").Where("n", 3)))
	assert.False(t, matches(doc, NewQuery("posts").Where("userId", "bob")))
	assert.False(t, matches(doc, NewQuery("posts").Where("missing", "x")))
}

func TestSortDocsMissingFieldSortsFirst(t *testing.T) {
	docs := []Document{
		{ID: "a", Data: map[string]any{"createdAt": time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}},
		{ID: "b", Data: map[string]any{}},
		{ID: "c", Data: map[string]any{"createdAt": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}},
	}
	sorted := sortDocs(docs, NewQuery("posts").OrderedBy("createdAt", false))
	assert.Equal(t, []string{"b", "c", "a"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})
}
