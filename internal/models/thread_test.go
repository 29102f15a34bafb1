package models

import (
	"slices"
	"testing"
)

func TestThreadValidate(t *testing.T) {
	ok := &Thread{ID: 1, Posts: []Post{{ID: 1}, {ID: 2}, {ID: 7}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	dup := &Thread{ID: 1, Posts: []Post{{ID: 1}, {ID: 1}}}
	if err := dup.Validate(); err == nil {
		t.Fatal("expected duplicate id error")
	}

	unordered := &Thread{ID: 1, Posts: []Post{{ID: 3}, {ID: 2}}}
	if err := unordered.Validate(); err == nil {
		t.Fatal("expected ordering error")
	}
}

func TestThreadContentIDsDeduplicates(t *testing.T) {
	thread := &Thread{ID: 10, Posts: []Post{
		{ID: 10, Files: []AttachmentRef{{ContentID: "a.png"}, {ContentID: "b.jpg"}}},
		{ID: 11, Files: []AttachmentRef{{ContentID: "a.png"}, {ContentID: ""}}},
	}}
	got := thread.ContentIDs()
	if !slices.Equal(got, []string{"a.png", "b.jpg"}) {
		t.Fatalf("unexpected content ids: %v", got)
	}
}

func TestSortPosts(t *testing.T) {
	posts := []Post{{ID: 9}, {ID: 2}, {ID: 5}}
	SortPosts(posts)
	thread := &Thread{Posts: posts}
	if !slices.Equal(thread.PostIDs(), []uint64{2, 5, 9}) {
		t.Fatalf("unexpected order: %v", thread.PostIDs())
	}
}

func TestSyncResultChanged(t *testing.T) {
	if (SyncResult{}).Changed() {
		t.Fatal("empty result should not be changed")
	}
	if !(SyncResult{Discovered: true}).Changed() {
		t.Fatal("discovered result should be changed")
	}
	if !(SyncResult{RemovedFlagged: 1}).Changed() {
		t.Fatal("flagged result should be changed")
	}
}
