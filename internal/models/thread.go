package models

import (
	"fmt"
	"sort"
)

// AttachmentRef points a post at one stored blob.
type AttachmentRef struct {
	ContentID string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
}

// Post is one archived post. Once archived only Deleted ever changes.
type Post struct {
	ID        uint64          `json:"id" yaml:"id"`
	Timestamp uint64          `json:"timestamp" yaml:"timestamp"`
	Name      string          `json:"name" yaml:"name"`
	Email     string          `json:"email" yaml:"email"`
	Subject   string          `json:"subject" yaml:"subject"`
	Message   string          `json:"message" yaml:"message"`
	OP        bool            `json:"op" yaml:"op"`
	Files     []AttachmentRef `json:"files" yaml:"files"`
	Deleted   bool            `json:"deleted" yaml:"deleted"`
}

// Thread is the persisted snapshot of one thread.
type Thread struct {
	ID    uint64 `json:"id" yaml:"id"`
	Posts []Post `json:"posts" yaml:"posts"`
}

// NewThread returns an empty snapshot for a freshly discovered thread.
func NewThread(id uint64) *Thread {
	return &Thread{ID: id, Posts: []Post{}}
}

// PostIDs returns the ids of all posts in stored order.
func (t *Thread) PostIDs() []uint64 {
	if t == nil {
		return nil
	}
	ids := make([]uint64, 0, len(t.Posts))
	for _, post := range t.Posts {
		ids = append(ids, post.ID)
	}
	return ids
}

// ContentIDs returns every content id referenced by the thread, without duplicates.
func (t *Thread) ContentIDs() []string {
	if t == nil {
		return nil
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, post := range t.Posts {
		for _, file := range post.Files {
			if file.ContentID == "" {
				continue
			}
			if _, ok := seen[file.ContentID]; ok {
				continue
			}
			seen[file.ContentID] = struct{}{}
			out = append(out, file.ContentID)
		}
	}
	return out
}

// Validate checks that posts are strictly ascending by id.
func (t *Thread) Validate() error {
	if t == nil {
		return fmt.Errorf("thread is required")
	}
	for i := 1; i < len(t.Posts); i++ {
		prev, cur := t.Posts[i-1].ID, t.Posts[i].ID
		if cur == prev {
			return fmt.Errorf("thread %d: duplicate post id %d", t.ID, cur)
		}
		if cur < prev {
			return fmt.Errorf("thread %d: post %d stored after %d", t.ID, cur, prev)
		}
	}
	return nil
}

// SortPosts orders posts ascending by id.
func SortPosts(posts []Post) {
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
}
