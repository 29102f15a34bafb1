package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// File is an attachment descriptor embedded in a post.
type File struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// Post is one post as served by the thread endpoint.
type Post struct {
	Num       uint64 `json:"num"`
	Timestamp uint64 `json:"timestamp"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Comment   string `json:"comment"`
	// OP is a 0/1 marker; other values are rejected by the archiver.
	OP    int    `json:"op"`
	Files []File `json:"files"`
}

// Thread is the current state of one remote thread.
type Thread struct {
	Posts []Post
}

type catalogPayload struct {
	Threads []struct {
		Num uint64 `json:"num"`
	} `json:"threads"`
}

type threadPayload struct {
	Threads threadList `json:"threads"`
}

type threadEntry struct {
	Posts []Post `json:"posts"`
}

// threadList accepts both the array form and the {"0": {...}} object form.
type threadList []threadEntry

func (l *threadList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var entries []threadEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		*l = entries
		return nil
	}

	var keyed map[string]threadEntry
	if err := json.Unmarshal(data, &keyed); err != nil {
		return err
	}
	keys := make([]int, 0, len(keyed))
	for key := range keyed {
		n, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("unexpected threads key %q", key)
		}
		keys = append(keys, n)
	}
	sort.Ints(keys)
	entries := make([]threadEntry, 0, len(keys))
	for _, n := range keys {
		entries = append(entries, keyed[strconv.Itoa(n)])
	}
	*l = entries
	return nil
}
