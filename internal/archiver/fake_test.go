package archiver

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"chanvault/internal/remote"
)

var errRemote = errors.New("remote unavailable")

type fakeFetcher struct {
	mu         sync.Mutex
	catalog    map[string][]uint64
	threads    map[string]*remote.Thread
	threadErrs map[string]error
	files      map[string][]byte
	fetches    int
	fileCalls  int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		catalog:    map[string][]uint64{},
		threads:    map[string]*remote.Thread{},
		threadErrs: map[string]error{},
		files:      map[string][]byte{},
	}
}

func threadKey(board string, id uint64) string {
	return board + "/" + strconv.FormatUint(id, 10)
}

func (f *fakeFetcher) setThread(board string, id uint64, posts ...remote.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[threadKey(board, id)] = &remote.Thread{Posts: posts}
}

func (f *fakeFetcher) failThread(board string, id uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadErrs[threadKey(board, id)] = err
}

func (f *fakeFetcher) ListThreadIDs(_ context.Context, board string) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, ok := f.catalog[board]
	if !ok {
		return nil, &remote.StatusError{Status: 404, URL: "/" + board + "/catalog.json"}
	}
	return append([]uint64(nil), ids...), nil
}

func (f *fakeFetcher) FetchThread(ctx context.Context, board string, id uint64) (*remote.Thread, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	key := threadKey(board, id)
	if err := f.threadErrs[key]; err != nil {
		return nil, err
	}
	thread, ok := f.threads[key]
	if !ok {
		return nil, &remote.StatusError{Status: 404, URL: "/" + board + "/res/" + strconv.FormatUint(id, 10) + ".json"}
	}
	posts := append([]remote.Post(nil), thread.Posts...)
	return &remote.Thread{Posts: posts}, nil
}

func (f *fakeFetcher) FetchBytes(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileCalls++
	data, ok := f.files[path]
	if !ok {
		return nil, errRemote
	}
	return data, nil
}

func post(num uint64, op int, files ...remote.File) remote.Post {
	return remote.Post{
		Num:       num,
		Timestamp: 1_700_000_000 + num,
		Name:      "Anon",
		Comment:   "post " + strconv.FormatUint(num, 10),
		OP:        op,
		Files:     files,
	}
}
