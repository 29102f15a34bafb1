package main

import (
	"context"
	"errors"
	"net"

	"chanvault/internal/archiver"
	"chanvault/internal/blobstore"
	"chanvault/internal/remote"
	"chanvault/internal/threadstore"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Status == 404:
			lines = append(lines, "hint: the board or thread does not exist remotely (it may have been removed).")
		case statusErr.Status == 403 || statusErr.Status == 429:
			lines = append(lines, "hint: the remote is throttling or blocking requests; lower sync.concurrency or raise --interval.")
		case statusErr.Status >= 500:
			lines = append(lines, "hint: the remote returned a server error; retry later.")
		}
	}

	if errors.Is(err, remote.ErrMalformedPayload) || errors.Is(err, archiver.ErrProtocolViolation) {
		lines = append(lines, "hint: verify remote.base_url (CHANVAULT_BASE_URL) points to a compatible imageboard API.")
	}

	if errors.Is(err, threadstore.ErrNotFound) {
		lines = append(lines, "hint: nothing archived yet; run: chanvault dump --board <board>")
	}
	if errors.Is(err, blobstore.ErrNotFound) {
		lines = append(lines, "hint: list content ids with: chanvault show --board <board> --thread <thread>")
	}
	if errors.Is(err, archiver.ErrStoreWrite) {
		lines = append(lines, "hint: check free space and permissions under data_dir.")
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; increase remote.timeout or CHANVAULT_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: the remote could not be reached; check network access and remote.base_url.",
			"hint: you can increase CHANVAULT_HTTP_TIMEOUT for slow connections.",
		)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
