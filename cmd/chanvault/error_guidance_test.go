package main

import (
	"fmt"
	"net"
	"testing"

	"chanvault/internal/archiver"
	"chanvault/internal/remote"
	"chanvault/internal/threadstore"
)

func TestFormatCLIError_NetworkGuidance(t *testing.T) {
	err := &net.DNSError{Err: "dial tcp: connection refused", Name: "2ch.hk", IsTemporary: true}
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: the remote could not be reached; check network access and remote.base_url.") {
		t.Fatalf("expected connectivity guidance, got %v", lines)
	}
}

func TestFormatCLIError_RemoteNotFound(t *testing.T) {
	err := fmt.Errorf("sync: %w", &remote.StatusError{Status: 404, URL: "https://2ch.hk/b/res/1.json"})
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: the board or thread does not exist remotely (it may have been removed).") {
		t.Fatalf("expected not-found guidance, got %v", lines)
	}
}

func TestFormatCLIError_Throttled(t *testing.T) {
	lines := formatCLIError(&remote.StatusError{Status: 429, URL: "https://2ch.hk/b/catalog.json"})
	if !containsLine(lines, "hint: the remote is throttling or blocking requests; lower sync.concurrency or raise --interval.") {
		t.Fatalf("expected throttling guidance, got %v", lines)
	}
}

func TestFormatCLIError_ProtocolViolation(t *testing.T) {
	err := fmt.Errorf("%w: post 2: unknown op marker 7", archiver.ErrProtocolViolation)
	lines := formatCLIError(err)
	if !containsLine(lines, "hint: verify remote.base_url (CHANVAULT_BASE_URL) points to a compatible imageboard API.") {
		t.Fatalf("expected base url guidance, got %v", lines)
	}
}

func TestFormatCLIError_NothingArchived(t *testing.T) {
	err := fmt.Errorf("thread /b/1: %w", threadstore.ErrNotFound)
	lines := formatCLIError(err)
	if len(lines) != 2 || lines[0] != err.Error() {
		t.Fatalf("expected error line plus one hint, got %v", lines)
	}
}

func TestFormatCLIError_Nil(t *testing.T) {
	if lines := formatCLIError(nil); lines != nil {
		t.Fatalf("expected nil, got %v", lines)
	}
}

func containsLine(lines []string, expected string) bool {
	for _, line := range lines {
		if line == expected {
			return true
		}
	}
	return false
}
