package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Board string `json:"board" yaml:"board"`
	Body  string `json:"body" yaml:"body"`
}

func TestJSONFormatterKeepsMarkup(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, sample{Board: "b", Body: "<b>hi</b>"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "{\"board\":\"b\",\"body\":\"<b>hi</b>\"}\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestJSONFormatterIndent(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{Indent: true}).Write(&buf, sample{Board: "b"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"board\": \"b\"") {
		t.Fatalf("expected indented output, got %q", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAMLFormatter{}).Write(&buf, sample{Board: "b", Body: "x"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := buf.String(); got != "board: b\nbody: x\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}
