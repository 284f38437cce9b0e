package local

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	content := "%PDF-1.4 sample policy body"

	key, size, mimeType, err := store.Save(context.Background(), "agent-1", "policy.pdf", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len(content)) {
		t.Fatalf("expected size %d, got %d", len(content), size)
	}
	if mimeType == "" {
		t.Fatalf("expected detected mime type")
	}

	rc, err := store.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != content {
		t.Fatalf("expected %q, got %q", content, string(got))
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../escape.txt"); err == nil {
		t.Fatalf("expected error for traversal key")
	}
	if _, err := store.Open(context.Background(), "/abs/escape.txt"); err == nil {
		t.Fatalf("expected error for absolute key")
	}
}

func TestSaveWithKeyWritesDerivedArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := New(dir).(*Store)

	n, err := store.SaveWithKey(context.Background(), "agent/raw_text.txt", "text/plain; charset=utf-8", strings.NewReader("extracted text"))
	if err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if n != int64(len("extracted text")) {
		t.Fatalf("expected %d bytes, got %d", len("extracted text"), n)
	}

	rc, err := store.Open(context.Background(), "agent/raw_text.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "extracted text" {
		t.Fatalf("unexpected content %q", string(got))
	}
}
