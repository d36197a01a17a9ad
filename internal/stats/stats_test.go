package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/signalsfoundry/murmurhf/internal/errs"
)

func TestValidateRejectsMissingHeaderTokens(t *testing.T) {
	data := []byte("username,characters learned,time per character,features unlocked\nalice,K M,3 15,vocab\n")
	err := Validate(data)
	if errs.KindOf(err) != errs.ValidationError {
		t.Fatalf("got %v, want ValidationError for missing emailadress token", err)
	}
}

func TestValidateRejectsMismatchedTokenCounts(t *testing.T) {
	data := []byte("username,characters learned,time per character,features unlocked,emailadress\nalice,K M,3,vocab,a@b.c\n")
	err := Validate(data)
	if errs.KindOf(err) != errs.ValidationError {
		t.Fatalf("got %v, want ValidationError for mismatched token counts", err)
	}
}

func TestValidateAcceptsWellFormedFile(t *testing.T) {
	data := []byte("username,characters learned,time per character,features unlocked,emailadress\nalice,K M,3 15,vocab,a@b.c\n")
	if err := Validate(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIngestWritesUnderUserDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "user-stats"))
	if err != nil {
		t.Fatal(err)
	}

	data := []byte("username,characters learned,time per character,features unlocked,emailadress\nalice,K M,3 15,vocab,a@b.c\n")
	if err := s.Ingest("alice", "session1.csv", data); err != nil {
		t.Fatal(err)
	}

	if !s.HasStats("alice") {
		t.Error("expected HasStats true after ingest")
	}

	files, err := s.Files("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != "session1.csv" {
		t.Fatalf("got %v, want [session1.csv]", files)
	}

	if _, err := os.Stat(filepath.Join(dir, "user-stats", "alice", "session1.csv")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}

func TestIngestRejectsPathSeparatorsInFileName(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "user-stats"))
	if err != nil {
		t.Fatal(err)
	}

	err = s.Ingest("alice", "../escape.csv", []byte("username,characters learned,time per character,features unlocked,emailadress\n"))
	if errs.KindOf(err) != errs.ValidationError {
		t.Fatalf("got %v, want ValidationError for path-separator file name", err)
	}
}

func TestIngestRejectsInvalidContent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "user-stats"))
	if err != nil {
		t.Fatal(err)
	}

	err = s.Ingest("alice", "bad.csv", []byte("not a valid header\n"))
	if errs.KindOf(err) != errs.ValidationError {
		t.Fatalf("got %v, want ValidationError", err)
	}

	if s.HasStats("alice") {
		t.Error("invalid ingest must not create user directory content")
	}
}

func TestFilesOnUnknownUserReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "user-stats"))
	if err != nil {
		t.Fatal(err)
	}

	files, err := s.Files("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Fatalf("got %v, want empty", files)
	}
}
