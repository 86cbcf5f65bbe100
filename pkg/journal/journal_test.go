package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func openTestJournal(t *testing.T, path string) *Journal {
	t.Helper()
	j, err := Open(path, WithDisabledSync())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	return j
}

func TestAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "transcript.log")
	j := openTestJournal(t, path)

	for i := 0; i < 5; i++ {
		idx, err := j.Append(Record{Type: "message", Data: []byte(fmt.Sprintf("entry-%d", i))})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if idx != int64(i) {
			t.Fatalf("index = %d, want %d", idx, i)
		}
	}
	if got := j.Len(); got != 5 {
		t.Fatalf("Len = %d, want 5", got)
	}

	var replayed []string
	err := j.Replay(func(rec Record) error {
		replayed = append(replayed, string(rec.Data))
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	for i, data := range replayed {
		want := fmt.Sprintf("entry-%d", i)
		if data != want {
			t.Fatalf("replayed[%d] = %q, want %q", i, data, want)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestReopenContinuesIndexes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.log")
	j := openTestJournal(t, path)
	if _, err := j.Append(Record{Type: "message", Data: []byte("one")}); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	j2 := openTestJournal(t, path)
	defer j2.Close()
	idx, err := j2.Append(Record{Type: "message", Data: []byte("two")})
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Fatalf("index after reopen = %d, want 1", idx)
	}
	if got := j2.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
}

func TestRecoverTruncatesPartialTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.log")
	j := openTestJournal(t, path)
	for i := 0; i < 3; i++ {
		if _, err := j.Append(Record{Type: "message", Data: []byte(fmt.Sprintf("entry-%d", i))}); err != nil {
			t.Fatal(err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash mid-append by chopping bytes off the last record.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, info.Size()-3); err != nil {
		t.Fatal(err)
	}

	j2 := openTestJournal(t, path)
	defer j2.Close()
	if got := j2.Len(); got != 2 {
		t.Fatalf("Len after recovery = %d, want 2", got)
	}

	var replayed int
	if err := j2.Replay(func(Record) error { replayed++; return nil }); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed != 2 {
		t.Fatalf("replayed %d records, want 2", replayed)
	}

	// Appends continue cleanly from the truncated boundary.
	idx, err := j2.Append(Record{Type: "message", Data: []byte("fresh")})
	if err != nil {
		t.Fatal(err)
	}
	if idx != 2 {
		t.Fatalf("index = %d, want 2", idx)
	}
}

func TestAppendValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.log")
	j := openTestJournal(t, path)
	defer j.Close()

	if _, err := j.Append(Record{Data: []byte("typeless")}); err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestClosedJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.log")
	j := openTestJournal(t, path)
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := j.Append(Record{Type: "message"}); err != ErrClosed {
		t.Fatalf("append after close = %v, want ErrClosed", err)
	}
	if err := j.Sync(); err != ErrClosed {
		t.Fatalf("sync after close = %v, want ErrClosed", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("double close = %v", err)
	}
}
