package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
)

func tempUploads(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestSaveAndRead(t *testing.T) {
	s := tempUploads(t)
	content := []byte("fake audio bytes")
	info, err := s.Save("meeting.webm", content)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(info.Filename, "-meeting.webm") {
		t.Errorf("stored name = %q, want millis prefix + original name", info.Filename)
	}
	if info.MIME != "audio/webm" {
		t.Errorf("mime = %q, want audio/webm", info.MIME)
	}
	if info.Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", info.Size, len(content))
	}
	if info.Checksum == "" {
		t.Error("expected a checksum")
	}

	got, err := s.Read(info.Filename)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestSaveSanitizesFilename(t *testing.T) {
	s := tempUploads(t)
	info, err := s.Save("../../etc/passwd my recording.mp3", []byte("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if strings.Contains(info.Filename, "/") || strings.Contains(info.Filename, "..") {
		t.Errorf("stored name carries path components: %q", info.Filename)
	}
	if strings.Contains(info.Filename, " ") {
		t.Errorf("stored name carries spaces: %q", info.Filename)
	}
}

func TestSaveRejectsNonAudio(t *testing.T) {
	s := tempUploads(t)
	if _, err := s.Save("malware.exe", []byte("x")); !errors.Is(err, apperr.ErrUnsupportedMedia) {
		t.Fatalf("err = %v, want ErrUnsupportedMedia", err)
	}
}

func TestReadRejectsTraversal(t *testing.T) {
	s := tempUploads(t)
	for _, name := range []string{"../secret.mp3", "/etc/passwd", "a/b.mp3", ".."} {
		if _, err := s.Read(name); err == nil {
			t.Errorf("Read(%q) succeeded, want error", name)
		}
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	s := tempUploads(t)
	if _, err := s.Save("first.wav", []byte("a")); err != nil {
		t.Fatal(err)
	}
	// Non-audio and dot files in the directory are invisible.
	if err := os.WriteFile(filepath.Join(s.Root(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Root(), ".ansuz-tmp-123"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := s.Save("second.wav", []byte("b"))
	if err != nil {
		t.Fatal(err)
	}

	infos, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 audio files, got %d", len(infos))
	}
	if infos[0].Filename != second.Filename {
		t.Errorf("first listed = %q, want newest %q", infos[0].Filename, second.Filename)
	}
}

func TestDeleteUpload(t *testing.T) {
	s := tempUploads(t)
	info, err := s.Save("gone.ogg", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(info.Filename); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read(info.Filename); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(info.Filename); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestWatchReportsUploads(t *testing.T) {
	s := tempUploads(t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	events := make(chan string, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, s.Root(), logger, func(kind, filename string) {
			events <- kind + ":" + filename
		})
	}()
	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	info, err := s.Save("live.webm", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev != "created:"+info.Filename {
			t.Errorf("event = %q, want created:%s", ev, info.Filename)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for created event")
	}

	if err := s.Delete(info.Filename); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-events:
		if ev != "deleted:"+info.Filename {
			t.Errorf("event = %q, want deleted:%s", ev, info.Filename)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deleted event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
