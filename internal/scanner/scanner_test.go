package scanner

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("touch: %v", err)
	}
}

func TestScanFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.flac"))
	touch(t, filepath.Join(dir, "sub", "b.MP3"))
	touch(t, filepath.Join(dir, "sub", "notes.txt"))
	touch(t, filepath.Join(dir, "cover.jpg"))

	files, err := Scan(dir, nil, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.flac"),
		filepath.Join(dir, "sub", "b.MP3"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("got %v want %v", files, want)
	}
}

func TestScanSingleFileRoot(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "song.wav")
	touch(t, target)

	files, err := Scan(target, nil, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(files) != 1 || files[0] != target {
		t.Fatalf("got %v", files)
	}

	other := filepath.Join(dir, "readme.md")
	touch(t, other)
	if _, err := Scan(other, nil, nil); err == nil {
		t.Fatal("unsupported single file must error")
	}
}

func TestScanMissingRoot(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "absent"), nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestScanCustomExtensions(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.flac"))
	touch(t, filepath.Join(dir, "b.mp3"))

	files, err := Scan(dir, []string{".flac"}, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "a.flac" {
		t.Fatalf("got %v", files)
	}
}
