package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("Report directory", dir)
	if !result.Passed {
		t.Fatalf("writable dir failed: %s", result.Detail)
	}

	result = CheckDirectoryAccess("Report directory", filepath.Join(dir, "absent"))
	if result.Passed {
		t.Fatal("missing dir must fail")
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if result := CheckDirectoryAccess("Report directory", file); result.Passed {
		t.Fatal("plain file must fail")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	orig := statfs
	defer func() { statfs = orig }()

	statfs = func(string) (uint64, uint64, error) { return 1 << 40, 1 << 39, nil }
	if result := CheckFreeSpace("disk", "/tmp"); !result.Passed {
		t.Fatalf("ample space failed: %s", result.Detail)
	}

	statfs = func(string) (uint64, uint64, error) { return 1 << 40, 1 << 20, nil }
	if result := CheckFreeSpace("disk", "/tmp"); result.Passed {
		t.Fatal("near-full disk must fail")
	}

	statfs = func(string) (uint64, uint64, error) { return 0, 0, errors.New("boom") }
	if result := CheckFreeSpace("disk", "/tmp"); result.Passed {
		t.Fatal("statfs error must fail")
	}
}

func TestFatalFailure(t *testing.T) {
	results := []Result{
		{Name: "ffprobe", Passed: false, Fatal: false},
		{Name: "ffmpeg", Passed: false, Fatal: true},
	}
	fatal := FatalFailure(results)
	if fatal == nil || fatal.Name != "ffmpeg" {
		t.Fatalf("fatal: %+v", fatal)
	}

	if FatalFailure([]Result{{Name: "ok", Passed: true, Fatal: true}}) != nil {
		t.Fatal("passed checks are never fatal")
	}
}

func TestCheckFFmpegMissingIsFatal(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	result := CheckFFmpeg("")
	if result.Passed || !result.Fatal {
		t.Fatalf("missing ffmpeg must be a fatal failure: %+v", result)
	}

	probe := CheckFFprobe("")
	if probe.Passed || probe.Fatal {
		t.Fatalf("missing ffprobe must be a non-fatal failure: %+v", probe)
	}
}
