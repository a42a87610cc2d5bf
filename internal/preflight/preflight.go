// Package preflight validates run preconditions before any analysis work
// starts: the external binaries, the report directory, and free disk space.
package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"audioqc/internal/config"
	"audioqc/internal/deps"
)

// minFreeSpaceBytes is the floor below which report writing is refused.
const minFreeSpaceBytes = 64 << 20 // 64 MiB

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Fatal  bool
	Detail string
}

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

var statfs statfsFunc = realStatfs

// RunAll executes every preflight check for the given config. Only a
// missing ffmpeg is fatal; everything else degrades with a visible
// warning.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckFFmpeg(cfg.Analysis.FFmpegBinary))
	results = append(results, CheckFFprobe(cfg.Analysis.FFprobeBinary))
	results = append(results, CheckDirectoryAccess("Report directory", cfg.Paths.ReportDir))
	results = append(results, CheckFreeSpace("Report disk space", cfg.Paths.ReportDir))
	return results
}

// FatalFailure returns the first fatal failed check, if any.
func FatalFailure(results []Result) *Result {
	for i := range results {
		if !results[i].Passed && results[i].Fatal {
			return &results[i]
		}
	}
	return nil
}

// CheckFFmpeg verifies the analysis binary resolves. Without it no
// measurement can run, so failure aborts the run.
func CheckFFmpeg(configured string) Result {
	const name = "ffmpeg"
	path, err := deps.ResolveFFmpeg(configured)
	if err != nil {
		return Result{Name: name, Fatal: true, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckFFprobe verifies the probe binary resolves. Probe metadata is
// optional; a miss means bitrate/codec fields stay absent.
func CheckFFprobe(configured string) Result {
	const name = "ffprobe"
	path, err := deps.ResolveFFprobe(configured)
	if err != nil {
		return Result{Name: name, Detail: err.Error() + " (metadata fields will be absent)"}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has room for the
// report documents and the cache.
func CheckFreeSpace(name, path string) Result {
	_, free, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	if free < minFreeSpaceBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (only %d MiB free)", path, free>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MiB free)", path, free>>20)}
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
