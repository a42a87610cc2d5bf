package analysiscache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const hashChunkSize = 64 * 1024

// Fingerprint identifies one version of a file's content. A cache hit
// requires all three components to match; mtime alone is too easy to
// preserve across edits and size alone collides constantly.
type Fingerprint struct {
	MtimeUnixSecs uint64 `json:"mtime_unix_secs"`
	FileSizeBytes uint64 `json:"file_size_bytes"`
	ContentSha256 string `json:"content_sha256"`
}

// FingerprintFile stats and hashes path. Failure here means the file
// itself is unreadable, which is fatal for that file only.
func FingerprintFile(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("stat %s: %w", path, err)
	}

	var mtime uint64
	if unix := info.ModTime().Unix(); unix > 0 {
		mtime = uint64(unix)
	}

	sum, err := hashFile(path)
	if err != nil {
		return Fingerprint{}, err
	}

	return Fingerprint{
		MtimeUnixSecs: mtime,
		FileSizeBytes: uint64(info.Size()),
		ContentSha256: sum,
	}, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s for hashing: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
