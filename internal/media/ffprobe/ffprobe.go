// Package ffprobe wraps metadata probe invocations and maps the returned
// JSON document onto the fields the analyzer cares about.
package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"audioqc/internal/extproc"
	"audioqc/internal/metrics"
)

// Stream mirrors the probe's per-stream JSON object. Numeric values arrive
// as strings in the document, except the channel count.
type Stream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitRate    string `json:"bit_rate"`
}

// Format mirrors the probe's container-level JSON object.
type Format struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

// Result is the parsed probe document.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Metadata carries the probe fields merged into a metrics record.
type Metadata struct {
	SampleRateHz    *uint32
	BitrateKbps     *uint32
	Channels        *uint32
	CodecName       *string
	ContainerFormat *string
	DurationSeconds *float64
}

// Client runs probe invocations through the shared process limiter.
type Client struct {
	Binary  string
	Timeout time.Duration
	Limiter *extproc.Limiter
}

// Probe inspects path and returns its stream and container metadata.
// Stream-level bitrate wins over container-level when both are present.
func (c *Client) Probe(ctx context.Context, path string) (Metadata, error) {
	if c.Limiter != nil {
		release := c.Limiter.Acquire()
		defer release()
	}

	result, err := extproc.Run(ctx, extproc.Command{
		Binary: c.Binary,
		Args: []string{
			"-v", "error",
			"-hide_banner",
			"-show_format",
			"-show_streams",
			"-of", "json",
			"--", path,
		},
		Timeout: c.Timeout,
	})
	if err != nil {
		return Metadata{}, fmt.Errorf("probe %s: %w", path, err)
	}

	var doc Result
	if err := json.Unmarshal([]byte(result.Stdout), &doc); err != nil {
		return Metadata{}, fmt.Errorf("parse probe output for %s: %w", path, err)
	}
	return doc.Metadata(), nil
}

// Metadata extracts the analyzer's fields from a parsed document.
func (r Result) Metadata() Metadata {
	var meta Metadata

	if len(r.Streams) > 0 {
		stream := r.Streams[0]
		if stream.CodecName != "" {
			meta.CodecName = metrics.String(stream.CodecName)
		}
		if hz, ok := parseUint(stream.SampleRate); ok {
			meta.SampleRateHz = metrics.Uint32(hz)
		}
		if stream.Channels > 0 {
			meta.Channels = metrics.Uint32(uint32(stream.Channels))
		}
		if bps, ok := parseUint(stream.BitRate); ok && bps > 0 {
			meta.BitrateKbps = metrics.Uint32(bps / 1000)
		}
	}

	if r.Format.FormatName != "" {
		meta.ContainerFormat = metrics.String(r.Format.FormatName)
	}
	if secs, ok := parseFloat(r.Format.Duration); ok {
		meta.DurationSeconds = metrics.Float64(secs)
	}
	if meta.BitrateKbps == nil {
		if bps, ok := parseUint(r.Format.BitRate); ok && bps > 0 {
			meta.BitrateKbps = metrics.Uint32(bps / 1000)
		}
	}
	return meta
}

func parseUint(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
