package ffprobe

import (
	"encoding/json"
	"testing"
)

const sampleDoc = `{
  "streams": [
    {
      "codec_name": "flac",
      "codec_type": "audio",
      "sample_rate": "44100",
      "channels": 2,
      "bit_rate": "912345"
    }
  ],
  "format": {
    "format_name": "flac",
    "duration": "213.4",
    "bit_rate": "920000"
  }
}`

func TestMetadataPrefersStreamBitrate(t *testing.T) {
	var doc Result
	if err := json.Unmarshal([]byte(sampleDoc), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	meta := doc.Metadata()

	if meta.BitrateKbps == nil || *meta.BitrateKbps != 912 {
		t.Fatalf("expected stream bitrate 912 kbps, got %v", meta.BitrateKbps)
	}
	if meta.SampleRateHz == nil || *meta.SampleRateHz != 44100 {
		t.Fatalf("sample rate: %v", meta.SampleRateHz)
	}
	if meta.Channels == nil || *meta.Channels != 2 {
		t.Fatalf("channels: %v", meta.Channels)
	}
	if meta.CodecName == nil || *meta.CodecName != "flac" {
		t.Fatalf("codec: %v", meta.CodecName)
	}
	if meta.ContainerFormat == nil || *meta.ContainerFormat != "flac" {
		t.Fatalf("container: %v", meta.ContainerFormat)
	}
	if meta.DurationSeconds == nil || *meta.DurationSeconds != 213.4 {
		t.Fatalf("duration: %v", meta.DurationSeconds)
	}
}

func TestMetadataFallsBackToContainerBitrate(t *testing.T) {
	doc := Result{
		Streams: []Stream{{CodecName: "mp3", SampleRate: "44100", Channels: 2}},
		Format:  Format{FormatName: "mp3", BitRate: "128000"},
	}
	meta := doc.Metadata()
	if meta.BitrateKbps == nil || *meta.BitrateKbps != 128 {
		t.Fatalf("expected container bitrate 128 kbps, got %v", meta.BitrateKbps)
	}
}

func TestMetadataToleratesMissingFields(t *testing.T) {
	meta := (Result{}).Metadata()
	if meta.SampleRateHz != nil || meta.BitrateKbps != nil || meta.Channels != nil ||
		meta.CodecName != nil || meta.ContainerFormat != nil || meta.DurationSeconds != nil {
		t.Fatalf("empty document produced fields: %+v", meta)
	}
}

func TestMetadataRejectsGarbageNumbers(t *testing.T) {
	doc := Result{
		Streams: []Stream{{SampleRate: "fast", BitRate: "n/a"}},
		Format:  Format{Duration: "nan"},
	}
	meta := doc.Metadata()
	if meta.SampleRateHz != nil {
		t.Fatalf("garbage sample rate accepted: %v", meta.SampleRateHz)
	}
	if meta.BitrateKbps != nil {
		t.Fatalf("garbage bitrate accepted: %v", meta.BitrateKbps)
	}
	if meta.DurationSeconds != nil {
		t.Fatalf("nan duration accepted: %v", meta.DurationSeconds)
	}
}
