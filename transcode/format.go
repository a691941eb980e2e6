package transcode

import "bytes"

// Format identifies an audio container
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
)

// DetectFormat sniffs the container from its leading bytes
func DetectFormat(header []byte) Format {
	switch {
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(header, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(header, []byte("ID3")):
		return FormatMP3
	case isMPEGFrameSync(header):
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// isMPEGFrameSync matches an 11-bit frame sync with a non-reserved layer,
// which keeps ADTS AAC (layer 00) out
func isMPEGFrameSync(header []byte) bool {
	if len(header) < 2 {
		return false
	}
	return header[0] == 0xFF && header[1]&0xE0 == 0xE0 && (header[1]>>1)&0x03 != 0
}
