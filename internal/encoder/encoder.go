// Package encoder turns captured 16-bit PCM into audio files. Encoders are
// selected by FileType from a closed table of variants; types without an
// implementation fail with ErrUnsupported instead of yielding a nil encoder.
package encoder

import (
	"io"
	"strings"

	"github.com/tphakala/audioengine/internal/errors"
	"github.com/tphakala/audioengine/internal/logger"
)

// FileType tags an encoder variant.
type FileType int

const (
	Default FileType = iota
	PCM
	WAV
	MP3
	AAC
	G7221
)

// Config describes the PCM stream fed to an encoder.
type Config struct {
	SampleRate int
	Channels   int
	Bitrate    int // bits per second, only used by compressed formats
}

// Encoder consumes interleaved 16-bit little-endian PCM. Close finalizes
// the output but does not close the underlying writer.
type Encoder interface {
	io.Writer
	Close() error
	Type() FileType
}

type variant struct {
	name string
	ext  string
	// nil for types that are recognized but not implemented
	create func(w io.WriteSeeker, cfg Config) (Encoder, error)
}

var variants = [...]variant{
	Default: {name: "default"},
	PCM:     {name: "pcm", ext: ".pcm", create: newPCMEncoder},
	WAV:     {name: "wav", ext: ".wav", create: newWAVEncoder},
	MP3:     {name: "mp3", ext: ".mp3"},
	AAC:     {name: "aac", ext: ".aac"},
	G7221:   {name: "g7221", ext: ".g7221"},
}

// ErrUnsupported is matched by every error for an unknown or unimplemented
// file type.
var ErrUnsupported = errors.New(errors.NewStd("encoder type unsupported")).
	Component("encoder").
	Category(errors.CategoryUnsupported).
	Build()

func (t FileType) valid() bool {
	return t >= 0 && int(t) < len(variants)
}

func (t FileType) String() string {
	if !t.valid() {
		return "unknown"
	}
	return variants[t].name
}

// Extension returns the file name extension for t, including the dot.
func (t FileType) Extension() string {
	if !t.valid() {
		return ""
	}
	return variants[t].ext
}

// Implemented reports whether Create can build an encoder for t.
func (t FileType) Implemented() bool {
	return t.valid() && variants[t].create != nil
}

// ParseFileType maps a name such as "wav" to its FileType.
func ParseFileType(name string) (FileType, error) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	for i, v := range variants {
		if v.name == name {
			return FileType(i), nil
		}
	}
	return Default, unsupported(Default, "unknown file type "+name)
}

// Types returns every known file type.
func Types() []FileType {
	out := make([]FileType, len(variants))
	for i := range variants {
		out[i] = FileType(i)
	}
	return out
}

// Create returns an encoder of type t writing to w.
func Create(t FileType, w io.WriteSeeker, cfg Config) (Encoder, error) {
	if !t.valid() {
		return nil, unsupported(t, "unknown file type")
	}
	v := variants[t]
	if v.create == nil {
		return nil, unsupported(t, "no encoder implemented for "+v.name)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, errors.Newf("encoder output is nil").
			Component("encoder").
			Category(errors.CategoryValidation).
			Build()
	}

	enc, err := v.create(w, cfg)
	if err != nil {
		return nil, err
	}
	GetLogger().Debug("encoder created",
		logger.String("type", v.name),
		logger.Int("sample_rate", cfg.SampleRate),
		logger.Int("channels", cfg.Channels))
	return enc, nil
}

func (c Config) validate() error {
	if c.SampleRate <= 0 || c.Channels <= 0 || c.Bitrate < 0 {
		return errors.Newf("invalid encoder config: %d Hz, %d channels, %d bps", c.SampleRate, c.Channels, c.Bitrate).
			Component("encoder").
			Category(errors.CategoryValidation).
			Context("sample_rate", c.SampleRate).
			Context("channels", c.Channels).
			Build()
	}
	return nil
}

func unsupported(t FileType, msg string) error {
	return errors.Newf("%s", msg).
		Component("encoder").
		Category(errors.CategoryUnsupported).
		Context("file_type", int(t)).
		Build()
}
