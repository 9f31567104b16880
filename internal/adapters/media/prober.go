package media

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/ports/secondary"
)

// sniffLen is how much of a file http.DetectContentType looks at.
const sniffLen = 512

// sniffed mime types that have a canonical name in the store.
var sniffAliases = map[string]string{
	"application/ogg": files.MimeOGG,
	"audio/wave":      "audio/wav",
}

var audioFileTypes = map[tag.FileType]string{
	tag.MP3:  files.MimeMP3,
	tag.FLAC: files.MimeFLAC,
	tag.OGG:  files.MimeOGG,
	tag.M4A:  files.MimeM4A,
	tag.M4B:  files.MimeM4A,
	tag.M4P:  files.MimeM4A,
	tag.ALAC: files.MimeM4A,
}

// Prober implements secondary.MediaProber. Video containers are identified
// but not decoded; their metadata comes back empty.
type Prober struct{}

// NewProber creates a new media prober.
func NewProber() *Prober {
	return &Prober{}
}

// DetectMime sniffs the first bytes of the file. Audio containers the
// sniffer does not know are identified from their tag headers.
func (p *Prober) DetectMime(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read file: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("file is empty")
	}

	sniffed, _, err := mime.ParseMediaType(http.DetectContentType(head[:n]))
	if err != nil {
		return files.MimeOctetStream, nil
	}
	if alias, ok := sniffAliases[sniffed]; ok {
		sniffed = alias
	}
	if sniffed != files.MimeOctetStream {
		return sniffed, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek file: %w", err)
	}
	if _, fileType, err := tag.Identify(f); err == nil {
		if audio, ok := audioFileTypes[fileType]; ok {
			return audio, nil
		}
	}
	return files.MimeOctetStream, nil
}

// Probe reads the properties the mime allows. Whatever was gathered before
// a failure is returned alongside the error.
func (p *Prober) Probe(ctx context.Context, path, mimeType string) (files.Metadata, error) {
	var meta files.Metadata
	if err := ctx.Err(); err != nil {
		return meta, err
	}

	f, err := os.Open(path)
	if err != nil {
		return meta, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	switch {
	case mimeType == files.MimeGIF:
		return probeGIF(f)
	case files.IsImage(mimeType):
		return probeImage(f)
	case files.Group(mimeType) == "audio":
		return probeAudio(f)
	case files.Group(mimeType) == "text":
		return probeText(f)
	}
	return meta, nil
}

func probeImage(r io.Reader) (files.Metadata, error) {
	var meta files.Metadata
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return meta, fmt.Errorf("decode image config: %w", err)
	}
	meta.Width = files.IntPtr(cfg.Width)
	meta.Height = files.IntPtr(cfg.Height)
	return meta, nil
}

// probeGIF adds frame count and duration (frame delays are in 1/100s).
func probeGIF(r io.ReadSeeker) (files.Metadata, error) {
	meta, err := probeImage(r)
	if err != nil {
		return meta, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return meta, fmt.Errorf("seek file: %w", err)
	}

	anim, err := gif.DecodeAll(r)
	if err != nil {
		return meta, fmt.Errorf("decode gif: %w", err)
	}
	meta.NumFrames = files.IntPtr(len(anim.Image))
	if len(anim.Image) > 1 {
		total := 0
		for _, delay := range anim.Delay {
			total += delay * 10
		}
		meta.Duration = files.IntPtr(total)
	}
	return meta, nil
}

// probeAudio counts the words of the track title.
func probeAudio(r io.ReadSeeker) (files.Metadata, error) {
	var meta files.Metadata
	m, err := tag.ReadFrom(r)
	if err != nil {
		return meta, fmt.Errorf("read audio tags: %w", err)
	}
	if title := strings.TrimSpace(m.Title()); title != "" {
		meta.NumWords = files.IntPtr(len(strings.Fields(title)))
	}
	return meta, nil
}

func probeText(r io.Reader) (files.Metadata, error) {
	var meta files.Metadata
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	words := 0
	for scanner.Scan() {
		words++
	}
	meta.NumWords = files.IntPtr(words)
	if err := scanner.Err(); err != nil {
		return meta, fmt.Errorf("scan text: %w", err)
	}
	return meta, nil
}

// Ensure Prober implements the interface
var _ secondary.MediaProber = (*Prober)(nil)
