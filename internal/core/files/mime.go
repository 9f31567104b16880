package files

import "strings"

// Common mime types the store knows how to name on disk.
const (
	MimeJPEG        = "image/jpeg"
	MimePNG         = "image/png"
	MimeGIF         = "image/gif"
	MimeBMP         = "image/bmp"
	MimeWEBP        = "image/webp"
	MimeTIFF        = "image/tiff"
	MimeMP4         = "video/mp4"
	MimeWEBM        = "video/webm"
	MimeMKV         = "video/x-matroska"
	MimeMP3         = "audio/mpeg"
	MimeFLAC        = "audio/flac"
	MimeOGG         = "audio/ogg"
	MimeM4A         = "audio/mp4"
	MimePDF         = "application/pdf"
	MimeText        = "text/plain"
	MimeOctetStream = "application/octet-stream"
)

var extensions = map[string]string{
	MimeJPEG:        ".jpg",
	MimePNG:         ".png",
	MimeGIF:         ".gif",
	MimeBMP:         ".bmp",
	MimeWEBP:        ".webp",
	MimeTIFF:        ".tiff",
	MimeMP4:         ".mp4",
	MimeWEBM:        ".webm",
	MimeMKV:         ".mkv",
	MimeMP3:         ".mp3",
	MimeFLAC:        ".flac",
	MimeOGG:         ".ogg",
	MimeM4A:         ".m4a",
	MimePDF:         ".pdf",
	MimeText:        ".txt",
	MimeOctetStream: "",
}

// Extension returns the on-disk extension for a mime type, or "" when unknown.
func Extension(mime string) string {
	return extensions[mime]
}

// Group returns the general class of a mime type ("image", "video", "audio", "application", "text").
func Group(mime string) string {
	group, _, _ := strings.Cut(mime, "/")
	return group
}

// IsImage reports whether the mime is a still or animated image.
func IsImage(mime string) bool {
	return Group(mime) == "image"
}

// MatchesMime reports whether mime satisfies pattern, where pattern is either an exact
// mime type or a group wildcard such as "image/*".
func MatchesMime(pattern, mime string) bool {
	if group, ok := strings.CutSuffix(pattern, "/*"); ok {
		return Group(mime) == group
	}
	return pattern == mime
}
