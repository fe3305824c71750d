package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 1024
	DefaultMaxBytes     = 2 << 20
)

type Upload struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

type Result struct {
	Bytes       []byte
	ContentType string
	Width       int
	Height      int
}

type Processor interface {
	Process(ctx context.Context, upload Upload, maxDimension int) (*Result, error)
}

// AvatarProcessor validates avatar images before they are cached in object
// storage. Provider avatars are already small, so images are passed through
// unmodified; anything oversized or undecodable is rejected.
type AvatarProcessor struct {
	maxDimension int
	maxBytes     int64
}

func NewAvatarProcessor(maxDimension int, maxBytes int64) *AvatarProcessor {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &AvatarProcessor{maxDimension: maxDimension, maxBytes: maxBytes}
}

func (p *AvatarProcessor) Process(ctx context.Context, upload Upload, maxDimension int) (*Result, error) {
	if upload.Reader == nil {
		return nil, fmt.Errorf("media: empty reader")
	}
	data, err := io.ReadAll(io.LimitReader(upload.Reader, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("media: read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("media: empty image data")
	}
	if int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("media: image exceeds %d bytes", p.maxBytes)
	}

	width, height, err := decodeDimensions(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("media: decode dimensions: %w", err)
	}
	targetMax := maxDimension
	if targetMax <= 0 {
		targetMax = p.maxDimension
	}
	if width > targetMax || height > targetMax {
		return nil, fmt.Errorf("media: image %dx%d exceeds max dimension %d", width, height, targetMax)
	}

	return &Result{
		Bytes:       data,
		ContentType: normalizeContentType(upload.ContentType, upload.FileName),
		Width:       width,
		Height:      height,
	}, nil
}

func decodeDimensions(r io.Reader) (int, int, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

func normalizeContentType(contentType, fileName string) string {
	trimmed := strings.ToLower(strings.TrimSpace(contentType))
	if trimmed != "" && trimmed != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(trimmed); err == nil {
			return mt
		}
	}
	if ext := filepath.Ext(fileName); ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return mt
		}
	}
	return "image/jpeg"
}
