// Package extract pulls study text out of uploaded files.
package extract

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

const DefaultMaxBytes = 5 << 20

var (
	ErrUnsupportedType = errors.New("extract: unsupported file type")
	ErrTooLarge        = errors.New("extract: file too large")
	ErrEmpty           = errors.New("extract: file has no text")
)

type Extractor interface {
	Extract(ctx context.Context, filename string, r io.Reader) (string, error)
}

// PlainText accepts any upload whose content sniffs as text (plain text,
// Markdown, CSV, JSON and the like). Binary formats such as PDF are rejected
// with ErrUnsupportedType.
type PlainText struct {
	MaxBytes int64
}

func (p PlainText) Extract(ctx context.Context, filename string, r io.Reader) (string, error) {
	limit := p.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.Wrapf(err, "extract: read %s", filename)
	}
	if int64(len(data)) > limit {
		return "", ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if !isText(mimetype.Detect(data)) || !utf8.Valid(data) {
		return "", ErrUnsupportedType
	}

	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
