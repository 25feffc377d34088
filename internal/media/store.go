// Package media stores uploaded audio and cover files on local disk and
// maps between the public references kept on tracks and file paths.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrTooLarge    = errors.New("file too large")
	ErrInvalidRef  = errors.New("invalid media reference")
)

// Kind selects the upload folder and its limits.
type Kind string

const (
	Audio Kind = "audio"
	Cover Kind = "covers"
)

const (
	MaxAudioBytes = 50 << 20
	MaxCoverBytes = 5 << 20
)

var allowedExt = map[Kind]map[string]bool{
	Audio: {".mp3": true, ".wav": true, ".ogg": true, ".flac": true, ".m4a": true},
	Cover: {".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true},
}

// Allowed reports whether filename has an extension accepted for k.
func (k Kind) Allowed(filename string) bool {
	return allowedExt[k][strings.ToLower(filepath.Ext(filename))]
}

func (k Kind) MaxBytes() int64 {
	if k == Cover {
		return MaxCoverBytes
	}
	return MaxAudioBytes
}

// RefPrefix is the URL prefix under which files of kind k are served.
func (k Kind) RefPrefix() string {
	return "/uploads/" + string(k) + "/"
}

// FileStore keeps files under <root>/audio and <root>/covers.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	for _, k := range []Kind{Audio, Cover} {
		if err := os.MkdirAll(filepath.Join(root, string(k)), 0o755); err != nil {
			return nil, fmt.Errorf("media: mkdir %s: %w", k, err)
		}
	}
	return &FileStore{root: root}, nil
}

// Dir is the folder holding files of kind k.
func (s *FileStore) Dir(k Kind) string {
	return filepath.Join(s.root, string(k))
}

// Save writes r under a fresh unique name and returns its reference.
// Oversized input is removed again and reported as ErrTooLarge.
func (s *FileStore) Save(ctx context.Context, k Kind, filename string, r io.Reader) (string, error) {
	if !k.Allowed(filename) {
		return "", fmt.Errorf("save %q: %w", filename, ErrUnsupported)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + "_" + SafeName(filename)
	dstPath := filepath.Join(s.Dir(k), name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("save %q: %w", filename, err)
	}

	n, err := io.Copy(dst, io.LimitReader(r, k.MaxBytes()+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > k.MaxBytes() {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("save %q: %w", filename, err)
	}
	return k.RefPrefix() + name, nil
}

// Delete removes the file behind ref. A file that is already gone is not
// an error.
func (s *FileStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %q: %w", ref, err)
	}
	return nil
}

// Path resolves a reference to a file path inside the store.
func (s *FileStore) Path(ref string) (string, error) {
	for _, k := range []Kind{Audio, Cover} {
		name, ok := strings.CutPrefix(ref, k.RefPrefix())
		if !ok {
			continue
		}
		if name == "" || name != filepath.Base(name) || name == ".." {
			break
		}
		return filepath.Join(s.Dir(k), name), nil
	}
	return "", fmt.Errorf("%q: %w", ref, ErrInvalidRef)
}

// SafeName reduces a client-supplied file name to ASCII letters, digits,
// dot, dash and underscore. Spaces become underscores.
func SafeName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "file" + strings.ToLower(filepath.Ext(filename))
	}
	return out
}
