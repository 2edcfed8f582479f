// Package blobstore keeps attachment bytes on the local filesystem,
// compressed at rest. Records in the database refer to blobs by an opaque
// ref; the store knows nothing about chats or messages.
package blobstore

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Store struct {
	Dir string
}

func New(dir string) *Store {
	return &Store{Dir: dir}
}

// NewRef mints a fresh blob ref preserving the (lowercased) extension so
// downloads can be typed without a database roundtrip.
func NewRef(filename string) string {
	return uuid.New().String() + strings.ToLower(filepath.Ext(filename))
}

func (s *Store) path(ref string) string {
	// Base() strips any path separators smuggled into a ref.
	return filepath.Join(s.Dir, filepath.Base(ref)+".gz")
}

// Save writes the blob gzip-compressed. A failed write leaves no partial
// file behind.
func (s *Store) Save(ctx context.Context, ref string, r io.Reader) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("blobstore mkdir: %w", err)
	}
	dstPath := s.path(ref)
	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("blobstore create: %w", err)
	}
	gz := gzip.NewWriter(dst)
	if err := copyWithContext(ctx, gz, r); err != nil {
		gz.Close()
		dst.Close()
		os.Remove(dstPath)
		return err
	}
	if err := gz.Close(); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return fmt.Errorf("blobstore gzip close: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("blobstore close: %w", err)
	}
	return nil
}

type blobReader struct {
	gz *gzip.Reader
	f  *os.File
}

func (b *blobReader) Read(p []byte) (int, error) { return b.gz.Read(p) }

func (b *blobReader) Close() error {
	gzErr := b.gz.Close()
	if err := b.f.Close(); err != nil {
		return err
	}
	return gzErr
}

// Open returns the decompressed blob stream.
func (s *Store) Open(ref string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("blobstore open: %w", err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blobstore gunzip: %w", err)
	}
	return &blobReader{gz: gz, f: f}, nil
}

// Remove deletes the blob. A blob that is already gone is not an error:
// the cascade that calls this is best-effort and re-runnable.
func (s *Store) Remove(ref string) error {
	err := os.Remove(s.path(ref))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blobstore remove: %w", err)
	}
	return nil
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("blob write cancelled: %w", ctx.Err())
		default:
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read: %w", readErr)
		}
	}
}
