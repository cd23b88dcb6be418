// Package binsrc provides binary sources for WT588E02B updates: in-memory
// images for tests and tooling, files on disk and entries of an fs.FS.
package binsrc

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
)

var (
	ErrNotOpen     = errors.New("binsrc: source is not open")
	ErrAlreadyOpen = errors.New("binsrc: source is already open")
	ErrTooLarge    = errors.New("binsrc: image exceeds 4 GiB")
	ErrOutOfRange  = errors.New("binsrc: read past end of image")
)

// Memory serves named images held in memory. It counts opens and closes so
// callers can check that every open is matched.
type Memory struct {
	Images map[string][]byte

	// OpenErr, ReadErr and CloseErr, when set, are returned by the matching
	// method instead of doing any work.
	OpenErr  error
	ReadErr  error
	CloseErr error

	cur    []byte
	open   bool
	opens  int
	closes int
	reads  int
}

// NewMemory returns a Memory holding one image under name.
func NewMemory(name string, data []byte) *Memory {
	return &Memory{Images: map[string][]byte{name: data}}
}

func (m *Memory) Open(name string) (uint32, error) {
	if m.OpenErr != nil {
		return 0, m.OpenErr
	}
	if m.open {
		return 0, ErrAlreadyOpen
	}
	data, ok := m.Images[name]
	if !ok {
		return 0, fmt.Errorf("binsrc: open %q: %w", name, fs.ErrNotExist)
	}
	size, err := imageSize(int64(len(data)), name)
	if err != nil {
		return 0, err
	}
	m.cur = data
	m.open = true
	m.opens++
	return size, nil
}

func (m *Memory) ReadAt(p []byte, offset uint32) error {
	if !m.open {
		return ErrNotOpen
	}
	if m.ReadErr != nil {
		return m.ReadErr
	}
	end := uint64(offset) + uint64(len(p))
	if end > uint64(len(m.cur)) {
		return fmt.Errorf("%w: %d+%d > %d", ErrOutOfRange, offset, len(p), len(m.cur))
	}
	copy(p, m.cur[offset:end])
	m.reads++
	return nil
}

func (m *Memory) Close() error {
	if !m.open {
		return ErrNotOpen
	}
	m.open = false
	m.cur = nil
	m.closes++
	return m.CloseErr
}

// Opens, Closes and Reads count calls made while the source was usable.
func (m *Memory) Opens() int { return m.opens }
func (m *Memory) Closes() int { return m.closes }
func (m *Memory) Reads() int { return m.reads }

// IsOpen reports whether an image is currently open.
func (m *Memory) IsOpen() bool { return m.open }

// File serves images from the local filesystem. Open names are paths,
// resolved relative to Dir when Dir is set.
type File struct {
	Dir string

	f *os.File
}

func (s *File) Open(name string) (uint32, error) {
	if s.f != nil {
		return 0, ErrAlreadyOpen
	}
	path := name
	if s.Dir != "" && !filepath.IsAbs(name) {
		path = filepath.Join(s.Dir, name)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, err
	}
	size, err := imageSize(fi.Size(), path)
	if err != nil {
		f.Close()
		return 0, err
	}
	s.f = f
	return size, nil
}

func (s *File) ReadAt(p []byte, offset uint32) error {
	if s.f == nil {
		return ErrNotOpen
	}
	if _, err := s.f.ReadAt(p, int64(offset)); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %v", ErrOutOfRange, err)
		}
		return err
	}
	return nil
}

func (s *File) Close() error {
	if s.f == nil {
		return ErrNotOpen
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// FS serves images from an fs.FS, for example an embed.FS of stock sounds.
// The whole entry is loaded on Open.
type FS struct {
	FS fs.FS

	mem Memory
}

func (s *FS) Open(name string) (uint32, error) {
	if s.mem.open {
		return 0, ErrAlreadyOpen
	}
	data, err := fs.ReadFile(s.FS, name)
	if err != nil {
		return 0, err
	}
	s.mem.Images = map[string][]byte{name: data}
	return s.mem.Open(name)
}

func (s *FS) ReadAt(p []byte, offset uint32) error { return s.mem.ReadAt(p, offset) }

func (s *FS) Close() error { return s.mem.Close() }

// imageSize converts n to the driver's 32-bit image size.
func imageSize(n int64, name string) (uint32, error) {
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s", ErrTooLarge, name)
	}
	return uint32(n), nil
}
