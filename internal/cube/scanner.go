package cube

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/roach88/akasha/internal/event"
	"github.com/roach88/akasha/internal/metrics"
	"github.com/roach88/akasha/internal/record"
)

// Tail describes an incomplete frame at the end of a cube.
type Tail struct {
	// Offset is where the fragment starts. Everything before it is valid.
	Offset int64 `json:"offset"`

	// Size is the number of fragment bytes.
	Size int64 `json:"size"`

	// Reason is the decode failure that identified the fragment.
	Reason error `json:"-"`
}

// Err returns the fragment as a TRUNCATED_TAIL error for path.
func (t *Tail) Err(path string) *Error {
	return &Error{
		Code:    CodeTruncatedTail,
		Path:    path,
		Offset:  t.Offset,
		Message: fmt.Sprintf("%d byte trailing fragment from an interrupted append", t.Size),
		Err:     t.Reason,
	}
}

// Scanner reads frames forward from a cube, one at a time. Use it like
// bufio.Scanner:
//
//	for s.Next() {
//		f := s.Frame()
//	}
//	if err := s.Err(); err != nil { ... }
//
// The scanner reads the file as it was when Scan was called; bytes appended
// afterwards are not seen.
type Scanner struct {
	path    string
	key     string
	logger  *slog.Logger
	file    *os.File
	r       *bufio.Reader
	version uint16
	size    int64

	offset   int64 // start of the next unread frame
	frame    record.Frame
	frameOff int64

	tail *Tail
	err  error
	done bool
}

// Scan opens the cube for a forward pass. A missing or empty file yields a
// scanner with no frames.
func (c *Cube) Scan() (*Scanner, error) {
	s := &Scanner{path: c.ref.Path, key: c.ref.Key(), logger: c.logger, version: record.VersionCurrent}

	f, err := os.Open(c.ref.Path)
	if errors.Is(err, fs.ErrNotExist) {
		s.done = true
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open cube: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat cube: %w", err)
	}

	s.file = f
	s.size = st.Size()
	if s.size == 0 {
		s.done = true
		return s, nil
	}

	s.r = bufio.NewReaderSize(io.NewSectionReader(f, 0, s.size), 64<<10)

	n := min(s.size, record.HeaderSize)
	hdr := make([]byte, n)
	if _, err := io.ReadFull(s.r, hdr); err != nil {
		f.Close()
		return nil, fmt.Errorf("read cube header: %w", err)
	}
	h, err := record.ParseHeader(hdr)
	switch {
	case errors.Is(err, record.ErrTruncated):
		s.setTail(0, err)
		return s, nil
	case err != nil:
		f.Close()
		metrics.Corruption(string(CodeCorruptRecord))
		return nil, corruptAt(c.ref.Path, 0, err)
	}

	s.version = h.Version
	s.offset = record.HeaderSize
	return s, nil
}

// Next advances to the next complete, checksum-valid frame.
// It returns false at end of stream, at a trailing fragment, or on error.
func (s *Scanner) Next() bool {
	if s.done {
		return false
	}

	remaining := s.size - s.offset
	if remaining == 0 {
		s.done = true
		return false
	}

	minFrame := int64(record.MinFrame(s.version))
	if remaining < minFrame {
		s.setTail(s.offset, fmt.Errorf("%w: %d bytes remain, smallest frame is %d", record.ErrTruncated, remaining, minFrame))
		return false
	}

	prefix, err := s.r.Peek(record.LengthSize)
	if err != nil {
		return s.fail(fmt.Errorf("read cube: %w", err))
	}
	if want := record.DeclaredSize(prefix); want > remaining {
		s.setTail(s.offset, fmt.Errorf("%w: frame needs %d bytes, %d remain", record.ErrTruncated, want, remaining))
		return false
	}
	total, err := record.FrameLength(prefix, record.MinPayload(s.version))
	if err != nil {
		return s.fault(err)
	}

	buf := make([]byte, total)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return s.fail(fmt.Errorf("read cube: %w", err))
	}

	if err := record.VerifyFrame(buf, s.version); err != nil {
		// A checksum failure is a torn write when the bytes after the frame
		// cannot hold another one; otherwise they prove it was once complete.
		if errors.Is(err, record.ErrChecksum) && s.size-(s.offset+int64(total)) < minFrame {
			s.setTail(s.offset, err)
			return false
		}
		return s.fault(err)
	}

	s.frame = buf
	s.frameOff = s.offset
	s.offset += int64(total)
	metrics.Scanned()
	return true
}

// Frame returns the frame read by the last successful Next.
func (s *Scanner) Frame() record.Frame {
	return s.frame
}

// Offset returns the byte offset of the current frame.
func (s *Scanner) Offset() int64 {
	return s.frameOff
}

// Event decodes the current frame.
// A checksum-valid frame that does not decode is a CORRUPT_RECORD error.
func (s *Scanner) Event() (event.Event, error) {
	ev, err := record.Decode(s.frame, s.version)
	if err != nil {
		metrics.Corruption(string(CodeCorruptRecord))
		return event.Event{}, corruptAt(s.path, s.frameOff, err)
	}
	ev.Offset = s.frameOff
	return ev, nil
}

// Version returns the cube format version.
func (s *Scanner) Version() uint16 {
	return s.version
}

// Legacy reports whether the cube uses the read-only legacy layout.
func (s *Scanner) Legacy() bool {
	return s.version == record.VersionLegacy
}

// Path returns the cube file path.
func (s *Scanner) Path() string {
	return s.path
}

// Size returns the file size observed when the scan started.
func (s *Scanner) Size() int64 {
	return s.size
}

// ValidEnd returns the end offset of the last valid frame read so far.
// For a cube with a header and no frames it is the header size.
func (s *Scanner) ValidEnd() int64 {
	return s.offset
}

// Tail returns the trailing fragment, if the scan stopped at one.
func (s *Scanner) Tail() *Tail {
	return s.tail
}

// Err returns the first fatal error encountered. A trailing fragment is not an error.
func (s *Scanner) Err() error {
	return s.err
}

// Close releases the file.
func (s *Scanner) Close() error {
	s.done = true
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *Scanner) setTail(offset int64, reason error) {
	s.tail = &Tail{Offset: offset, Size: s.size - offset, Reason: reason}
	s.done = true
	metrics.TruncatedTail()
	s.logger.Warn("ignoring trailing fragment",
		slog.String("cube", s.key),
		slog.Int64("offset", offset),
		slog.Int64("bytes", s.tail.Size),
		slog.String("reason", reason.Error()))
}

// fault stops the scan at a frame that does not verify. A run of zero bytes
// to the end of the file is an extent the file system allocated but never
// wrote, so it is a tail; anything else is corruption.
func (s *Scanner) fault(reason error) bool {
	zero, err := s.zeroFilled(s.offset)
	if err != nil {
		return s.fail(fmt.Errorf("read cube: %w", err))
	}
	if zero {
		s.setTail(s.offset, fmt.Errorf("%w: zero-filled to end of file (%v)", record.ErrTruncated, reason))
		return false
	}
	return s.fail(corruptAt(s.path, s.offset, reason))
}

func (s *Scanner) zeroFilled(off int64) (bool, error) {
	r := io.NewSectionReader(s.file, off, s.size-off)
	buf := make([]byte, 32<<10)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			if b != 0 {
				return false, nil
			}
		}
		if err == io.EOF {
			return true, nil
		}
		if err != nil {
			return false, err
		}
	}
}

func (s *Scanner) fail(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		metrics.Corruption(string(ce.Code))
	}
	s.err = err
	s.done = true
	return false
}
