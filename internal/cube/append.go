package cube

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/akasha/internal/metrics"
	"github.com/roach88/akasha/internal/record"
)

// AppendResult reports where a frame landed.
type AppendResult struct {
	// Offset is where the frame starts.
	Offset int64 `json:"offset"`

	// End is the new file size.
	End int64 `json:"end"`

	// Created is true when this append wrote the file header.
	Created bool `json:"created"`
}

// Append writes one encoded frame at the end of the cube and syncs it to disk.
//
// expectEnd is the end of the last valid frame as seen by the caller's scan
// (0 for a new cube). If the file size differs, something else wrote to the
// cube or a trailing fragment is present, and Append refuses with
// CONCURRENT_WRITE without writing.
//
// The header and first frame go out in a single write, as does every later
// frame, so a crash leaves at most one incomplete frame at the end.
func (c *Cube) Append(f record.Frame, expectEnd int64) (AppendResult, error) {
	start := time.Now()

	if err := record.VerifyFrame(f, record.VersionCurrent); err != nil {
		return AppendResult{}, fmt.Errorf("append: %w", err)
	}

	dir := filepath.Dir(c.ref.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return AppendResult{}, fmt.Errorf("append: %w", err)
	}
	file, err := os.OpenFile(c.ref.Path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return AppendResult{}, fmt.Errorf("append: %w", err)
	}
	defer file.Close()

	st, err := file.Stat()
	if err != nil {
		return AppendResult{}, fmt.Errorf("append: %w", err)
	}
	size := st.Size()
	if size != expectEnd {
		return AppendResult{}, &Error{
			Code:    CodeConcurrentWrite,
			Path:    c.ref.Path,
			Offset:  size,
			Message: fmt.Sprintf("cube is %d bytes, expected %d", size, expectEnd),
		}
	}

	var (
		buf     []byte
		created bool
	)
	switch {
	case size == 0:
		buf = append(record.EncodeHeader(), f...)
		created = true
	case size < record.HeaderSize:
		return AppendResult{}, &Error{
			Code:    CodeTruncatedTail,
			Path:    c.ref.Path,
			Offset:  0,
			Message: "cube header is incomplete",
		}
	default:
		if err := checkWritable(file); err != nil {
			return AppendResult{}, &Error{Code: CodeCorruptRecord, Path: c.ref.Path, Offset: 0, Message: "cannot append", Err: err}
		}
		buf = f
	}

	if _, err := file.WriteAt(buf, size); err != nil {
		return AppendResult{}, fmt.Errorf("append: %w", err)
	}
	if err := file.Sync(); err != nil {
		return AppendResult{}, fmt.Errorf("append: sync: %w", err)
	}
	if created {
		if err := syncDir(dir); err != nil {
			return AppendResult{}, fmt.Errorf("append: sync dir: %w", err)
		}
	}

	end := size + int64(len(buf))
	res := AppendResult{Offset: end - int64(len(f)), End: end, Created: created}
	metrics.Appended(start)
	c.logger.Debug("frame appended",
		slog.String("cube", c.ref.Key()),
		slog.Int64("offset", res.Offset),
		slog.Int("bytes", len(buf)),
		slog.Bool("created", created))
	return res, nil
}

// checkWritable rejects cubes this version only reads.
func checkWritable(file *os.File) error {
	hdr := make([]byte, record.HeaderSize)
	if _, err := file.ReadAt(hdr, 0); err != nil {
		return err
	}
	h, err := record.ParseHeader(hdr)
	if err != nil {
		return err
	}
	if h.Version != record.VersionCurrent {
		return fmt.Errorf("cube version %d is read-only", h.Version)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, fs.ErrInvalid) {
		return err
	}
	return nil
}

// truncate cuts the file to size and syncs it.
func truncate(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		return err
	}
	return f.Sync()
}
