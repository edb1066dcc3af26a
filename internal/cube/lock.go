package cube

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Unlock releases a cube lock.
type Unlock func() error

// LockExt is appended to a cube path to name its lock file.
const LockExt = ".lock"

// Lock takes the advisory writer lock on the cube's sibling lock file. The
// cube itself is not created; that happens on the first Append. Lock does
// not wait: if another process holds the lock the call fails with a
// retryable CONCURRENT_WRITE error.
//
// Hold the lock across LastValidID and Append so that no other writer can
// take the same id.
func (c *Cube) Lock() (Unlock, error) {
	if err := os.MkdirAll(filepath.Dir(c.ref.Path), 0o755); err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}

	fl := flock.New(c.ref.Path + LockExt)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}
	if !ok {
		return nil, &Error{
			Code:    CodeConcurrentWrite,
			Path:    c.ref.Path,
			Offset:  -1,
			Message: "cube is locked by another writer",
		}
	}
	return fl.Unlock, nil
}
