package overlay

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("overlay: synchronizer closed")
	// ErrUnknownNode is returned for node ids not in the scene.
	ErrUnknownNode = errors.New("overlay: unknown node")
)

// Failure reports a synchronization pass or camera operation that did not
// complete. The previously published snapshot stays in place.
type Failure struct {
	Op  string
	Err error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("overlay %s: %v", f.Op, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
