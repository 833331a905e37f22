package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Mount retry policy for containers that have not been laid out yet.
const (
	DefaultMountAttempts = 10
	DefaultMountBackoff  = 50 * time.Millisecond
)

// Container reports the current size of the element hosting the map.
type Container interface {
	Size() (width, height float64)
}

// ContainerFunc adapts a function to Container.
type ContainerFunc func() (float64, float64)

// Size implements Container.
func (f ContainerFunc) Size() (float64, float64) { return f() }

// MountError describes why the map could not be created.
type MountError struct {
	Message       string
	Detail        string
	Unrecoverable bool
	Err           error
}

func (e *MountError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("render: %s: %s", e.Message, e.Detail)
	}
	return "render: " + e.Message
}

func (e *MountError) Unwrap() error { return e.Err }

// MountOptions tunes Mount.
type MountOptions struct {
	Attempts int
	Backoff  time.Duration
	// Capability checks that the host can draw at all.
	Capability func() error
	Log        zerolog.Logger
}

// Mount waits for container to have a non-zero size, creates the map with
// create and loads it. Size checks are retried; creation errors are
// classified and never retried.
func Mount(ctx context.Context, container Container, create func(Viewport) (*Map, error), pixelRatio float64, opts MountOptions) (*Map, error) {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = DefaultMountAttempts
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = DefaultMountBackoff
	}

	if opts.Capability != nil {
		if err := opts.Capability(); err != nil {
			return nil, &MountError{
				Message:       "rendering is not available on this host",
				Detail:        err.Error(),
				Unrecoverable: true,
				Err:           err,
			}
		}
	}

	var w, h float64
	for i := 0; ; i++ {
		w, h = container.Size()
		if w > 0 && h > 0 {
			break
		}
		if i+1 >= attempts {
			return nil, &MountError{
				Message: "map container has no size",
				Detail:  fmt.Sprintf("gave up after %d attempts", attempts),
				Err:     ErrZeroSize,
			}
		}
		opts.Log.Debug().Int("attempt", i+1).Msg("map container not laid out, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	m, err := create(Viewport{Width: w, Height: h, PixelRatio: pixelRatio})
	if err != nil {
		return nil, &MountError{
			Message:       "map initialisation failed",
			Detail:        err.Error(),
			Unrecoverable: IsUnrecoverable(err),
			Err:           err,
		}
	}
	if err := m.Load(); err != nil {
		return nil, &MountError{
			Message:       "map failed to load",
			Detail:        err.Error(),
			Unrecoverable: IsUnrecoverable(err),
			Err:           err,
		}
	}
	return m, nil
}

// IsUnrecoverable reports whether err means the host cannot render at all,
// so retrying is pointless.
func IsUnrecoverable(err error) bool {
	if err == nil {
		return false
	}
	var me *MountError
	if errors.As(err, &me) {
		return me.Unrecoverable
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "gl_vendor"),
		strings.Contains(msg, "webgl") && strings.Contains(msg, "disabled"),
		strings.Contains(msg, "context") && strings.Contains(msg, "lost"),
		strings.Contains(msg, "not supported"),
		strings.Contains(msg, "could not create webgl"):
		return true
	}
	return false
}
