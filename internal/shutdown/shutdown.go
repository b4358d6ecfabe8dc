// Package shutdown ties a command run to process signals and releases the
// resources it opened, in order, when the run ends.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Closer is a resource released at shutdown.
type Closer interface {
	Close() error
}

// Coordinator closes registered resources once, lowest priority first.
type Coordinator struct {
	timeout time.Duration
	logger  zerolog.Logger

	mu         sync.Mutex
	components []namedComponent

	once sync.Once
	err  error
}

type namedComponent struct {
	name      string
	component Closer
	priority  int // Lower = closed first
}

// New creates a coordinator that gives up waiting on Close calls after
// timeout. A zero timeout waits forever.
func New(timeout time.Duration, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		timeout: timeout,
		logger:  logger.With().Str("component", "shutdown").Logger(),
	}
}

// Register adds a resource to close at shutdown.
func (c *Coordinator) Register(name string, component Closer, priority int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.components = append(c.components, namedComponent{
		name:      name,
		component: component,
		priority:  priority,
	})

	c.logger.Debug().
		Str("name", name).
		Int("priority", priority).
		Msg("Registered component for shutdown")
}

// Context returns a child of parent cancelled on SIGINT or SIGTERM. The
// returned stop function restores default signal handling.
func (c *Coordinator) Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Shutdown closes every registered component. Failures do not stop the
// remaining closes; all of them are returned joined. Later calls return the
// result of the first one.
func (c *Coordinator) Shutdown() error {
	c.once.Do(func() {
		c.mu.Lock()
		components := slices.Clone(c.components)
		c.mu.Unlock()

		slices.SortStableFunc(components, func(a, b namedComponent) int {
			return a.priority - b.priority
		})

		done := make(chan error, 1)
		go func() {
			done <- c.closeAll(components)
		}()

		if c.timeout <= 0 {
			c.err = <-done
			return
		}
		select {
		case c.err = <-done:
		case <-time.After(c.timeout):
			c.logger.Warn().
				Dur("timeout", c.timeout).
				Msg("Shutdown timeout reached, abandoning remaining components")
			c.err = context.DeadlineExceeded
		}
	})
	return c.err
}

func (c *Coordinator) closeAll(components []namedComponent) error {
	var errs []error
	for _, comp := range components {
		if err := comp.component.Close(); err != nil {
			c.logger.Error().
				Err(err).
				Str("component", comp.name).
				Msg("Component shutdown failed")
			errs = append(errs, err)
			continue
		}
		c.logger.Debug().
			Str("component", comp.name).
			Msg("Component shutdown complete")
	}
	return errors.Join(errs...)
}

// PriorityStorage closes storage backends after everything that writes
// through them.
const PriorityStorage = 80
