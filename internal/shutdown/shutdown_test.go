package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type mockCloser struct {
	name  string
	err   error
	delay time.Duration
	order *[]string
	mu    *sync.Mutex
	calls int
}

func (m *mockCloser) Close() error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.calls++
	if m.order != nil {
		m.mu.Lock()
		*m.order = append(*m.order, m.name)
		m.mu.Unlock()
	}
	return m.err
}

func TestShutdown_Order(t *testing.T) {
	c := New(5*time.Second, zerolog.Nop())

	var order []string
	var mu sync.Mutex
	c.Register("storage", &mockCloser{name: "storage", order: &order, mu: &mu}, PriorityStorage)
	c.Register("export", &mockCloser{name: "export", order: &order, mu: &mu}, 10)
	c.Register("late", &mockCloser{name: "late", order: &order, mu: &mu}, PriorityStorage)

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{"export", "storage", "late"}
	if len(order) != len(want) {
		t.Fatalf("closed %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("close %d = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestShutdown_ContinuesPastFailures(t *testing.T) {
	c := New(5*time.Second, zerolog.Nop())

	errA := errors.New("a failed")
	errB := errors.New("b failed")
	ok := &mockCloser{}
	c.Register("a", &mockCloser{err: errA}, 1)
	c.Register("ok", ok, 2)
	c.Register("b", &mockCloser{err: errB}, 3)

	err := c.Shutdown()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Shutdown() error = %v, want both failures", err)
	}
	if ok.calls != 1 {
		t.Errorf("healthy component closed %d times, want 1", ok.calls)
	}
}

func TestShutdown_Once(t *testing.T) {
	c := New(5*time.Second, zerolog.Nop())
	comp := &mockCloser{err: errors.New("boom")}
	c.Register("comp", comp, PriorityStorage)

	first := c.Shutdown()
	second := c.Shutdown()
	if comp.calls != 1 {
		t.Errorf("component closed %d times, want 1", comp.calls)
	}
	if first == nil || first != second {
		t.Errorf("second Shutdown() = %v, want %v", second, first)
	}
}

func TestShutdown_Timeout(t *testing.T) {
	c := New(20*time.Millisecond, zerolog.Nop())
	c.Register("slow", &mockCloser{delay: 500 * time.Millisecond}, PriorityStorage)

	start := time.Now()
	err := c.Shutdown()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("Shutdown() waited %v on a slow component", elapsed)
	}
}

func TestShutdown_Empty(t *testing.T) {
	if err := New(0, zerolog.Nop()).Shutdown(); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestContext_Signal(t *testing.T) {
	c := New(time.Second, zerolog.Nop())
	ctx, stop := c.Context(context.Background())
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}

func TestContext_ParentCancel(t *testing.T) {
	c := New(time.Second, zerolog.Nop())
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := c.Context(parent)
	defer stop()

	cancel()
	<-ctx.Done()
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("ctx.Err() = %v, want canceled", ctx.Err())
	}
}
