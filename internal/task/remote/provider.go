package remote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"taskflow-backend/internal/task/domain"

	"github.com/avast/retry-go/v4"
)

// ErrNotFound matches a mirror entry that no longer exists on the remote list
var ErrNotFound = domain.ErrRemoteNotFound

// TaskList is the raw remote task-list API being decorated
type TaskList interface {
	Create(ctx context.Context, title, notes string, due time.Time, status domain.TaskStatus) (string, error)
	Update(ctx context.Context, id string, update domain.RemoteUpdate) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.RemoteTask, error)
	List(ctx context.Context, showCompleted bool) ([]*domain.RemoteTask, error)
}

// Kind classifies a failed remote call
type Kind int

const (
	KindAPI Kind = iota
	KindTimeout
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	default:
		return "api"
	}
}

// Classify maps an error returned by a TaskList onto a Kind
func Classify(err error) Kind {
	if errors.Is(err, domain.ErrRemoteNotFound) {
		return KindNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindAPI
}

// Error is returned once a remote operation has given up
type Error struct {
	Op       string
	Attempts int
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote %s failed after %d attempt(s) (%s): %v", e.Op, e.Attempts, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options controls the retry discipline
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Timeout     time.Duration
	// Sleep waits between attempts; nil uses a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultOptions returns 3 attempts, 2s linear backoff and a 10s per-attempt timeout
func DefaultOptions() Options {
	return Options{MaxAttempts: 3, BaseDelay: 2 * time.Second, Timeout: 10 * time.Second}
}

// Provider wraps a TaskList with bounded retries and per-attempt timeouts
type Provider struct {
	inner TaskList
	opts  Options
}

func NewProvider(inner TaskList, opts Options) *Provider {
	defaults := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.BaseDelay < 0 {
		opts.BaseDelay = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Provider{inner: inner, opts: opts}
}

func (p *Provider) Create(ctx context.Context, title, notes string, due time.Time, status domain.TaskStatus) (string, error) {
	var id string
	err := p.do(ctx, "create", func(ctx context.Context) error {
		var err error
		id, err = p.inner.Create(ctx, title, notes, due, status)
		return err
	})
	return id, err
}

func (p *Provider) Update(ctx context.Context, id string, update domain.RemoteUpdate) error {
	return p.do(ctx, "update "+id, func(ctx context.Context) error {
		return p.inner.Update(ctx, id, update)
	})
}

func (p *Provider) Delete(ctx context.Context, id string) error {
	return p.do(ctx, "delete "+id, func(ctx context.Context) error {
		return p.inner.Delete(ctx, id)
	})
}

func (p *Provider) Get(ctx context.Context, id string) (*domain.RemoteTask, error) {
	var task *domain.RemoteTask
	err := p.do(ctx, "get "+id, func(ctx context.Context) error {
		var err error
		task, err = p.inner.Get(ctx, id)
		return err
	})
	return task, err
}

func (p *Provider) List(ctx context.Context, showCompleted bool) ([]*domain.RemoteTask, error) {
	var tasks []*domain.RemoteTask
	err := p.do(ctx, "list", func(ctx context.Context) error {
		var err error
		tasks, err = p.inner.List(ctx, showCompleted)
		return err
	})
	return tasks, err
}

func (p *Provider) do(ctx context.Context, op string, call func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: op, Attempts: 0, Kind: Classify(err), Err: err}
	}

	attempt := 0
	lastKind := KindAPI
	err := retry.Do(
		func() error {
			attempt++
			attemptCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
			defer cancel()
			err := call(attemptCtx)
			if err != nil {
				lastKind = Classify(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(p.opts.MaxAttempts)),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return Classify(err) != KindNotFound && ctx.Err() == nil
		}),
		// attempt × BaseDelay
		retry.DelayType(func(_ uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(attempt) * p.opts.BaseDelay
		}),
		retry.OnRetry(func(_ uint, err error) {
			if Classify(err) == KindTimeout {
				log.Printf("[Remote] %s timed out (attempt %d/%d)", op, attempt, p.opts.MaxAttempts)
			} else {
				log.Printf("[Remote] %s failed (attempt %d/%d): %v", op, attempt, p.opts.MaxAttempts, err)
			}
		}),
		retry.WithTimer(sleepTimer{ctx: ctx, sleep: p.opts.Sleep}),
	)

	if err == nil {
		if attempt > 1 {
			log.Printf("[Remote] %s succeeded on attempt %d", op, attempt)
		}
		return nil
	}
	if attempt == p.opts.MaxAttempts && lastKind != KindNotFound {
		log.Printf("[Remote] %s giving up after %d attempts", op, attempt)
	}
	return &Error{Op: op, Attempts: attempt, Kind: lastKind, Err: err}
}

// sleepTimer routes retry-go's waits through Options.Sleep
type sleepTimer struct {
	ctx   context.Context
	sleep func(ctx context.Context, d time.Duration) error
}

// After blocks in sleep and fires only if it returned cleanly; otherwise retry.Context ends the wait
func (t sleepTimer) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	if err := t.sleep(t.ctx, d); err == nil {
		ch <- time.Now()
	}
	return ch
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
