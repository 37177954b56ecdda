package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// blockingQuerier answers once release is closed, or fails when the request
// context ends.
type blockingQuerier struct {
	release chan struct{}
	resp    *Response
}

func (q *blockingQuerier) Query(ctx context.Context, _ Params) (*Response, error) {
	select {
	case <-q.release:
		return q.resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type querierFunc func(ctx context.Context, p Params) (*Response, error)

func (f querierFunc) Query(ctx context.Context, p Params) (*Response, error) { return f(ctx, p) }

type outcome struct {
	result  *Response
	err     error
	timeout bool
}

func collect() (Handler, <-chan outcome) {
	ch := make(chan outcome, 1)
	return Handler{
		OnResult:  func(r *Response) { ch <- outcome{result: r} },
		OnError:   func(err error) { ch <- outcome{err: err} },
		OnTimeout: func() { ch <- outcome{timeout: true} },
	}, ch
}

func TestPool_Result(t *testing.T) {
	defer goleak.VerifyNone(t)

	want := &Response{Query: "a"}
	p := NewPool(querierFunc(func(context.Context, Params) (*Response, error) { return want, nil }), time.Second)
	h, ch := collect()

	id := p.Send(context.Background(), Params{Query: "a"}, h)
	got := <-ch
	p.Wait()

	assert.Equal(t, uint64(1), id)
	assert.Same(t, want, got.result)
	assert.Equal(t, 0, p.InFlight())
}

func TestPool_IDsIncrease(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := &blockingQuerier{release: make(chan struct{}), resp: &Response{}}
	p := NewPool(q, 0)
	a := p.Send(context.Background(), Params{}, Handler{})
	b := p.Send(context.Background(), Params{}, Handler{})
	assert.Less(t, a, b)
	assert.Equal(t, 2, p.InFlight())

	close(q.release)
	p.Wait()
	assert.Equal(t, 0, p.InFlight())
}

func TestPool_TimeoutFiresOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := &blockingQuerier{release: make(chan struct{})}
	p := NewPool(q, 10*time.Millisecond)

	var mu sync.Mutex
	var calls []string
	done := make(chan struct{})
	p.Send(context.Background(), Params{}, Handler{
		OnResult:  func(*Response) { mu.Lock(); calls = append(calls, "result"); mu.Unlock() },
		OnError:   func(error) { mu.Lock(); calls = append(calls, "error"); mu.Unlock() },
		OnTimeout: func() { mu.Lock(); calls = append(calls, "timeout"); mu.Unlock(); close(done) },
	})

	<-done
	p.Wait()
	close(q.release)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"timeout"}, calls)
}

func TestPool_StopDropsLateResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	p := NewPool(querierFunc(func(context.Context, Params) (*Response, error) {
		<-release
		return &Response{Query: "late"}, nil
	}), 0)
	h, ch := collect()

	id := p.Send(context.Background(), Params{}, h)
	require.True(t, p.Stop(id))
	assert.False(t, p.Stop(id))

	close(release)
	p.Wait()

	got := <-ch
	assert.True(t, got.timeout)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected second callback: %+v", extra)
	default:
	}
}

func TestPool_Cancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := &blockingQuerier{release: make(chan struct{})}
	p := NewPool(q, time.Second)
	h, ch := collect()

	id := p.Send(context.Background(), Params{}, h)
	require.True(t, p.Cancel(id))
	p.Wait()

	got := <-ch
	assert.True(t, errors.Is(got.err, ErrCanceled))
	assert.False(t, p.Cancel(id))
}

func TestPool_ParentContextCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := &blockingQuerier{release: make(chan struct{})}
	p := NewPool(q, 0)
	h, ch := collect()

	ctx, cancel := context.WithCancel(context.Background())
	p.Send(ctx, Params{}, h)
	cancel()

	got := <-ch
	p.Wait()
	assert.True(t, errors.Is(got.err, ErrCanceled))
	assert.True(t, errors.Is(got.err, context.Canceled))
}

func TestPool_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := &blockingQuerier{release: make(chan struct{})}
	p := NewPool(q, 0)

	h1, ch1 := collect()
	h2, ch2 := collect()
	p.Send(context.Background(), Params{}, h1)
	p.Send(context.Background(), Params{}, h2)

	p.Close()
	p.Wait()

	assert.True(t, errors.Is((<-ch1).err, ErrCanceled))
	assert.True(t, errors.Is((<-ch2).err, ErrCanceled))

	h3, ch3 := collect()
	p.Send(context.Background(), Params{}, h3)
	assert.True(t, errors.Is((<-ch3).err, ErrCanceled))
}

type fakeGauge struct {
	mu     sync.Mutex
	values []int
}

func (g *fakeGauge) SetInFlight(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values = append(g.values, n)
}

func TestPool_InFlightGauge(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := &fakeGauge{}
	q := &blockingQuerier{release: make(chan struct{}), resp: &Response{}}
	p := NewPool(q, 0, WithInFlightGauge(g))

	p.Send(context.Background(), Params{}, Handler{})
	close(q.release)
	p.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Equal(t, []int{1, 0}, g.values)
}
