package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Querier runs a single backend request.
type Querier interface {
	Query(ctx context.Context, p Params) (*Response, error)
}

// Handler receives the outcome of a pooled request. Exactly one of the
// callbacks fires per request. Nil callbacks are skipped.
type Handler struct {
	OnResult  func(*Response)
	OnError   func(error)
	OnTimeout func()
}

// Pool runs requests asynchronously, each with its own id and deadline.
// A request can be stopped or canceled while it is in flight; its result is
// dropped if it arrives afterwards.
type Pool struct {
	querier Querier
	timeout time.Duration
	logger  *zap.Logger
	gauge   interface{ SetInFlight(int) }

	mu     sync.Mutex
	nextID uint64
	slots  map[uint64]*slot
	closed bool
	wg     sync.WaitGroup
}

type slot struct {
	cancel  context.CancelFunc
	timer   *time.Timer
	handler Handler
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the logger of the pool.
func WithPoolLogger(l *zap.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithInFlightGauge reports the number of pending requests to g.
func WithInFlightGauge(g interface{ SetInFlight(int) }) PoolOption {
	return func(p *Pool) { p.gauge = g }
}

// NewPool creates a pool sending through q. A zero timeout disables the
// per-request timer.
func NewPool(q Querier, timeout time.Duration, opts ...PoolOption) *Pool {
	p := &Pool{
		querier: q,
		timeout: timeout,
		logger:  zap.NewNop(),
		slots:   make(map[uint64]*slot),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send starts a request and returns its id. Ids increase monotonically.
func (p *Pool) Send(ctx context.Context, params Params, h Handler) uint64 {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	if p.closed {
		p.mu.Unlock()
		fireError(h, fmt.Errorf("pool closed: %w", ErrCanceled))
		return id
	}

	reqCtx, cancel := context.WithCancel(ctx)
	s := &slot{cancel: cancel, handler: h}
	if p.timeout > 0 {
		s.timer = time.AfterFunc(p.timeout, func() { p.Stop(id) })
	}
	p.slots[id] = s
	p.wg.Add(1)
	p.reportLocked()
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		resp, err := p.querier.Query(reqCtx, params)
		p.finish(id, params, resp, err)
	}()
	return id
}

// Stop aborts request id and fires its timeout callback. It reports
// whether the request was still pending.
func (p *Pool) Stop(id uint64) bool {
	s := p.take(id)
	if s == nil {
		return false
	}
	s.cancel()
	p.logger.Debug("request stopped", zap.Uint64("request_id", id))
	if s.handler.OnTimeout != nil {
		s.handler.OnTimeout()
	}
	return true
}

// Cancel aborts request id and fires its error callback with ErrCanceled.
func (p *Pool) Cancel(id uint64) bool {
	s := p.take(id)
	if s == nil {
		return false
	}
	s.cancel()
	p.logger.Debug("request canceled", zap.Uint64("request_id", id))
	fireError(s.handler, ErrCanceled)
	return true
}

// InFlight returns the number of pending requests.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// Wait blocks until every request goroutine has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close cancels all pending requests and rejects new ones.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	ids := make([]uint64, 0, len(p.slots))
	for id := range p.slots {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.Cancel(id)
	}
}

func (p *Pool) finish(id uint64, params Params, resp *Response, err error) {
	s := p.take(id)
	if s == nil {
		p.logger.Debug("dropping result of finished request",
			zap.Uint64("request_id", id),
			zap.String("target", params.Target))
		return
	}
	s.cancel()

	if err != nil {
		if errors.Is(err, context.Canceled) && !errors.Is(err, ErrCanceled) {
			err = fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		fireError(s.handler, err)
		return
	}
	if s.handler.OnResult != nil {
		s.handler.OnResult(resp)
	}
}

// take removes slot id and stops its timer. It returns nil if the request
// already completed.
func (p *Pool) take(id uint64) *slot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[id]
	if !ok {
		return nil
	}
	delete(p.slots, id)
	if s.timer != nil {
		s.timer.Stop()
	}
	p.reportLocked()
	return s
}

func (p *Pool) reportLocked() {
	if p.gauge != nil {
		p.gauge.SetInFlight(len(p.slots))
	}
}

func fireError(h Handler, err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}
