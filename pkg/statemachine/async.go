package statemachine

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrStopped 分发器已停止
	ErrStopped = errors.New("dispatcher stopped")
	// ErrActionPanic Submit 投递的操作发生 panic，经 onError 报告
	ErrActionPanic = errors.New("dispatched operation panicked")
)

// request 队列中的一次操作，reply 为 nil 表示无需回执
type request[S, G comparable] struct {
	fn    func(*Machine[S, G]) error
	reply chan outcome
}

// outcome 写者协程的执行结果，panicked 为真时 value 为 recover 得到的值
type outcome struct {
	err      error
	panicked bool
	value    any
}

func (o outcome) unwrap() error {
	if o.panicked {
		panic(o.value)
	}
	return o.err
}

// Serial 单写者分发器：由唯一协程持有 Machine，所有操作经队列串行执行。
// 在动作内对同一 Serial 调用 Dispatch 会死锁。
type Serial[S, G comparable] struct {
	m       *Machine[S, G]
	queue   chan request[S, G]
	stopCh  chan struct{}
	doneCh  chan struct{}
	wg      sync.WaitGroup
	onError func(error)

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewSerial 创建单写者分发器，queueSize 为队列长度
func NewSerial[S, G comparable](m *Machine[S, G], queueSize int, onError func(error)) *Serial[S, G] {
	if queueSize < 0 {
		queueSize = 0
	}
	return &Serial[S, G]{
		m:       m,
		queue:   make(chan request[S, G], queueSize),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		onError: onError,
	}
}

// Start 启动处理协程
func (s *Serial[S, G]) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.wg.Add(1)
	go s.loop()
}

// Stop 停止处理协程并等待退出，队列中未处理的请求以 ErrStopped 返回
func (s *Serial[S, G]) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.drain()
	close(s.doneCh)
}

// Name 返回所持状态机名称
func (s *Serial[S, G]) Name() string {
	return s.m.Name()
}

// Dispatch 投递信号并等待处理结果
func (s *Serial[S, G]) Dispatch(ctx context.Context, signal G) error {
	return s.Do(ctx, func(m *Machine[S, G]) error {
		return m.ProcessSignal(signal)
	})
}

// Submit 异步投递信号，动作失败或 panic 交给 onError
func (s *Serial[S, G]) Submit(ctx context.Context, signal G) error {
	return s.enqueue(ctx, request[S, G]{fn: func(m *Machine[S, G]) error {
		return m.ProcessSignal(signal)
	}})
}

// Do 在写者协程中执行任意操作（注册转换、读取状态等）。
// fn 中的 panic 在写者协程内捕获，并在调用方协程中重新抛出。
func (s *Serial[S, G]) Do(ctx context.Context, fn func(*Machine[S, G]) error) error {
	reply := make(chan outcome, 1)
	if err := s.enqueue(ctx, request[S, G]{fn: fn, reply: reply}); err != nil {
		return err
	}
	select {
	case out := <-reply:
		return out.unwrap()
	case <-s.doneCh:
		select {
		case out := <-reply:
			return out.unwrap()
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current 经写者协程读取当前状态
func (s *Serial[S, G]) Current(ctx context.Context) (S, error) {
	var cur S
	err := s.Do(ctx, func(m *Machine[S, G]) error {
		cur = m.Current()
		return nil
	})
	return cur, err
}

// QueueLength 返回队列长度
func (s *Serial[S, G]) QueueLength() int {
	return len(s.queue)
}

func (s *Serial[S, G]) enqueue(ctx context.Context, req request[S, G]) error {
	select {
	case <-s.stopCh:
		return ErrStopped
	default:
	}

	select {
	case s.queue <- req:
		return nil
	case <-s.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loop 处理请求队列
func (s *Serial[S, G]) loop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case req := <-s.queue:
			s.handle(req)
		}
	}
}

func (s *Serial[S, G]) handle(req request[S, G]) {
	out := s.run(req.fn)
	if req.reply != nil {
		req.reply <- out
		return
	}

	err := out.err
	if out.panicked {
		err = fmt.Errorf("%w: %v", ErrActionPanic, out.value)
	}
	if err != nil && s.onError != nil {
		s.onError(err)
	}
}

// run 执行一次操作，panic 不会终止写者协程
func (s *Serial[S, G]) run(fn func(*Machine[S, G]) error) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{panicked: true, value: r}
		}
	}()
	return outcome{err: fn(s.m)}
}

func (s *Serial[S, G]) drain() {
	for {
		select {
		case req := <-s.queue:
			if req.reply != nil {
				req.reply <- outcome{err: ErrStopped}
			}
		default:
			return
		}
	}
}
