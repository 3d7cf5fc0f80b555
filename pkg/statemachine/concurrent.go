package statemachine

import (
	"context"
	"fmt"
	"sync"
)

var (
	// ErrMachineNotFound 状态机不存在
	ErrMachineNotFound = fmt.Errorf("machine not found")

	// ErrMachineExists 同名状态机已存在
	ErrMachineExists = fmt.Errorf("machine already exists")
)

// Group 按名称管理多台状态机，每台由独立的 Serial 串行驱动
type Group[S, G comparable] struct {
	mu        sync.RWMutex
	machines  map[string]*Serial[S, G]
	queueSize int
	onError   func(name string, err error)
}

// NewGroup 创建状态机组
func NewGroup[S, G comparable](queueSize int, onError func(name string, err error)) *Group[S, G] {
	return &Group[S, G]{
		machines:  make(map[string]*Serial[S, G]),
		queueSize: queueSize,
		onError:   onError,
	}
}

// Add 以状态机名称加入组并启动其写者协程
func (g *Group[S, G]) Add(m *Machine[S, G]) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	name := m.Name()
	if _, exists := g.machines[name]; exists {
		return fmt.Errorf("%w: %s", ErrMachineExists, name)
	}

	var onError func(error)
	if g.onError != nil {
		onError = func(err error) { g.onError(name, err) }
	}
	s := NewSerial(m, g.queueSize, onError)
	s.Start()
	g.machines[name] = s
	return nil
}

// Remove 移除并停止状态机
func (g *Group[S, G]) Remove(name string) {
	g.mu.Lock()
	s, exists := g.machines[name]
	delete(g.machines, name)
	g.mu.Unlock()

	if exists {
		s.Stop()
	}
}

// Get 获取状态机的分发器
func (g *Group[S, G]) Get(name string) (*Serial[S, G], bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, exists := g.machines[name]
	return s, exists
}

// Dispatch 向指定状态机投递信号
func (g *Group[S, G]) Dispatch(ctx context.Context, name string, signal G) error {
	s, exists := g.Get(name)
	if !exists {
		return fmt.Errorf("%w: %s", ErrMachineNotFound, name)
	}
	return s.Dispatch(ctx, signal)
}

// Broadcast 向所有状态机并发投递相同信号
func (g *Group[S, G]) Broadcast(ctx context.Context, signal G) map[string]error {
	machines := g.snapshot()

	results := make(map[string]error, len(machines))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, s := range machines {
		wg.Add(1)
		go func(n string, s *Serial[S, G]) {
			defer wg.Done()
			err := s.Dispatch(ctx, signal)
			mu.Lock()
			results[n] = err
			mu.Unlock()
		}(name, s)
	}

	wg.Wait()
	return results
}

// States 获取所有状态机的当前状态
func (g *Group[S, G]) States(ctx context.Context) (map[string]S, error) {
	machines := g.snapshot()

	states := make(map[string]S, len(machines))
	for name, s := range machines {
		cur, err := s.Current(ctx)
		if err != nil {
			return nil, fmt.Errorf("machine %s: %w", name, err)
		}
		states[name] = cur
	}
	return states, nil
}

// Count 返回状态机数量
func (g *Group[S, G]) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.machines)
}

// Close 停止并移除全部状态机
func (g *Group[S, G]) Close() {
	g.mu.Lock()
	machines := g.machines
	g.machines = make(map[string]*Serial[S, G])
	g.mu.Unlock()

	for _, s := range machines {
		s.Stop()
	}
}

func (g *Group[S, G]) snapshot() map[string]*Serial[S, G] {
	g.mu.RLock()
	defer g.mu.RUnlock()
	machines := make(map[string]*Serial[S, G], len(g.machines))
	for name, s := range g.machines {
		machines[name] = s
	}
	return machines
}
