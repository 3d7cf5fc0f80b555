package statemachine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func newSerialToy(t *testing.T, queueSize int, onError func(error)) *Serial[toyState, toySignal] {
	t.Helper()
	m, _ := newToy(t)
	return NewSerial(m, queueSize, onError)
}

func TestSerial_Dispatch(t *testing.T) {
	s := newSerialToy(t, 10, nil)
	s.Start()
	defer s.Stop()

	ctx := context.Background()
	if err := s.Dispatch(ctx, sigHello); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	cur, err := s.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if cur != stMiddle {
		t.Errorf("Expected state %v, got %v", stMiddle, cur)
	}
	if s.Name() != "FSM1" {
		t.Errorf("Name mismatch: %s", s.Name())
	}
}

func TestSerial_SubmitOrdering(t *testing.T) {
	s := newSerialToy(t, 10, nil)
	s.Start()
	defer s.Stop()

	ctx := context.Background()
	_ = s.Submit(ctx, sigHello)
	_ = s.Submit(ctx, sigWorld)

	// Do 排在两次 Submit 之后执行
	var cur toyState
	err := s.Do(ctx, func(m *Machine[toyState, toySignal]) error {
		cur = m.Current()
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if cur != stEnd {
		t.Errorf("Expected state %v, got %v", stEnd, cur)
	}
}

func TestSerial_SubmitErrorCallback(t *testing.T) {
	errCh := make(chan error, 1)
	s := newSerialToy(t, 10, func(err error) { errCh <- err })

	boom := errors.New("boom")
	ctx := context.Background()
	s.Start()
	defer s.Stop()

	err := s.Do(ctx, func(m *Machine[toyState, toySignal]) error {
		return m.AddTransition(stMiddle, sigGoToHell, func() error { return boom }, stStart)
	})
	if err != nil {
		t.Fatalf("AddTransition via Do failed: %v", err)
	}

	_ = s.Submit(ctx, sigHello)
	_ = s.Submit(ctx, sigGoToHell)

	select {
	case got := <-errCh:
		if !errors.Is(got, boom) {
			t.Errorf("Expected boom, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("error callback not invoked")
	}

	cur, _ := s.Current(ctx)
	if cur != stMiddle {
		t.Errorf("failed action must not commit, got %v", cur)
	}
}

func TestSerial_ContextCancellation(t *testing.T) {
	s := newSerialToy(t, 0, nil) // 未启动且无缓冲，投递会阻塞

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Dispatch(ctx, sigHello); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSerial_Stopped(t *testing.T) {
	s := newSerialToy(t, 4, nil)
	_ = s.Submit(context.Background(), sigHello)
	if s.QueueLength() != 1 {
		t.Errorf("Expected queue length 1, got %d", s.QueueLength())
	}

	s.Start()
	s.Stop()
	s.Stop()

	if err := s.Dispatch(context.Background(), sigHello); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}

func TestSerial_ConcurrentWriters(t *testing.T) {
	d := NewDescriptor[int, string]().
		AddState(0, RoleStart).
		AddState(1).
		AddState(-1, RoleFatalError).
		AddSignals("flip")
	m, err := New("flipper", d)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	flips := 0
	_ = m.AddTransition(0, "flip", func() error { flips++; return nil }, 1)
	_ = m.AddTransition(1, "flip", func() error { flips++; return nil }, 0)

	s := NewSerial(m, 16, nil)
	s.Start()
	defer s.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Dispatch(context.Background(), "flip")
		}()
	}
	wg.Wait()

	cur, _ := s.Current(context.Background())
	if flips != 100 || cur != 0 {
		t.Errorf("Expected 100 flips ending in 0, got %d flips ending in %d", flips, cur)
	}
}

func TestSerial_DispatchPanicReraised(t *testing.T) {
	s := newSerialToy(t, 10, nil)
	s.Start()
	defer s.Stop()

	ctx := context.Background()
	err := s.Do(ctx, func(m *Machine[toyState, toySignal]) error {
		return m.AddTransition(stMiddle, sigGoToHell, func() error { panic("kaboom") }, stEnd)
	})
	if err != nil {
		t.Fatalf("AddTransition via Do failed: %v", err)
	}
	if err := s.Dispatch(ctx, sigHello); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	recovered := func() (r any) {
		defer func() { r = recover() }()
		_ = s.Dispatch(ctx, sigGoToHell)
		return nil
	}()
	if recovered != "kaboom" {
		t.Fatalf("Expected panic kaboom on caller, got %v", recovered)
	}

	// 写者协程仍在运行，且状态未提交
	cur, err := s.Current(ctx)
	if err != nil {
		t.Fatalf("Current after panic failed: %v", err)
	}
	if cur != stMiddle {
		t.Errorf("panicking action must not commit, got %v", cur)
	}
	if err := s.Dispatch(ctx, sigWorld); err != nil {
		t.Errorf("Dispatch after panic failed: %v", err)
	}
}

func TestSerial_SubmitPanicCallback(t *testing.T) {
	errCh := make(chan error, 1)
	s := newSerialToy(t, 10, func(err error) { errCh <- err })
	s.Start()
	defer s.Stop()

	ctx := context.Background()
	_ = s.Do(ctx, func(m *Machine[toyState, toySignal]) error {
		return m.AddTransition(stMiddle, sigGoToHell, func() error { panic("kaboom") }, stEnd)
	})
	_ = s.Submit(ctx, sigHello)
	_ = s.Submit(ctx, sigGoToHell)

	select {
	case got := <-errCh:
		if !errors.Is(got, ErrActionPanic) || !strings.Contains(got.Error(), "kaboom") {
			t.Errorf("Expected ErrActionPanic carrying kaboom, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("error callback not invoked")
	}

	cur, err := s.Current(ctx)
	if err != nil || cur != stMiddle {
		t.Errorf("Expected %v after panic, got %v (%v)", stMiddle, cur, err)
	}
}
