package statemachine

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/junbin-yang/go-fsmkit/pkg/logger"
)

type toyState int

const (
	stStart toyState = iota
	stMiddle
	stEnd
	stError
)

type toySignal int

const (
	sigHello toySignal = iota
	sigWorld
	sigGoToHell
)

func toyDescriptor() *Descriptor[toyState, toySignal] {
	return NewDescriptor[toyState, toySignal]().
		AddState(stStart, RoleStart).
		AddState(stMiddle).
		AddState(stEnd, RoleAccepting).
		AddState(stError, RoleFatalError).
		AddSignals(sigHello, sigWorld, sigGoToHell)
}

// counter 记录动作调用次数
type counter struct {
	calls map[string]int
}

func (c *counter) action(name string) Action {
	return func() error {
		c.calls[name]++
		return nil
	}
}

func newToy(t *testing.T, opts ...Option) (*Machine[toyState, toySignal], *counter) {
	t.Helper()
	m, err := New("FSM1", toyDescriptor(), opts...)
	if err != nil {
		t.Fatalf("创建状态机失败: %v", err)
	}
	c := &counter{calls: make(map[string]int)}
	if err := m.AddTransition(stStart, sigHello, c.action("hello"), stMiddle); err != nil {
		t.Fatalf("添加转换失败: %v", err)
	}
	if err := m.AddTransition(stMiddle, sigWorld, c.action("world"), stEnd); err != nil {
		t.Fatalf("添加转换失败: %v", err)
	}
	return m, c
}

func TestMachine_ToyScenario(t *testing.T) {
	m, c := newToy(t)

	if m.Current() != stStart {
		t.Fatalf("初始状态错误: got %v, want %v", m.Current(), stStart)
	}

	if err := m.ProcessSignal(sigHello); err != nil {
		t.Fatalf("处理信号失败: %v", err)
	}
	if m.Current() != stMiddle {
		t.Errorf("状态转换失败: got %v, want %v", m.Current(), stMiddle)
	}
	if c.calls["hello"] != 1 {
		t.Errorf("动作应执行一次: got %d", c.calls["hello"])
	}

	if err := m.ProcessSignal(sigGoToHell); err != nil {
		t.Fatalf("未定义转换不应返回错误: %v", err)
	}
	if m.Current() != stError {
		t.Errorf("未定义转换应进入致命错误状态: got %v", m.Current())
	}
	if !m.InErrorState() {
		t.Error("应处于错误状态")
	}

	if err := m.ProcessSignal(sigHello); err != nil {
		t.Fatalf("错误状态下不应返回错误: %v", err)
	}
	if m.Current() != stError {
		t.Errorf("错误状态应吸收信号: got %v", m.Current())
	}
	if c.calls["hello"] != 1 {
		t.Errorf("错误状态下不应执行动作: got %d", c.calls["hello"])
	}
}

func TestMachine_ReachAccepting(t *testing.T) {
	m, c := newToy(t)
	_ = m.ProcessSignal(sigHello)
	_ = m.ProcessSignal(sigWorld)

	if m.Current() != stEnd || !m.InAcceptingState() {
		t.Errorf("应处于接受状态: got %v", m.Current())
	}
	if m.InErrorState() {
		t.Error("接受状态不是错误状态")
	}
	if c.calls["world"] != 1 {
		t.Errorf("world 动作调用次数错误: %d", c.calls["world"])
	}
}

func TestMachine_AcceptingIsNotAbsorbing(t *testing.T) {
	m, c := newToy(t)
	if err := m.AddTransition(stEnd, sigHello, c.action("again"), stMiddle); err != nil {
		t.Fatalf("添加转换失败: %v", err)
	}
	_ = m.ProcessSignal(sigHello)
	_ = m.ProcessSignal(sigWorld)
	_ = m.ProcessSignal(sigHello)

	if m.Current() != stMiddle {
		t.Errorf("应能离开接受状态: got %v", m.Current())
	}
	if c.calls["again"] != 1 {
		t.Errorf("again 动作调用次数错误: %d", c.calls["again"])
	}
}

func TestMachine_IndependentErrorStateAbsorbs(t *testing.T) {
	d := toyDescriptor()
	d.AddState(toyState(99), RoleError)

	m, err := New("", d)
	if err != nil {
		t.Fatalf("创建状态机失败: %v", err)
	}
	calls := 0
	_ = m.AddTransition(stStart, sigHello, nil, toyState(99))
	_ = m.AddTransition(toyState(99), sigWorld, func() error { calls++; return nil }, stStart)

	_ = m.ProcessSignal(sigHello)
	_ = m.ProcessSignal(sigWorld)

	if m.Current() != toyState(99) {
		t.Errorf("普通错误状态也应吸收信号: got %v", m.Current())
	}
	if calls != 0 {
		t.Error("错误状态下的动作不应执行")
	}
	if m.Can(sigWorld) {
		t.Error("错误状态下 Can 应返回 false")
	}
}

func TestMachine_ActionFailureDoesNotCommit(t *testing.T) {
	m, err := New("failing", toyDescriptor())
	if err != nil {
		t.Fatalf("创建状态机失败: %v", err)
	}
	boom := errors.New("boom")
	calls := 0
	_ = m.AddTransition(stStart, sigHello, func() error {
		calls++
		return boom
	}, stMiddle)

	err = m.ProcessSignal(sigHello)
	if !errors.Is(err, boom) {
		t.Fatalf("期望动作错误传播, got %v", err)
	}
	var aerr *ActionError
	if !errors.As(err, &aerr) || aerr.Machine != "failing" || aerr.From != stStart || aerr.To != stMiddle {
		t.Errorf("ActionError 内容错误: %+v", aerr)
	}
	if m.Current() != stStart {
		t.Errorf("动作失败时状态不应改变: got %v", m.Current())
	}
	if calls != 1 {
		t.Errorf("动作应执行一次: got %d", calls)
	}
}

func TestMachine_ActionPanicDoesNotCommit(t *testing.T) {
	m, _ := New("panicking", toyDescriptor())
	_ = m.AddTransition(stStart, sigHello, func() error { panic("kaboom") }, stMiddle)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("动作 panic 应传播给调用方")
			}
		}()
		_ = m.ProcessSignal(sigHello)
	}()

	if m.Current() != stStart {
		t.Errorf("动作 panic 时状态不应改变: got %v", m.Current())
	}
}

func TestMachine_NilActionIsNoop(t *testing.T) {
	m, _ := New("nil-action", toyDescriptor())
	_ = m.AddTransition(stStart, sigHello, nil, stMiddle)
	if err := m.ProcessSignal(sigHello); err != nil {
		t.Fatalf("处理信号失败: %v", err)
	}
	if m.Current() != stMiddle {
		t.Errorf("got %v, want %v", m.Current(), stMiddle)
	}
}

func TestMachine_AddTransitionErrors(t *testing.T) {
	m, c := newToy(t)

	if err := m.AddTransition(stStart, toySignal(42), nil, stMiddle); !errors.Is(err, ErrUnknownSignal) {
		t.Errorf("期望 ErrUnknownSignal, got %v", err)
	}
	if err := m.AddTransition(toyState(42), sigHello, nil, stMiddle); !errors.Is(err, ErrUnknownState) {
		t.Errorf("期望 ErrUnknownState (source), got %v", err)
	}
	if err := m.AddTransition(stMiddle, sigHello, nil, toyState(42)); !errors.Is(err, ErrUnknownState) {
		t.Errorf("期望 ErrUnknownState (target), got %v", err)
	}
	if _, ok := m.Lookup(stStart, toySignal(42)); ok {
		t.Error("失败的注册不应修改转换表")
	}

	err := m.AddTransition(stStart, sigHello, c.action("replacement"), stEnd)
	if !errors.Is(err, ErrDuplicateTransition) {
		t.Errorf("期望 ErrDuplicateTransition, got %v", err)
	}
	tr, ok := m.Lookup(stStart, sigHello)
	if !ok || tr.To != stMiddle {
		t.Errorf("原转换应保持不变: %+v", tr)
	}

	_ = m.ProcessSignal(sigHello)
	if c.calls["replacement"] != 0 || c.calls["hello"] != 1 {
		t.Errorf("应执行原动作: %v", c.calls)
	}
}

func TestMachine_ConstructionFailure(t *testing.T) {
	d := NewDescriptor[toyState, toySignal]().AddState(stStart, RoleStart).AddState(stEnd)
	m, err := New("bad", d)
	if !errors.Is(err, ErrMissingFatalError) {
		t.Errorf("期望 ErrMissingFatalError, got %v", err)
	}
	if m != nil {
		t.Error("构造失败时不应返回状态机")
	}
}

func TestMachine_Observers(t *testing.T) {
	m, _ := newToy(t)
	if m.Name() != "FSM1" {
		t.Errorf("名称错误: %s", m.Name())
	}
	if m.StartState() != stStart || m.FatalErrorState() != stError {
		t.Error("起始/致命错误状态错误")
	}
	if got := m.AcceptingStates(); len(got) != 1 || got[0] != stEnd {
		t.Errorf("接受状态错误: %v", got)
	}
	if got := m.ErrorStates(); len(got) != 1 || got[0] != stError {
		t.Errorf("错误状态错误: %v", got)
	}
	if got := m.States(); len(got) != 4 {
		t.Errorf("状态域错误: %v", got)
	}
	if got := m.Signals(); len(got) != 3 || got[2] != sigGoToHell {
		t.Errorf("信号域错误: %v", got)
	}
	if !m.Can(sigHello) || m.Can(sigWorld) {
		t.Error("Can 结果错误")
	}
	trs := m.Transitions()
	if len(trs) != 2 || trs[0].From != stStart || trs[1].From != stMiddle {
		t.Errorf("转换列表错误: %+v", trs)
	}

	// 返回副本，修改不影响状态机
	acc := m.AcceptingStates()
	acc[0] = stError
	if m.AcceptingStates()[0] != stEnd {
		t.Error("AcceptingStates 应返回副本")
	}
}

func TestMachine_DefaultNameIsUUID(t *testing.T) {
	m1, _ := New("", toyDescriptor())
	m2, _ := New("", toyDescriptor())
	if len(m1.Name()) != 36 || m1.Name() == m2.Name() {
		t.Errorf("缺省名称应为随机 UUID: %q %q", m1.Name(), m2.Name())
	}
}

func TestMachine_Reset(t *testing.T) {
	m, _ := newToy(t)
	_ = m.ProcessSignal(sigGoToHell)
	if !m.InErrorState() {
		t.Fatal("应处于错误状态")
	}
	m.Reset()
	if m.Current() != stStart {
		t.Errorf("重置后状态错误: got %v", m.Current())
	}
}

func TestMachine_StateAlwaysInDomain(t *testing.T) {
	m, _ := newToy(t)
	domain := map[toyState]bool{}
	for _, s := range m.States() {
		domain[s] = true
	}

	seq := []toySignal{sigHello, sigWorld, sigHello, toySignal(7), sigGoToHell, sigWorld}
	for _, sig := range seq {
		_ = m.ProcessSignal(sig)
		if !domain[m.Current()] {
			t.Fatalf("当前状态越出状态域: %v", m.Current())
		}
	}
}

func TestMachine_ObserverEvents(t *testing.T) {
	var events []Event
	m, _ := newToy(t, WithObserver(ObserverFunc(func(ev Event) {
		events = append(events, ev)
	})))
	_ = m.AddTransition(stEnd, sigGoToHell, func() error { return errors.New("nope") }, stStart)

	_ = m.ProcessSignal(sigHello)
	_ = m.ProcessSignal(sigWorld)
	_ = m.ProcessSignal(sigGoToHell)
	_ = m.ProcessSignal(sigHello)
	m.Reset()
	_ = m.ProcessSignal(sigWorld)
	_ = m.ProcessSignal(sigHello)

	want := []EventKind{
		EventReset,
		EventTransition, EventTransition, EventActionFailed, EventFallback,
		EventReset,
		EventFallback, EventIgnored,
	}
	if len(events) != len(want) {
		t.Fatalf("事件数量错误: got %d, want %d (%+v)", len(events), len(want), events)
	}
	for i, k := range want {
		if events[i].Kind != k {
			t.Errorf("事件 %d: got %v, want %v", i, events[i].Kind, k)
		}
		if events[i].Machine != "FSM1" {
			t.Errorf("事件 %d 名称错误: %s", i, events[i].Machine)
		}
	}
	if events[0].From != stStart || events[0].To != stStart {
		t.Errorf("构造事件内容错误: %+v", events[0])
	}
	if events[4].From != stEnd || events[4].To != stError {
		t.Errorf("回退事件内容错误: %+v", events[4])
	}
	if events[5].From != stError || events[5].To != stStart {
		t.Errorf("重置事件内容错误: %+v", events[5])
	}
}

func TestMachine_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, logger.DebugLevel)
	m, _ := newToy(t, WithLogger(l))

	_ = m.ProcessSignal(sigHello)
	_ = m.ProcessSignal(sigGoToHell)
	_ = l.Sync()

	out := buf.String()
	if !strings.Contains(out, "state transition") {
		t.Errorf("缺少转换日志: %q", out)
	}
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "falling back") {
		t.Errorf("缺少回退告警: %q", out)
	}
}
