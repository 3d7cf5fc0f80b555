package statemachine

import "github.com/google/uuid"

// Machine 基于封闭状态域与信号域的有限状态机。
//
// Machine 不做任何内部加锁：同一实例的 AddTransition 与 ProcessSignal
// 必须由单一调用方串行执行，需要跨协程共享时使用 Serial。
// 动作内不得对同一实例再次调用 ProcessSignal。
type Machine[S, G comparable] struct {
	name      string
	class     *Classification[S]
	table     *transitionTable[S, G]
	current   S
	observers []Observer
}

// New 校验域描述并创建状态机，当前状态初始化为起始状态。
// name 为空时使用随机 UUID。
func New[S, G comparable](name string, d *Descriptor[S, G], opts ...Option) (*Machine[S, G], error) {
	class, err := Classify(d)
	if err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if name == "" {
		name = uuid.NewString()
	}

	m := &Machine[S, G]{
		name:      name,
		class:     class,
		table:     newTransitionTable[S, G](),
		current:   class.Start,
		observers: o.observers,
	}
	for _, sig := range d.Signals {
		m.table.declareSignal(sig)
	}

	var none G
	m.notify(EventReset, m.current, none, m.current, nil)
	return m, nil
}

// AddTransition 添加状态转换规则
func (m *Machine[S, G]) AddTransition(from S, signal G, action Action, to S) error {
	return m.table.add(Transition[S, G]{
		From:   from,
		Signal: signal,
		To:     to,
		Action: action,
	}, m.class.Contains)
}

// ProcessSignal 处理输入信号。
//
// 错误状态吸收一切信号；找到转换时先执行动作，动作成功后才提交目标状态；
// 未定义的转换静默回退到致命错误状态。唯一的返回错误来自动作本身，
// 此时当前状态保持不变。
func (m *Machine[S, G]) ProcessSignal(signal G) error {
	from := m.current

	if m.class.IsError(from) {
		m.notify(EventIgnored, from, signal, from, nil)
		return nil
	}

	tr, ok := m.table.lookup(from, signal)
	if !ok {
		m.current = m.class.Fatal
		m.notify(EventFallback, from, signal, m.current, nil)
		return nil
	}

	if tr.Action != nil {
		if err := tr.Action(); err != nil {
			m.notify(EventActionFailed, from, signal, tr.To, err)
			return &ActionError{Machine: m.name, From: from, Signal: signal, To: tr.To, Err: err}
		}
	}

	m.current = tr.To
	m.notify(EventTransition, from, signal, tr.To, nil)
	return nil
}

func (m *Machine[S, G]) notify(kind EventKind, from S, signal G, to S, err error) {
	if len(m.observers) == 0 {
		return
	}
	ev := Event{Machine: m.name, Kind: kind, From: from, Signal: signal, To: to, Err: err}
	for _, obs := range m.observers {
		obs.Observe(ev)
	}
}

// Reset 重置到起始状态
func (m *Machine[S, G]) Reset() {
	from := m.current
	m.current = m.class.Start

	var none G
	m.notify(EventReset, from, none, m.current, nil)
}

// Name 返回状态机名称
func (m *Machine[S, G]) Name() string { return m.name }

// Current 返回当前状态
func (m *Machine[S, G]) Current() S { return m.current }

// StartState 返回起始状态
func (m *Machine[S, G]) StartState() S { return m.class.Start }

// FatalErrorState 返回致命错误状态
func (m *Machine[S, G]) FatalErrorState() S { return m.class.Fatal }

// AcceptingStates 按声明顺序返回全部接受状态
func (m *Machine[S, G]) AcceptingStates() []S {
	return append([]S(nil), m.class.Accepting...)
}

// ErrorStates 按声明顺序返回全部错误状态，包含致命错误状态
func (m *Machine[S, G]) ErrorStates() []S {
	return append([]S(nil), m.class.Errors...)
}

// Role 返回状态的角色
func (m *Machine[S, G]) Role(s S) Role { return m.class.Role(s) }

// InAcceptingState 当前是否处于接受状态
func (m *Machine[S, G]) InAcceptingState() bool {
	return m.class.IsAccepting(m.current)
}

// InErrorState 当前是否处于错误状态
func (m *Machine[S, G]) InErrorState() bool {
	return m.class.IsError(m.current)
}

// States 按声明顺序返回状态域
func (m *Machine[S, G]) States() []S {
	return m.class.States()
}

// Signals 按声明顺序返回信号域
func (m *Machine[S, G]) Signals() []G {
	return append([]G(nil), m.table.order...)
}

// Can 当前状态下该信号是否有已注册的转换
func (m *Machine[S, G]) Can(signal G) bool {
	if m.class.IsError(m.current) {
		return false
	}
	_, ok := m.table.lookup(m.current, signal)
	return ok
}

// Lookup 查询转换规则
func (m *Machine[S, G]) Lookup(from S, signal G) (Transition[S, G], bool) {
	tr, ok := m.table.lookup(from, signal)
	if !ok {
		return Transition[S, G]{}, false
	}
	return *tr, true
}

// Transitions 按状态与信号的声明顺序返回全部转换规则
func (m *Machine[S, G]) Transitions() []Transition[S, G] {
	out := make([]Transition[S, G], 0, m.table.len())
	for _, s := range m.class.states {
		for _, g := range m.table.order {
			if tr, ok := m.table.lookup(s, g); ok {
				out = append(out, *tr)
			}
		}
	}
	return out
}
