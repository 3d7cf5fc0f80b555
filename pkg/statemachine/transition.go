package statemachine

import "fmt"

// Transition 定义状态转换规则
type Transition[S, G comparable] struct {
	From   S      // 源状态
	Signal G      // 触发信号
	To     S      // 目标状态
	Action Action // 转换动作
}

// transitionKey 唯一标识一个转换
type transitionKey[S, G comparable] struct {
	from   S
	signal G
}

// transitionTable 转换表，每个 (源状态, 信号) 至多一条规则
type transitionTable[S, G comparable] struct {
	signals map[G]struct{}
	order   []G
	rows    map[transitionKey[S, G]]*Transition[S, G]
}

func newTransitionTable[S, G comparable]() *transitionTable[S, G] {
	return &transitionTable[S, G]{
		signals: make(map[G]struct{}),
		rows:    make(map[transitionKey[S, G]]*Transition[S, G]),
	}
}

// declareSignal 将信号登记到合法信号域，重复登记无副作用
func (t *transitionTable[S, G]) declareSignal(signal G) {
	if _, ok := t.signals[signal]; ok {
		return
	}
	t.signals[signal] = struct{}{}
	t.order = append(t.order, signal)
}

func (t *transitionTable[S, G]) hasSignal(signal G) bool {
	_, ok := t.signals[signal]
	return ok
}

// add 校验并插入转换，失败时不修改表
func (t *transitionTable[S, G]) add(tr Transition[S, G], inDomain func(S) bool) error {
	if !t.hasSignal(tr.Signal) {
		return fmt.Errorf("%w: %v", ErrUnknownSignal, tr.Signal)
	}
	if !inDomain(tr.From) {
		return fmt.Errorf("%w: source %v", ErrUnknownState, tr.From)
	}
	if !inDomain(tr.To) {
		return fmt.Errorf("%w: target %v", ErrUnknownState, tr.To)
	}

	key := transitionKey[S, G]{from: tr.From, signal: tr.Signal}
	if _, exists := t.rows[key]; exists {
		return fmt.Errorf("%w: %v --%v-->", ErrDuplicateTransition, tr.From, tr.Signal)
	}

	t.rows[key] = &tr
	return nil
}

func (t *transitionTable[S, G]) lookup(from S, signal G) (*Transition[S, G], bool) {
	tr, ok := t.rows[transitionKey[S, G]{from: from, signal: signal}]
	return tr, ok
}

func (t *transitionTable[S, G]) len() int {
	return len(t.rows)
}
