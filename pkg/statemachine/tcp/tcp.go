// Package tcp 以 RFC 793 图 6 的连接状态图构造状态机
package tcp

import (
	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
)

// State TCP 连接状态
type State uint8

const (
	Closed State = iota
	Listen
	SYNReceived
	SYNSent
	Established
	FINWait1
	Closing
	FINWait2
	TimeWait
	CloseWait
	LastACK
	Error
)

var stateNames = [...]string{
	Closed:      "Closed",
	Listen:      "Listen",
	SYNReceived: "SYNReceived",
	SYNSent:     "SYNSent",
	Established: "Established",
	FINWait1:    "FINWait1",
	Closing:     "Closing",
	FINWait2:    "FINWait2",
	TimeWait:    "TimeWait",
	CloseWait:   "CloseWait",
	LastACK:     "LastACK",
	Error:       "Error",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// ParseState 按名称查找状态
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}

// Signal 驱动连接状态变化的事件
type Signal uint8

const (
	PassiveOpen Signal = iota
	ActiveOpen
	Send
	Close
	Timeout
	RcvSYN
	RcvSYNACK
	RcvACK
	RcvFIN
	RcvFINACK
	RcvRST
)

var signalNames = [...]string{
	PassiveOpen: "PassiveOpen",
	ActiveOpen:  "ActiveOpen",
	Send:        "Send",
	Close:       "Close",
	Timeout:     "Timeout",
	RcvSYN:      "RcvSYN",
	RcvSYNACK:   "RcvSYNACK",
	RcvACK:      "RcvACK",
	RcvFIN:      "RcvFIN",
	RcvFINACK:   "RcvFINACK",
	RcvRST:      "RcvRST",
}

func (g Signal) String() string {
	if int(g) < len(signalNames) {
		return signalNames[g]
	}
	return "Unknown"
}

// ParseSignal 按名称查找信号
func ParseSignal(name string) (Signal, bool) {
	for i, n := range signalNames {
		if n == name {
			return Signal(i), true
		}
	}
	return 0, false
}

// Hook 每次转换提交前调用，返回错误时转换不生效
type Hook func(from State, signal Signal, to State) error

// Machine TCP 状态机
type Machine = statemachine.Machine[State, Signal]

var graph = []struct {
	from   State
	signal Signal
	to     State
}{
	{Closed, PassiveOpen, Listen},
	{Closed, ActiveOpen, SYNSent},

	{Listen, RcvSYN, SYNReceived},
	{Listen, Send, SYNSent},
	{Listen, Close, Closed},

	{SYNReceived, RcvACK, Established},
	{SYNReceived, Close, FINWait1},
	{SYNReceived, RcvRST, Listen},

	{SYNSent, RcvSYN, SYNReceived},
	{SYNSent, RcvSYNACK, Established},
	{SYNSent, Close, Closed},
	{SYNSent, Timeout, Closed},

	{Established, Close, FINWait1},
	{Established, RcvFIN, CloseWait},

	{FINWait1, RcvACK, FINWait2},
	{FINWait1, RcvFIN, Closing},
	{FINWait1, RcvFINACK, TimeWait},
	{FINWait2, RcvFIN, TimeWait},
	{Closing, RcvACK, TimeWait},
	{TimeWait, Timeout, Closed},

	{CloseWait, Close, LastACK},
	{LastACK, RcvACK, Closed},
}

// Descriptor 返回 TCP 状态域与信号域
func Descriptor() *statemachine.Descriptor[State, Signal] {
	d := statemachine.NewDescriptor[State, Signal]()
	for i := range stateNames {
		s := State(i)
		switch s {
		case Closed:
			d.AddState(s, statemachine.RoleStart)
		case Established:
			// 连接已建立即视为接受
			d.AddState(s, statemachine.RoleAccepting)
		case Error:
			d.AddState(s, statemachine.RoleFatalError)
		default:
			d.AddState(s)
		}
	}
	for i := range signalNames {
		d.AddSignals(Signal(i))
	}
	return d
}

// New 创建 TCP 状态机，hook 可为空
func New(name string, hook Hook, opts ...statemachine.Option) (*Machine, error) {
	m, err := statemachine.New(name, Descriptor(), opts...)
	if err != nil {
		return nil, err
	}

	for _, e := range graph {
		var action statemachine.Action
		if hook != nil {
			from, signal, to := e.from, e.signal, e.to
			action = func() error { return hook(from, signal, to) }
		}
		if err := m.AddTransition(e.from, e.signal, action, e.to); err != nil {
			return nil, err
		}
	}
	return m, nil
}
