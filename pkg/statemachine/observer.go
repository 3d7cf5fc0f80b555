package statemachine

import "github.com/junbin-yang/go-fsmkit/pkg/logger"

// EventKind 分发结果类型
type EventKind uint8

const (
	// EventTransition 找到转换，动作成功，状态已提交
	EventTransition EventKind = iota
	// EventFallback 未定义转换，回退到致命错误状态
	EventFallback
	// EventIgnored 当前处于错误状态，信号被吸收
	EventIgnored
	// EventActionFailed 动作失败，状态未提交
	EventActionFailed
	// EventReset 进入起始状态：构造完成时发出一次，之后每次 Reset 发出，Signal 为零值
	EventReset
)

func (k EventKind) String() string {
	switch k {
	case EventTransition:
		return "transition"
	case EventFallback:
		return "fallback"
	case EventIgnored:
		return "ignored"
	case EventActionFailed:
		return "action_failed"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event 一次信号分发的观测记录
type Event struct {
	Machine string
	Kind    EventKind
	From    any
	Signal  any
	To      any
	Err     error
}

// Observer 分发观测者，在 ProcessSignal 返回前同步调用
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc 函数形式的观测者
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

type logObserver struct {
	l logger.Logger
}

func (o *logObserver) Observe(ev Event) {
	fields := []logger.Field{
		logger.String("machine", ev.Machine),
		logger.Any("from", ev.From),
		logger.Any("signal", ev.Signal),
	}
	switch ev.Kind {
	case EventTransition:
		o.l.Debug("state transition", append(fields, logger.Any("to", ev.To))...)
	case EventFallback:
		o.l.Warn("undefined transition, falling back to fatal error state", append(fields, logger.Any("to", ev.To))...)
	case EventIgnored:
		o.l.Debug("signal ignored in error state", fields...)
	case EventActionFailed:
		o.l.Error("transition action failed", append(fields, logger.Any("to", ev.To), logger.Err(ev.Err))...)
	case EventReset:
		o.l.Debug("state reset", logger.String("machine", ev.Machine), logger.Any("from", ev.From), logger.Any("to", ev.To))
	}
}
