package statemachine

import "github.com/junbin-yang/go-fsmkit/pkg/logger"

// Option 状态机构造选项
type Option func(*options)

type options struct {
	observers []Observer
}

// WithObserver 添加分发观测者
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithLogger 通过日志记录每次分发结果
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.observers = append(o.observers, &logObserver{l: l})
		}
	}
}
