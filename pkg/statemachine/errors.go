package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration 所有构造期配置错误的根
	ErrConfiguration = fmt.Errorf("invalid state machine configuration")

	// ErrMissingOrDuplicateStart 起始状态缺失或多于一个
	ErrMissingOrDuplicateStart = fmt.Errorf("%w: exactly one start state required", ErrConfiguration)

	// ErrDuplicateFatalError 致命错误状态多于一个
	ErrDuplicateFatalError = fmt.Errorf("%w: duplicate fatal error state", ErrConfiguration)

	// ErrMissingFatalError 未声明致命错误状态，未定义转换没有回退目标
	ErrMissingFatalError = fmt.Errorf("%w: fatal error state required", ErrConfiguration)

	// ErrConflictingRole 状态同时为接受状态与错误状态
	ErrConflictingRole = fmt.Errorf("%w: state is both accepting and error", ErrConfiguration)

	// ErrUnknownRoleState 角色标记指向域外状态
	ErrUnknownRoleState = fmt.Errorf("%w: role tagged state not in domain", ErrConfiguration)

	// ErrUnknownSignal 信号不在声明的信号域内
	ErrUnknownSignal = fmt.Errorf("unknown signal")

	// ErrUnknownState 状态不在声明的状态域内
	ErrUnknownState = fmt.Errorf("unknown state")

	// ErrDuplicateTransition 当转换规则已存在时返回
	ErrDuplicateTransition = fmt.Errorf("duplicate transition")
)

// ActionError 转换动作执行失败，状态未提交
type ActionError struct {
	Machine string
	From    any
	Signal  any
	To      any
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("machine %s: action %v --%v--> %v failed: %v", e.Machine, e.From, e.Signal, e.To, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// IsConfigurationError 判断是否为构造期配置错误
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
