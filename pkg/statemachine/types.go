package statemachine

import "strings"

// Role 状态角色标记，可按位组合
type Role uint8

const (
	// RoleStart 起始状态，每台状态机有且仅有一个
	RoleStart Role = 1 << iota
	// RoleAccepting 接受状态（成功结果），不吸收信号
	RoleAccepting
	// RoleError 错误状态，进入后吸收所有信号
	RoleError
	// RoleFatalError 致命错误状态，未定义转换的回退目标
	RoleFatalError
)

var roleNames = []struct {
	role Role
	name string
}{
	{RoleStart, "start"},
	{RoleAccepting, "accepting"},
	{RoleError, "error"},
	{RoleFatalError, "fatal_error"},
}

// Has 判断是否包含指定角色
func (r Role) Has(role Role) bool {
	return r&role == role && role != 0
}

func (r Role) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	for _, rn := range roleNames {
		if r.Has(rn.role) {
			parts = append(parts, rn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseRole 将角色名称解析为 Role
func ParseRole(name string) (Role, bool) {
	for _, rn := range roleNames {
		if rn.name == name {
			return rn.role, true
		}
	}
	return 0, false
}

// Action 转换时同步执行的副作用，返回错误时转换不提交
type Action func() error

// Descriptor 状态机的封闭域描述：全部状态、全部信号及状态角色
type Descriptor[S, G comparable] struct {
	States  []S
	Signals []G
	Roles   map[S]Role
}

// NewDescriptor 创建空的域描述
func NewDescriptor[S, G comparable]() *Descriptor[S, G] {
	return &Descriptor[S, G]{Roles: make(map[S]Role)}
}

// AddState 声明状态并附加角色
func (d *Descriptor[S, G]) AddState(state S, roles ...Role) *Descriptor[S, G] {
	if d.Roles == nil {
		d.Roles = make(map[S]Role)
	}
	d.States = append(d.States, state)
	for _, r := range roles {
		d.Roles[state] |= r
	}
	return d
}

// AddSignals 声明信号
func (d *Descriptor[S, G]) AddSignals(signals ...G) *Descriptor[S, G] {
	d.Signals = append(d.Signals, signals...)
	return d
}
