// Package definition 以声明式表格（YAML/JSON）描述状态机，
// 并将其构造为 statemachine.Machine[string, string]。
//
//	name: toy
//	states:
//	  - {name: Start, roles: [start]}
//	  - {name: Middle}
//	  - {name: End, roles: [accepting]}
//	  - {name: Error, roles: [fatal_error]}
//	signals: [Hello, World, GoToHell]
//	transitions:
//	  - {from: Start, signal: Hello, action: log, to: Middle}
//	  - {from: Middle, signal: World, action: log, to: End}
package definition

import (
	"fmt"
	"os"

	"github.com/junbin-yang/go-fsmkit/pkg/config"
	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
)

var (
	// ErrUnknownRole 角色名称无法识别
	ErrUnknownRole = fmt.Errorf("unknown role")

	// ErrUnknownAction 动作名称未在注册表中
	ErrUnknownAction = fmt.Errorf("unknown action")
)

// State 状态声明
type State struct {
	Name  string   `yaml:"name" json:"name"`
	Roles []string `yaml:"roles,omitempty" json:"roles,omitempty"`
}

// Transition 转换声明，Action 为注册表中的动作名称，为空表示无动作
type Transition struct {
	From   string `yaml:"from" json:"from"`
	Signal string `yaml:"signal" json:"signal"`
	Action string `yaml:"action,omitempty" json:"action,omitempty"`
	To     string `yaml:"to" json:"to"`
}

// Definition 状态机的声明式描述
type Definition struct {
	Name        string       `yaml:"name" json:"name"`
	States      []State      `yaml:"states" json:"states"`
	Signals     []string     `yaml:"signals" json:"signals"`
	Transitions []Transition `yaml:"transitions" json:"transitions"`
}

// Registry 动作名称到动作的映射
type Registry map[string]statemachine.Action

// Load 读取定义文件，格式由后缀决定
func Load(path string) (*Definition, error) {
	s, err := config.SerializerFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition failed: %w", err)
	}
	return Parse(data, s)
}

// Parse 用指定序列化器解析定义
func Parse(data []byte, s config.Serializer) (*Definition, error) {
	def := &Definition{}
	if err := s.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("unmarshal definition failed (%s): %w", s.GetName(), err)
	}
	return def, nil
}

// Descriptor 转换为域描述
func (def *Definition) Descriptor() (*statemachine.Descriptor[string, string], error) {
	d := statemachine.NewDescriptor[string, string]()
	for _, st := range def.States {
		roles := make([]statemachine.Role, 0, len(st.Roles))
		for _, name := range st.Roles {
			r, ok := statemachine.ParseRole(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q on state %s", ErrUnknownRole, name, st.Name)
			}
			roles = append(roles, r)
		}
		d.AddState(st.Name, roles...)
	}
	d.AddSignals(def.Signals...)
	return d, nil
}

// ActionNames 返回定义中引用的全部动作名称（去重，按出现顺序）
func (def *Definition) ActionNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, tr := range def.Transitions {
		if tr.Action == "" || seen[tr.Action] {
			continue
		}
		seen[tr.Action] = true
		names = append(names, tr.Action)
	}
	return names
}

// Build 构造状态机并注册全部转换
func Build(def *Definition, actions Registry, opts ...statemachine.Option) (*statemachine.Machine[string, string], error) {
	d, err := def.Descriptor()
	if err != nil {
		return nil, err
	}

	m, err := statemachine.New(def.Name, d, opts...)
	if err != nil {
		return nil, err
	}

	for i, tr := range def.Transitions {
		var action statemachine.Action
		if tr.Action != "" {
			a, ok := actions[tr.Action]
			if !ok {
				return nil, fmt.Errorf("transition #%d: %w: %q", i, ErrUnknownAction, tr.Action)
			}
			action = a
		}
		if err := m.AddTransition(tr.From, tr.Signal, action, tr.To); err != nil {
			return nil, fmt.Errorf("transition #%d: %w", i, err)
		}
	}
	return m, nil
}
