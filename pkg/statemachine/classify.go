package statemachine

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Classification 由域描述推导出的角色分类，构造后不可变
type Classification[S comparable] struct {
	Start     S
	Fatal     S
	Accepting []S
	Errors    []S

	states    []S
	roles     map[S]Role
	domain    map[S]struct{}
	accepting map[S]struct{}
	errors    map[S]struct{}
}

// Classify 校验域描述并生成角色分类。
// 一次性报告全部配置缺陷，每个缺陷均可用 errors.Is 匹配对应的哨兵错误。
func Classify[S, G comparable](d *Descriptor[S, G]) (*Classification[S], error) {
	c := &Classification[S]{
		roles:     make(map[S]Role, len(d.States)),
		domain:    make(map[S]struct{}, len(d.States)),
		accepting: make(map[S]struct{}),
		errors:    make(map[S]struct{}),
	}

	var (
		result *multierror.Error
		starts []S
		fatals []S
	)

	for _, s := range d.States {
		if _, dup := c.domain[s]; dup {
			continue
		}
		c.domain[s] = struct{}{}
		c.states = append(c.states, s)

		role := d.Roles[s]
		c.roles[s] = role
		if role.Has(RoleStart) {
			starts = append(starts, s)
		}
		if role.Has(RoleFatalError) {
			fatals = append(fatals, s)
		}
		if role.Has(RoleAccepting) && (role.Has(RoleError) || role.Has(RoleFatalError)) {
			result = multierror.Append(result, fmt.Errorf("%w: %v (%s)", ErrConflictingRole, s, role))
			continue
		}
		if role.Has(RoleAccepting) {
			c.accepting[s] = struct{}{}
			c.Accepting = append(c.Accepting, s)
		}
		if role.Has(RoleError) || role.Has(RoleFatalError) {
			c.errors[s] = struct{}{}
			c.Errors = append(c.Errors, s)
		}
	}

	for s, role := range d.Roles {
		if _, ok := c.domain[s]; !ok && role != 0 {
			result = multierror.Append(result, fmt.Errorf("%w: %v", ErrUnknownRoleState, s))
		}
	}

	switch len(starts) {
	case 1:
		c.Start = starts[0]
	case 0:
		result = multierror.Append(result, fmt.Errorf("%w: none declared", ErrMissingOrDuplicateStart))
	default:
		result = multierror.Append(result, fmt.Errorf("%w: %v", ErrMissingOrDuplicateStart, starts))
	}

	switch len(fatals) {
	case 1:
		c.Fatal = fatals[0]
	case 0:
		result = multierror.Append(result, ErrMissingFatalError)
	default:
		result = multierror.Append(result, fmt.Errorf("%w: %v", ErrDuplicateFatalError, fatals))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return c, nil
}

// Contains 判断状态是否属于声明的状态域
func (c *Classification[S]) Contains(s S) bool {
	_, ok := c.domain[s]
	return ok
}

// IsAccepting 判断是否为接受状态
func (c *Classification[S]) IsAccepting(s S) bool {
	_, ok := c.accepting[s]
	return ok
}

// IsError 判断是否为错误状态（包含致命错误状态）
func (c *Classification[S]) IsError(s S) bool {
	_, ok := c.errors[s]
	return ok
}

// Role 返回状态的角色，域外状态为 0
func (c *Classification[S]) Role(s S) Role {
	return c.roles[s]
}

// States 按声明顺序返回状态域
func (c *Classification[S]) States() []S {
	return append([]S(nil), c.states...)
}
