package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
	"github.com/junbin-yang/go-fsmkit/pkg/statemachine/definition"
)

var (
	blue  = color.New(color.FgHiBlue).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	red   = color.New(color.FgHiRed).SprintFunc()
)

func newDescribeCmd(a *app) *cobra.Command {
	var (
		defPath string
		tree    bool
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Validate a definition file and print its states and transitions",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&defPath, "definition", "d", "", "machine definition file (default: definition from config)")
	cmd.Flags().BoolVar(&tree, "tree", false, "print transitions as a tree grouped by source state")
	cmd.RunE = a.wrap(func(_ *cobra.Command, _ []string) error {
		if defPath == "" {
			defPath = a.cfg.Definition
		}
		if defPath == "" {
			return errors.New("no definition given (use --definition or set definition in config)")
		}

		def, err := definition.Load(defPath)
		if err != nil {
			return err
		}
		// 仅用于校验与展示，动作不会执行
		actions := make(definition.Registry)
		for _, name := range def.ActionNames() {
			actions[name] = nil
		}
		m, err := definition.Build(def, actions)
		if err != nil {
			return err
		}

		if tree {
			drawTree(a.out, m)
		} else {
			drawTables(a.out, def, m)
		}
		return nil
	})
	return cmd
}

type rowKey struct {
	from, signal string
}

func drawTables(o io.Writer, def *definition.Definition, m *statemachine.Machine[string, string]) {
	fmt.Fprintf(o, "machine: %s\n\n", m.Name())

	states := tablewriter.NewWriter(o)
	states.SetHeader([]string{"state", "roles"})
	states.SetBorder(false)
	for _, s := range m.States() {
		states.Append([]string{s, m.Role(s).String()})
	}
	states.Render()
	fmt.Fprintln(o)

	actionNames := make(map[rowKey]string, len(def.Transitions))
	for _, tr := range def.Transitions {
		actionNames[rowKey{tr.From, tr.Signal}] = tr.Action
	}

	transitions := tablewriter.NewWriter(o)
	transitions.SetHeader([]string{"from", "signal", "action", "to"})
	transitions.SetBorder(false)
	for _, tr := range m.Transitions() {
		transitions.Append([]string{tr.From, tr.Signal, actionNames[rowKey{tr.From, tr.Signal}], tr.To})
	}
	transitions.Render()
}

func drawTree(o io.Writer, m *statemachine.Machine[string, string]) {
	tree := treeprint.New()
	tree.SetValue(m.Name())

	for _, s := range m.States() {
		var branch treeprint.Tree
		if r := m.Role(s); r != 0 {
			branch = tree.AddMetaBranch(colorRole(r), s)
		} else {
			branch = tree.AddBranch(s)
		}
		for _, g := range m.Signals() {
			if tr, ok := m.Lookup(s, g); ok {
				branch.AddNode(fmt.Sprintf("%s --> %s", g, tr.To))
			}
		}
	}
	fmt.Fprint(o, tree.String())
}

func colorRole(r statemachine.Role) string {
	switch {
	case r.Has(statemachine.RoleError), r.Has(statemachine.RoleFatalError):
		return red(r.String())
	case r.Has(statemachine.RoleAccepting):
		return green(r.String())
	default:
		return blue(r.String())
	}
}
