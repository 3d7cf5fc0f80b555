package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
)

func newToyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toy",
		Short: "Run the Start/Middle/End demonstration machine",
		Args:  cobra.NoArgs,
		RunE:  a.wrap(a.runToy),
	}
}

func (a *app) runToy(_ *cobra.Command, _ []string) error {
	d := statemachine.NewDescriptor[string, string]().
		AddState("Start", statemachine.RoleStart).
		AddState("Middle").
		AddState("End", statemachine.RoleAccepting).
		AddState("Error", statemachine.RoleFatalError).
		AddSignals("Hello", "World", "GoToHell")

	m, err := statemachine.New("FSM1", d, a.machineOptions()...)
	if err != nil {
		return err
	}
	if err := m.AddTransition("Start", "Hello", a.say("Hello received!"), "Middle"); err != nil {
		return err
	}
	if err := m.AddTransition("Middle", "World", a.say("World received!"), "End"); err != nil {
		return err
	}

	fmt.Fprintln(a.out, m.Current())
	for _, sig := range []string{"Hello", "GoToHell", "Hello"} {
		if err := m.ProcessSignal(sig); err != nil {
			return err
		}
		fmt.Fprintln(a.out, m.Current())
	}
	return nil
}

func (a *app) say(msg string) statemachine.Action {
	return func() error {
		_, err := fmt.Fprintln(a.out, msg)
		return err
	}
}
