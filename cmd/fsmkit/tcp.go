package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/junbin-yang/go-fsmkit/pkg/statemachine/tcp"
)

var defaultTCPSignals = []string{"ActiveOpen", "RcvSYNACK", "Close", "RcvACK", "RcvFIN", "Timeout"}

func newTCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tcp [signals...]",
		Short: "Feed signals to a TCP connection machine",
		Long:  `Feeds the given signals (default: a full active open and close) to a TCP connection machine and prints every committed transition.`,
		RunE:  a.wrap(a.runTCP),
	}
}

func (a *app) runTCP(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = defaultTCPSignals
	}

	signals := make([]tcp.Signal, 0, len(args))
	for _, name := range args {
		sig, ok := tcp.ParseSignal(name)
		if !ok {
			return fmt.Errorf("unknown tcp signal %q", name)
		}
		signals = append(signals, sig)
	}

	hook := func(from tcp.State, sig tcp.Signal, to tcp.State) error {
		_, err := fmt.Fprintf(a.out, "%s --%s--> %s\n", from, sig, to)
		return err
	}
	m, err := tcp.New("tcp", hook, a.machineOptions()...)
	if err != nil {
		return err
	}

	for _, sig := range signals {
		if err := m.ProcessSignal(sig); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "final: %s\n", m.Current())
	return nil
}
