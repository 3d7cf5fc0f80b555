package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/junbin-yang/go-fsmkit/pkg/logger"
	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
	"github.com/junbin-yang/go-fsmkit/pkg/statemachine/definition"
)

func newRunCmd(a *app) *cobra.Command {
	var defPath string

	cmd := &cobra.Command{
		Use:   "run [signals...]",
		Short: "Run a machine from a definition file",
		Long: `Loads a YAML/JSON machine definition and feeds it the given signals.
Without arguments, signals are read from stdin, one per line.`,
	}
	cmd.Flags().StringVarP(&defPath, "definition", "d", "", "machine definition file (default: definition from config)")
	cmd.RunE = a.wrap(func(cmd *cobra.Command, args []string) error {
		if defPath == "" {
			defPath = a.cfg.Definition
		}
		if defPath == "" {
			return errors.New("no definition given (use --definition or set definition in config)")
		}
		return a.runDefinition(cmd, defPath, args)
	})
	return cmd
}

func (a *app) runDefinition(cmd *cobra.Command, path string, args []string) error {
	def, err := definition.Load(path)
	if err != nil {
		return err
	}

	actions := make(definition.Registry)
	for _, name := range def.ActionNames() {
		actions[name] = a.namedAction(def.Name, name)
	}

	m, err := definition.Build(def, actions, a.machineOptions()...)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, m.Current())

	step := func(sig string) error {
		if err := m.ProcessSignal(sig); err != nil {
			return err
		}
		fmt.Fprintln(a.out, m.Current())
		return nil
	}

	if len(args) > 0 {
		for _, sig := range args {
			if err := step(sig); err != nil {
				return err
			}
		}
	} else {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			sig := strings.TrimSpace(scanner.Text())
			if sig == "" || strings.HasPrefix(sig, "#") {
				continue
			}
			if err := step(sig); err != nil {
				return err
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}

	if m.InAcceptingState() {
		fmt.Fprintln(a.out, "accepted")
	}
	return nil
}

// namedAction 定义文件中的动作统一绑定为日志输出
func (a *app) namedAction(machine, name string) statemachine.Action {
	return func() error {
		a.log.Info("action", logger.String("machine", machine), logger.String("action", name))
		return nil
	}
}
