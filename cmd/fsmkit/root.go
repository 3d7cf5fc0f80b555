package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/junbin-yang/go-fsmkit/pkg/config"
	"github.com/junbin-yang/go-fsmkit/pkg/logger"
	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
	"github.com/junbin-yang/go-fsmkit/pkg/statemachine/metrics"
)

// AppConfig 命令行配置文件结构
type AppConfig struct {
	Log        logger.Config `yaml:"log" json:"log" ini:"log"`
	Definition string        `yaml:"definition" json:"definition" ini:"definition" env:"FSMKIT_DEFINITION"`
	Metrics    MetricsConfig `yaml:"metrics" json:"metrics" ini:"metrics"`
}

// MetricsConfig 指标输出配置
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled" ini:"enabled" env:"FSMKIT_METRICS"`
	Namespace string `yaml:"namespace" json:"namespace" ini:"namespace"`
}

func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Log:     logger.Config{Level: "info", Format: "console"},
		Metrics: MetricsConfig{Namespace: "fsmkit"},
	}
}

// app 各子命令共享的运行环境
type app struct {
	out io.Writer

	configPath string
	logLevel   string
	watch      bool
	metricsOut bool

	cm       *config.Manager[AppConfig]
	cfg      *AppConfig
	log      *logger.ZapLogger
	closer   io.Closer
	registry *prometheus.Registry
	observer *metrics.Observer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	cmd := &cobra.Command{
		Use:           "fsmkit",
		Short:         "fsmkit drives finite state machines from the command line",
		Long:          `fsmkit runs the built-in toy and TCP machines, or any machine described by a YAML/JSON definition file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: ./configs/fsmkit, ~/.config/fsmkit/fsmkit, /etc/fsmkit/fsmkit with .yml/.json/.ini)")
	flags.StringVar(&a.logLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")
	flags.BoolVar(&a.watch, "watch", false, "reload the config file when it changes")
	flags.BoolVar(&a.metricsOut, "metrics", false, "print Prometheus metrics after the run")

	cmd.AddCommand(newToyCmd(a), newTCPCmd(a), newRunCmd(a), newDescribeCmd(a))
	return cmd
}

// wrap 在子命令前后完成配置加载与资源释放
func (a *app) wrap(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.setup(); err != nil {
			return err
		}
		defer func() {
			if cerr := a.teardown(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

func (a *app) setup() error {
	a.cm = config.NewManager(defaultAppConfig,
		config.WithAppName("fsmkit"),
		config.WithDefaultPaths(
			"./configs/{{.AppName}}",
			"{{.HomeDir}}/.config/{{.AppName}}/{{.AppName}}",
			"/etc/{{.AppName}}/{{.AppName}}",
		),
		config.WithDotEnv(".env"),
		config.WithConfigWatch(a.watch, 0),
	)

	var err error
	if a.cfg, err = a.loadConfig(); err != nil {
		a.cm.Close()
		return err
	}

	logCfg := a.cfg.Log
	if a.logLevel != "" {
		logCfg.Level = a.logLevel
	}
	a.log, a.closer, err = logger.Build(logCfg, logger.AddCaller())
	if err != nil {
		a.cm.Close()
		return fmt.Errorf("build logger: %w", err)
	}
	logger.ReplaceDefault(a.log)

	a.cm.OnChange(func(_, cfg *AppConfig) {
		if a.logLevel != "" {
			return
		}
		level, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			a.log.Warn("ignore invalid log level", logger.String("level", cfg.Log.Level))
			return
		}
		a.log.SetLevel(level)
		a.log.Info("log level changed", logger.String("level", cfg.Log.Level))
	})

	if a.metricsOut || a.cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.observer, err = metrics.NewObserver(a.registry, a.cfg.Metrics.Namespace)
		if err != nil {
			a.cm.Close()
			_ = a.closer.Close()
			return err
		}
	}
	return nil
}

// loadConfig 读取 --config 指定的文件；未指定且默认路径均不存在时使用内置默认值
func (a *app) loadConfig() (*AppConfig, error) {
	var err error
	if a.configPath != "" {
		err = a.cm.Load(a.configPath)
	} else if err = a.cm.Load(""); errors.Is(err, config.ErrConfigNotFound) {
		err = a.cm.LoadDefaults()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := a.cm.Get()
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

func (a *app) teardown() error {
	var err error
	if a.registry != nil {
		err = metrics.WriteText(a.out, a.registry)
	}
	a.cm.Close()
	_ = a.log.Sync()
	if cerr := a.closer.Close(); err == nil {
		err = cerr
	}
	return err
}

// machineOptions 为状态机挂接日志与指标
func (a *app) machineOptions() []statemachine.Option {
	opts := []statemachine.Option{statemachine.WithLogger(a.log)}
	if a.observer != nil {
		opts = append(opts, statemachine.WithObserver(a.observer))
	}
	return opts
}
