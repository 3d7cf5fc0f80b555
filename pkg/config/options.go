package config

import (
	"time"

	"github.com/junbin-yang/go-fsmkit/pkg/logger"
)

// settings 与配置类型无关的管理器设置
type settings struct {
	appName          string       // 应用名称（用于默认配置文件名）
	serializer       Serializer   // 默认序列化器
	forceFormat      Serializer   // 强制指定的格式（优先级最高）
	supportedFormats []Serializer // 支持的配置格式列表
	defaultPaths     []string     // 默认配置路径模板
	dotEnvFiles      []string     // 预加载的 .env 文件
	envOverride      bool         // 是否应用环境变量覆盖
	log              logger.Logger

	enableWatch           bool
	watchDebounceInterval time.Duration
}

func defaultSettings() settings {
	return settings{
		appName:          "app",
		serializer:       YAML,
		supportedFormats: builtinFormats(),
		defaultPaths: []string{
			"./{{.AppName}}",
			"{{.ExecDir}}/{{.AppName}}",
			"/etc/{{.AppName}}",
		},
		envOverride: true,
		log:         logger.Default(),
	}
}

// Option 配置管理器选项
type Option func(*settings)

// WithAppName 设置应用名称（用于默认配置文件名）
func WithAppName(name string) Option {
	return func(s *settings) {
		s.appName = name
	}
}

// WithSerializer 设置默认序列化器
func WithSerializer(ser Serializer) Option {
	return func(s *settings) {
		s.serializer = ser
	}
}

// WithForceFormat 强制指定配置格式（无视文件后缀）
func WithForceFormat(ser Serializer) Option {
	return func(s *settings) {
		s.forceFormat = ser
	}
}

// WithDefaultPaths 设置默认配置文件查找路径，
// 模板变量：{{.AppName}}、{{.ExecDir}}、{{.HomeDir}}
func WithDefaultPaths(paths ...string) Option {
	return func(s *settings) {
		s.defaultPaths = paths
	}
}

// WithConfigFormats 设置支持的配置格式列表
func WithConfigFormats(formats ...Serializer) Option {
	return func(s *settings) {
		s.supportedFormats = formats
	}
}

// WithDotEnv 加载前预读 .env 文件，不存在的文件被忽略
func WithDotEnv(files ...string) Option {
	return func(s *settings) {
		s.dotEnvFiles = files
	}
}

// WithEnvOverride 是否用 env 标签的环境变量覆盖文件配置
func WithEnvOverride(enable bool) Option {
	return func(s *settings) {
		s.envOverride = enable
	}
}

// WithLogger 设置诊断日志
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithConfigWatch 启用配置文件监听（文件变化自动重载）
func WithConfigWatch(enable bool, interval time.Duration) Option {
	return func(s *settings) {
		s.enableWatch = enable
		s.watchDebounceInterval = interval
		if interval == 0 {
			s.watchDebounceInterval = 500 * time.Millisecond
		}
	}
}
