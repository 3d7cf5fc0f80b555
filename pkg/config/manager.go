package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"

	"github.com/junbin-yang/go-fsmkit/pkg/logger"
)

var (
	// ErrNotLoaded 配置尚未加载
	ErrNotLoaded = errors.New("config not loaded, call Load first")

	// ErrConfigNotFound 默认路径下未找到配置文件
	ErrConfigNotFound = errors.New("no valid config file found (tried default paths and formats)")
)

// Manager 类型化配置管理器
type Manager[T any] struct {
	settings

	mu         sync.RWMutex
	instance   *T        // 当前配置
	defaults   func() *T // 新实例构造（含默认值）
	configPath string    // 配置文件路径
	loaded     bool

	watcher   *fsnotify.Watcher
	watchQuit chan struct{}
	closeOnce sync.Once

	callbacks []func(old, new *T)
}

// NewManager 创建配置管理器，defaults 为空时使用零值
func NewManager[T any](defaults func() *T, options ...Option) *Manager[T] {
	if defaults == nil {
		defaults = func() *T { return new(T) }
	}

	cm := &Manager[T]{
		settings:  defaultSettings(),
		defaults:  defaults,
		watchQuit: make(chan struct{}),
	}

	for _, opt := range options {
		opt(&cm.settings)
	}

	return cm
}

// Load 加载配置文件，customPath 为空时按默认路径查找
func (cm *Manager[T]) Load(customPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if err := loadDotEnv(cm.dotEnvFiles); err != nil {
		return fmt.Errorf("load dotenv failed: %w", err)
	}

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return fmt.Errorf("invalid custom config path: %w", err)
		}
		cm.configPath = customPath
		cm.serializer = cm.chooseSerializer(customPath)
	} else {
		path, s, err := cm.findDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("default config not found: %w", err)
		}
		cm.configPath, cm.serializer = path, s
	}

	inst, err := cm.readInstance()
	if err != nil {
		return err
	}
	cm.instance = inst
	cm.loaded = true

	if cm.enableWatch {
		if err := cm.startWatch(); err != nil {
			cm.log.Warn("config watch disabled", logger.String("path", cm.configPath), logger.Err(err))
		}
	}
	return nil
}

// LoadDefaults 不读取文件，仅使用默认值与环境变量
func (cm *Manager[T]) LoadDefaults() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if err := loadDotEnv(cm.dotEnvFiles); err != nil {
		return fmt.Errorf("load dotenv failed: %w", err)
	}

	inst := cm.defaults()
	if cm.envOverride {
		if err := applyEnvOverrides(inst); err != nil {
			return fmt.Errorf("apply env overrides failed: %w", err)
		}
	}
	cm.instance = inst
	cm.configPath = ""
	cm.loaded = true
	return nil
}

// Get 获取当前配置
func (cm *Manager[T]) Get() (*T, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.loaded {
		return nil, ErrNotLoaded
	}
	return cm.instance, nil
}

// Path 返回已加载的配置文件路径
func (cm *Manager[T]) Path() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

// Save 保存配置到文件（先写临时文件再替换）
func (cm *Manager[T]) Save() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if !cm.loaded || cm.configPath == "" {
		return ErrNotLoaded
	}

	data, err := cm.serializer.Marshal(cm.instance)
	if err != nil {
		return fmt.Errorf("marshal config failed: %w", err)
	}

	tmpPath := cm.configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp config failed: %w", err)
	}
	if err := os.Rename(tmpPath, cm.configPath); err != nil {
		return fmt.Errorf("rename temp config failed: %w", err)
	}
	return nil
}

// Reload 重新读取配置文件并触发变更回调
func (cm *Manager[T]) Reload() error {
	cm.mu.Lock()
	if cm.configPath == "" {
		cm.mu.Unlock()
		return ErrNotLoaded
	}

	newInstance, err := cm.readInstance()
	if err != nil {
		cm.mu.Unlock()
		return err
	}

	oldInstance := cm.instance
	cm.instance = newInstance

	callbacks := make([]func(old, new *T), len(cm.callbacks))
	copy(callbacks, cm.callbacks)
	cm.mu.Unlock()

	// 回调在锁外执行
	for _, callback := range callbacks {
		callback(oldInstance, newInstance)
	}
	return nil
}

// OnChange 注册配置变更回调
func (cm *Manager[T]) OnChange(callback func(old, new *T)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, callback)
}

// Close 停止监听
func (cm *Manager[T]) Close() {
	cm.closeOnce.Do(func() {
		close(cm.watchQuit)
		cm.mu.Lock()
		if cm.watcher != nil {
			_ = cm.watcher.Close()
			cm.watcher = nil
		}
		cm.mu.Unlock()
	})
}

/* ------------------------------ 内部方法 ------------------------------ */

// readInstance 读取并解析配置文件到新实例，调用方持有锁
func (cm *Manager[T]) readInstance() (*T, error) {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}

	inst := cm.defaults()
	if err := cm.serializer.Unmarshal(data, inst); err != nil {
		return nil, fmt.Errorf("unmarshal failed (%s): %w", cm.serializer.GetName(), err)
	}

	if cm.envOverride {
		if err := applyEnvOverrides(inst); err != nil {
			return nil, fmt.Errorf("apply env overrides failed: %w", err)
		}
	}
	return inst, nil
}

// chooseSerializer 强制格式 > 后缀识别 > 默认
func (cm *Manager[T]) chooseSerializer(path string) Serializer {
	if cm.forceFormat != nil {
		return cm.forceFormat
	}
	if s, ok := lookupSerializer(cm.supportedFormats, path); ok {
		return s
	}
	return cm.serializer
}

// findDefaultConfigPath 查找默认配置路径
func (cm *Manager[T]) findDefaultConfigPath() (string, Serializer, error) {
	execPath, _ := os.Executable()
	homeDir, _ := homedir.Dir()
	vars := map[string]string{
		"AppName": cm.appName,
		"ExecDir": filepath.Dir(execPath),
		"HomeDir": homeDir,
	}

	for _, pathTpl := range cm.defaultPaths {
		if homeDir == "" && strings.Contains(pathTpl, "{{.HomeDir}}") {
			continue
		}
		basePath := replacePathVars(pathTpl, vars)

		// 先尝试无后缀文件
		if err := validateConfigPath(basePath); err == nil {
			return basePath, cm.chooseSerializer(basePath), nil
		}

		for _, format := range cm.supportedFormats {
			fullPath := basePath + format.GetFileExt()
			if err := validateConfigPath(fullPath); err == nil {
				return fullPath, format, nil
			}
		}
	}

	return "", nil, ErrConfigNotFound
}

// startWatch 启动配置文件监听，调用方持有锁
func (cm *Manager[T]) startWatch() error {
	if cm.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher failed: %w", err)
	}
	// 监听所在目录，兼容编辑器的重命名式保存
	if err := w.Add(filepath.Dir(cm.configPath)); err != nil {
		_ = w.Close()
		return fmt.Errorf("add watch path failed: %w", err)
	}

	cm.watcher = w
	go cm.watchLoop(w, filepath.Clean(cm.configPath))
	return nil
}

// watchLoop 监听文件变化循环
func (cm *Manager[T]) watchLoop(w *fsnotify.Watcher, target string) {
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	defer debounceTimer.Stop()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounceTimer.Reset(cm.watchDebounceInterval)
			}

		case <-debounceTimer.C:
			if err := cm.Reload(); err != nil {
				cm.log.Error("config auto reload failed", logger.String("path", target), logger.Err(err))
			} else {
				cm.log.Info("config auto reloaded", logger.String("path", target))
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			cm.log.Warn("config watch error", logger.Err(err))

		case <-cm.watchQuit:
			return
		}
	}
}
