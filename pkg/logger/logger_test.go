package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_LOG(t *testing.T) {
	defer func() { _ = Sync() }()
	Info("Info msg")
	Warn("Warn msg")
	Error("Error msg")
	Debug("Debug msg", Int("age", 3))
}

// CustomLogger 自定义日志实现示例
type CustomLogger struct {
	infos []string
}

func (c *CustomLogger) Debug(msg string, fields ...Field)      {}
func (c *CustomLogger) Info(msg string, fields ...Field)       { c.infos = append(c.infos, msg) }
func (c *CustomLogger) Warn(msg string, fields ...Field)       {}
func (c *CustomLogger) Error(msg string, fields ...Field)      {}
func (c *CustomLogger) Panic(msg string, fields ...Field)      {}
func (c *CustomLogger) Fatal(msg string, fields ...Field)      {}
func (c *CustomLogger) Debugf(format string, v ...interface{}) {}
func (c *CustomLogger) Infof(format string, v ...interface{})  {}
func (c *CustomLogger) Warnf(format string, v ...interface{})  {}
func (c *CustomLogger) Errorf(format string, v ...interface{}) {}
func (c *CustomLogger) Panicf(format string, v ...interface{}) {}
func (c *CustomLogger) Fatalf(format string, v ...interface{}) {}
func (c *CustomLogger) SetLevel(level Level)                   {}
func (c *CustomLogger) Sync() error                            { return nil }

func Test_CustomLogger(t *testing.T) {
	// 替换为自定义日志实现
	custom := &CustomLogger{}
	prev := Default()
	ReplaceDefault(custom)
	defer ReplaceDefault(prev)

	Info("test custom logger")
	Debugf("test %s", "custom logger")

	if len(custom.infos) != 1 || custom.infos[0] != "test custom logger" {
		t.Errorf("自定义日志未生效: %v", custom.infos)
	}
}

func Test_LevelMapping(t *testing.T) {
	// 验证级别映射正确
	if toZapLevel(DebugLevel) != -1 {
		t.Errorf("DebugLevel mapping failed: got %d, want -1", toZapLevel(DebugLevel))
	}
	if toZapLevel(InfoLevel) != 0 {
		t.Errorf("InfoLevel mapping failed: got %d, want 0", toZapLevel(InfoLevel))
	}
	if toZapLevel(WarnLevel) != 1 {
		t.Errorf("WarnLevel mapping failed: got %d, want 1", toZapLevel(WarnLevel))
	}
	if toZapLevel(ErrorLevel) != 2 {
		t.Errorf("ErrorLevel mapping failed: got %d, want 2", toZapLevel(ErrorLevel))
	}
	if toZapLevel(PanicLevel) != 4 {
		t.Errorf("PanicLevel mapping failed: got %d, want 4 (skip DPanic=3)", toZapLevel(PanicLevel))
	}
	if toZapLevel(FatalLevel) != 5 {
		t.Errorf("FatalLevel mapping failed: got %d, want 5", toZapLevel(FatalLevel))
	}
}

func Test_ParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"", InfoLevel, false},
		{"WARN", WarnLevel, false},
		{" error ", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func Test_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, InfoLevel)

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("Info 级别不应输出 Debug: %q", buf.String())
	}

	l.SetLevel(DebugLevel)
	l.Debug("visible", String("k", "v"))
	out := buf.String()
	if !strings.Contains(out, "[DEBUG]") || !strings.Contains(out, "visible") {
		t.Errorf("Debug 输出错误: %q", out)
	}
}

func Test_BuildSizeRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fsm.log")
	l, closer, err := Build(Config{Level: "info", File: path, Rotate: RotateSize, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	l.Info("written to lumberjack")
	_ = l.Sync()
	_ = closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to lumberjack") {
		t.Errorf("日志文件内容错误: %q", data)
	}
}

func Test_BuildTimeRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fsm.log")
	l, closer, err := Build(Config{Level: "debug", Format: "json", File: path, Rotate: RotateTime})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	l.Debug("written to rotatelogs")
	_ = l.Sync()
	_ = closer.Close()

	matches, _ := filepath.Glob(path + ".*")
	if len(matches) == 0 {
		t.Fatal("未生成轮转日志文件")
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"written to rotatelogs"`) {
		t.Errorf("JSON 日志内容错误: %q", data)
	}
}

func Test_BuildInvalid(t *testing.T) {
	if _, _, err := Build(Config{Level: "loud"}); err == nil {
		t.Error("期望级别错误")
	}
	if _, _, err := Build(Config{Format: "xml"}); err == nil {
		t.Error("期望格式错误")
	}
	if _, _, err := Build(Config{File: filepath.Join(t.TempDir(), "x.log"), Rotate: "weekly"}); err == nil {
		t.Error("期望轮转策略错误")
	}
}
