package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v2"
)

// Serializer 定义序列化/反序列化接口，支持扩展不同格式
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)      // 序列化
	Unmarshal(data []byte, v interface{}) error // 反序列化
	GetFileExt() string                         // 获取文件扩展名（如.yml/.json）
	GetName() string                            // 获取格式名称（如yaml/json）
}

// codec 以函数对组合出的序列化器，aliases 为额外接受的后缀
type codec struct {
	name    string
	ext     string
	aliases []string
	encode  func(v interface{}) ([]byte, error)
	decode  func(data []byte, v interface{}) error
}

func (c *codec) Marshal(v interface{}) ([]byte, error)      { return c.encode(v) }
func (c *codec) Unmarshal(data []byte, v interface{}) error { return c.decode(data, v) }
func (c *codec) GetFileExt() string                         { return c.ext }
func (c *codec) GetName() string                            { return c.name }

// 内置格式
var (
	YAML Serializer = &codec{name: "yaml", ext: ".yml", aliases: []string{".yaml"}, encode: yaml.Marshal, decode: yaml.Unmarshal}
	JSON Serializer = &codec{name: "json", ext: ".json", encode: indentJSON, decode: json.Unmarshal}
	INI  Serializer = &codec{name: "ini", ext: ".ini", encode: reflectINI, decode: mapINI}
)

func builtinFormats() []Serializer {
	return []Serializer{YAML, JSON, INI}
}

func indentJSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// reflectINI 顶层字段进入默认分区，嵌套结构体各自成为一个分区
func reflectINI(v interface{}) ([]byte, error) {
	f := ini.Empty()
	if err := f.ReflectFrom(v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mapINI(data []byte, v interface{}) error {
	f, err := ini.Load(data)
	if err != nil {
		return err
	}
	return f.MapTo(v)
}

// matchExt 判断后缀是否属于该格式（含别名）
func matchExt(s Serializer, ext string) bool {
	if s.GetFileExt() == ext {
		return true
	}
	if c, ok := s.(*codec); ok {
		for _, alias := range c.aliases {
			if alias == ext {
				return true
			}
		}
	}
	return false
}

// lookupSerializer 按文件后缀选择序列化器
func lookupSerializer(formats []Serializer, path string) (Serializer, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range formats {
		if matchExt(s, ext) {
			return s, true
		}
	}
	return nil, false
}

// SerializerFor 按文件后缀返回内置序列化器
func SerializerFor(path string) (Serializer, error) {
	s, ok := lookupSerializer(builtinFormats(), path)
	if !ok {
		return nil, fmt.Errorf("unsupported config format: %q", filepath.Ext(path))
	}
	return s, nil
}
