package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// replacePathVars 替换路径模板中的 {{.Name}} 变量
func replacePathVars(tpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{{."+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// validateConfigPath 路径必须指向已存在的普通文件
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}

	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("file does not exist: %s", path)
	case err != nil:
		return fmt.Errorf("stat path failed: %w", err)
	case fi.IsDir():
		return fmt.Errorf("path is a directory: %s", path)
	case !fi.Mode().IsRegular():
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}
