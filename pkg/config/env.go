package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// applyEnvOverrides 用 env 标签对应的环境变量覆盖配置，未设置的变量保持文件中的值
func applyEnvOverrides[T any](v *T) error {
	return env.Parse(v)
}

// loadDotEnv 预加载 .env 文件，已存在的环境变量不会被覆盖
func loadDotEnv(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}
