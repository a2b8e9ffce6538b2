package config

import (
	"errors"
	"io/fs"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// dotenvPath is a test seam.
var dotenvPath = ".env"

// parseEnv loads .env (without overriding variables already set in the
// process) and overlays INSTALATRACK_* variables onto cfg. Fields carry no
// env-default tags, so unset variables keep the earlier layers' values.
func parseEnv(cfg *Config) error {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return cleanenv.ReadEnv(cfg)
}
