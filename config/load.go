package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Load reads the given dotenv files, or ./.env when it exists, and then parses the
// environment. Variables already set in the environment win over dotenv values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}
	return env.ParseAs[Config]()
}
