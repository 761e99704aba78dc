package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// LoadDotEnv loads variables from the given dotenv files into the process environment.
// Missing files are skipped and variables that are already set are never overridden.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load dotenv file %s", path)
		}
	}
	return nil
}
