package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given dotenv files into the process environment.
// Variables that are already set are left untouched, and missing files are skipped.
func LoadDotEnv(filenames ...string) error {
	for _, filename := range filenames {
		if filename == "" {
			continue
		}

		if err := godotenv.Load(filename); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return fmt.Errorf("load %s: %w", filename, err)
		}
	}

	return nil
}
