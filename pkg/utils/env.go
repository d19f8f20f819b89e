package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// LoadConfig reads the optional .env file from the given path. A missing
// file is fine; variables already present in the environment always win.
func LoadConfig(path string) {
	envPath := filepath.Join(path, ".env")
	if _, err := os.Stat(envPath); err != nil {
		return
	}
	if err := godotenv.Load(envPath); err != nil {
		logrus.Warnf("Failed to load %s: %v", envPath, err)
	}
}
