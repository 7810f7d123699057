package config

import (
	"os"
	"time"
)

const (
	// DefaultDatabasePath is the default path for the library database
	DefaultDatabasePath = "./library.db"

	// DefaultMaxActiveLoans caps concurrent active loans per user
	DefaultMaxActiveLoans = 3

	// DefaultLoanPeriod is how long a borrowed copy may be kept
	DefaultLoanPeriod = 7 * 24 * time.Hour
)

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
