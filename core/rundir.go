package core

import (
	"path/filepath"
)

// Subdirectories of a run's output directory. CsvDir holds the per-checker
// result and statistics files, MailDir the message file consumed by the
// mail builder, LogDir the run log.

func CsvDir(runDir string) string {
	return filepath.Join(runDir, "csv")
}

func MailDir(runDir string) string {
	return filepath.Join(runDir, "mails")
}

func LogDir(runDir string) string {
	return filepath.Join(runDir, "logs")
}
