// Package logging provides a simple file-backed logger for the application.
package logging

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

var (
	logger  *log.Logger
	logFile *os.File
	mu      sync.Mutex
)

// Setup initializes the logger with the specified log file. Calling it
// again after a successful setup is a no-op.
func Setup(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if logger != nil {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = f
	logger = log.New(f, "", log.LstdFlags)
	logger.Printf("--- rackdiff log started at %s ---", time.Now().Format(time.RFC3339))
	return nil
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logger.Printf("--- rackdiff log closed at %s ---", time.Now().Format(time.RFC3339))
		logFile.Close()
		logFile = nil
		logger = nil
	}
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	write("INFO: "+format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	write("ERROR: "+format, args...)
}

// Debug logs a debug message.
func Debug(format string, args ...interface{}) {
	write("DEBUG: "+format, args...)
}

func write(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if logger != nil {
		logger.Printf(format, args...)
	} else {
		log.Printf(format, args...)
	}
}
