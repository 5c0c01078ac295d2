// Package debuglog provides the process logger. The terminal belongs to the
// UI, so log output goes to a file or nowhere.
package debuglog

import (
	"io"
	"log"
	"os"
	"path/filepath"
)

const EnvVar = "APIPROBE_DEBUG"

// Path is where the log file is written when debugging is on.
func Path() string {
	return filepath.Join(os.TempDir(), "apiprobe.log")
}

// Enabled reports whether APIPROBE_DEBUG=1 is set.
func Enabled() bool {
	return os.Getenv(EnvVar) == "1"
}

// Open returns a logger writing to path, truncating it. Without debug, or when
// the file cannot be created, the logger discards everything.
func Open(debug bool, path string) (*log.Logger, io.Closer) {
	if debug {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err == nil {
			return log.New(f, "", log.LstdFlags), f
		}
	}
	return Discard(), io.NopCloser(nil)
}

func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
