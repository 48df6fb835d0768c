package common

import (
	"fmt"
	"io"
	"os"
)

// OpenAppend opens path for appending, creating it when missing. When the
// file does not end with a newline (a write cut short by a crash) one is
// written first, so the torn line stays isolated from the lines that follow.
func OpenAppend(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		return file, nil
	}

	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("failed to read tail of %s: %w", path, err)
	}
	if last[0] != '\n' {
		if _, err := file.Write([]byte{'\n'}); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to terminate partial line in %s: %w", path, err)
		}
	}
	return file, nil
}
