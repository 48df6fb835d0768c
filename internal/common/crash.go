package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// crashDir receives crash-<timestamp>.log reports.
var crashDir = defaultLogsDir

// SetCrashDir points crash reports at dir (when non-empty) and creates it.
func SetCrashDir(dir string) {
	if dir != "" {
		crashDir = dir
	}
	if err := os.MkdirAll(crashDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "crash: cannot create %s: %v\n", crashDir, err)
	}
}

// CurrentStack returns the calling goroutine's stack.
func CurrentStack() string {
	buf := make([]byte, 8192)
	return string(buf[:runtime.Stack(buf, false)])
}

func allStacks() string {
	const limit = 32 << 20
	for size := 64 << 10; ; size *= 2 {
		buf := make([]byte, size)
		n := runtime.Stack(buf, true)
		if n < size || size >= limit {
			return string(buf[:n])
		}
	}
}

func crashReport(at time.Time, panicVal any, stack string) string {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	var b strings.Builder
	fmt.Fprintf(&b, "annuaire crash at %s\n", at.Format(time.RFC3339))
	fmt.Fprintf(&b, "version:    %s\n", CurrentBuild())
	fmt.Fprintf(&b, "platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "goroutines: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(&b, "heap:       %d MB alloc, %d MB sys, %d GC\n\n", mem.Alloc>>20, mem.Sys>>20, mem.NumGC)
	fmt.Fprintf(&b, "panic: %v\n\n%s\n", panicVal, stack)
	fmt.Fprintf(&b, "--- all goroutines ---\n%s\n", allStacks())
	return b.String()
}

// WriteCrashReport saves a report for a recovered panic and returns the file
// path. When the file cannot be written the report goes to stderr and the
// returned path is empty.
func WriteCrashReport(panicVal any, stack string) string {
	now := time.Now()
	report := crashReport(now, panicVal, stack)
	path := filepath.Join(crashDir, "crash-"+now.Format("20060102-150405")+".log")

	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "crash: cannot write %s: %v\n%s", path, err, report)
		return ""
	}
	fmt.Fprintf(os.Stderr, "fatal: %v (report: %s)\n", panicVal, path)
	return path
}

// ExitOnPanic is deferred at the top of main: a panic escaping the command
// is written to a crash report and the process exits with status 1.
func ExitOnPanic() {
	if r := recover(); r != nil {
		WriteCrashReport(r, CurrentStack())
		os.Exit(1)
	}
}
