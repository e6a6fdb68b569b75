/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI into a logged error, a crash report
// on disk (with a summary of the board at the time) and an exit code of 2.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "visionboard/internal/log"
	"visionboard/internal/telemetry"
	"visionboard/internal/version"
)

// exitFn is swapped in tests so Recover does not end the process.
var exitFn = os.Exit

// Summarizer describes application state for the report, e.g. an editor
// session listing its items.
type Summarizer interface {
	CrashSummary() string
}

// Context says where to write reports and what to include. The zero value
// writes to the temp dir without a summary.
type Context struct {
	Dir   string
	State Summarizer
}

// Recover captures a panic, logs it with the stack and writes a report.
//
// Usage: defer crash.Recover(&crash.Context{Dir: dataDir, State: session})
func Recover(c *Context) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(c, r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\nVersion: %s\nOS/Arch: %s/%s\n",
		reportPath, version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

func writeReport(c *Context, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if c != nil && c.Dir != "" {
		dir = filepath.Join(c.Dir, "crash")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			dir = os.TempDir()
		}
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("20060102-150405")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Vision Board Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if c != nil && c.State != nil {
		fmt.Fprintf(&buf, "\nBoard:\n%s\n", summarize(c.State))
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}

// summarize guards against a summarizer that panics on broken state.
func summarize(s Summarizer) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("(summary unavailable: %v)", r)
		}
	}()
	return s.CrashSummary()
}
