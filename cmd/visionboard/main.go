/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"visionboard/internal/crash"
	applog "visionboard/internal/log"
	"visionboard/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "Vision Board")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  visionboard version|-v|--version                 Show version")
	fmt.Fprintln(w, "  visionboard serve [-addr host:port] [-offline]    Serve the board over HTTP and WebSocket")
	fmt.Fprintln(w, "  visionboard demo [-dir d] [-preset web|print]     Build a sample board and export it")
	fmt.Fprintln(w, "  visionboard export [-format f] [-dir d] <board.json>  Export a saved board snapshot")
	fmt.Fprintln(w, "  visionboard journal [-op o] [-outcome o] [-limit n] [-stats]  Show recent generations")
	fmt.Fprintln(w, "  visionboard config show|path|set-key <key>|forget-key")
	fmt.Fprintln(w, "  visionboard ui                                    Launch the desktop viewer (build with -tags fyne)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cc := &crash.Context{}
	code := func() int {
		defer crash.Recover(cc)
		return run(ctx, cc, os.Args[1:], os.Stdout, os.Stderr)
	}()
	stop()
	os.Exit(code)
}

// run executes one subcommand and returns the process exit code. cc is filled
// in once the data dir and session exist so a panic report can include them.
func run(ctx context.Context, cc *crash.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stdout)
		return 0
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, "Vision Board")
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "--help", "-h":
		usage(stdout)
		return 0
	}

	a, err := loadApp(stderr)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	defer a.close()
	if cc != nil {
		cc.Dir = a.cfg.General.DataDir
	}
	l := applog.WithComponent("cli")

	var cmdErr error
	switch args[0] {
	case "serve":
		cmdErr = a.serve(ctx, cc, args[1:])
	case "demo":
		cmdErr = a.demo(ctx, args[1:], stdout)
	case "export":
		cmdErr = a.export(ctx, args[1:], stdout)
	case "journal":
		cmdErr = a.journal(ctx, args[1:], stdout)
	case "config":
		cmdErr = a.config(args[1:], stdout)
	case "ui":
		cmdErr = a.ui(ctx, cc)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
	if cmdErr != nil {
		if ue, ok := cmdErr.(usageError); ok {
			fmt.Fprintln(stderr, ue)
			usage(stderr)
			return 2
		}
		l.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", cmdErr))
		fmt.Fprintln(stderr, "Error:", cmdErr)
		return 1
	}
	return 0
}

type usageError string

func (e usageError) Error() string { return string(e) }
