package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Touch(ctx context.Context, args []string) error
	Mkdir(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	DownloadAbort(ctx context.Context, args []string) error
	DownloadPriority(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	UserAdd(ctx context.Context) error
	UserDelete(ctx context.Context, args []string) error
	UserModify(ctx context.Context) error
	UserShow(ctx context.Context, args []string) error
}

// runREPL starts a simple read–eval–print loop for the FileKeeper CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Remaining tokens are passed to
// the handler; handlers prompt for anything still missing. Unknown commands
// are reported back to the user. The loop exits on scanner EOF or when the
// user types "exit" or "quit".
//
// Commands:
//
//	Not logged in:
//	  - help           — show available commands
//	  - login          — authenticate
//	  - exit | quit    — leave the program
//
//	Logged in:
//	  - ls [path]          — list a directory
//	  - touch [path name]  — create an empty file
//	  - mkdir [path name]  — create a directory
//	  - rm [path]          — remove a file or directory tree
//	  - dwl [path prio]    — start a download
//	  - abort [path]       — abort a download
//	  - pri [path prio]    — change a download's priority
//	  - upl [file path]    — upload a local file
//	  - useradd            — create an account (admin)
//	  - userdel [name]     — delete an account (admin)
//	  - usermod            — change an account (admin)
//	  - user [name]        — show an account (admin)
//	  - exit | quit        — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("fk> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: ls, touch, mkdir, rm, dwl, abort, pri, upl, useradd, userdel, usermod, user, exit")
			} else {
				printlnFn("Available commands: login, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "ls", "list":
			_ = a.List(ctx, args)

		case "touch":
			_ = a.Touch(ctx, args)

		case "mkdir":
			_ = a.Mkdir(ctx, args)

		case "rm":
			_ = a.Remove(ctx, args)

		case "dwl":
			_ = a.Download(ctx, args)

		case "abort":
			_ = a.DownloadAbort(ctx, args)

		case "pri":
			_ = a.DownloadPriority(ctx, args)

		case "upl":
			_ = a.Upload(ctx, args)

		case "useradd":
			_ = a.UserAdd(ctx)

		case "userdel":
			_ = a.UserDelete(ctx, args)

		case "usermod":
			_ = a.UserModify(ctx)

		case "user":
			_ = a.UserShow(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
