package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests provide a stub.
type execIface interface {
	New(ctx context.Context) error
	Open(ctx context.Context, args []string) error
	Status(ctx context.Context) error
	SetPassword(ctx context.Context) error
	Verify(ctx context.Context) error
	Unlock(ctx context.Context) error
	CreateSession(ctx context.Context) error
	Validate(ctx context.Context) error
	Lock(ctx context.Context) error
	Dir(ctx context.Context) error
	Check(ctx context.Context, args []string) error
	Recent(ctx context.Context) error
}

const helpText = `Available commands:
  new              create a new vault
  open [path]      open a vault (default: configured vault)
  status           show vault and session state
  setpw            set the master password
  verify           check the master password
  unlock           verify the master password and start a session
  session          start a session after 'verify'
  validate         check and extend the current session
  lock             end the current session
  dir              show the vault directory
  check <path>     check whether a file is a vault
  recent           list recently opened vaults
  exit | quit      leave the program`

// runREPL reads commands from reader until EOF, "exit" or cancellation of
// ctx and dispatches them to a. Command errors are printed and the loop
// continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "gv (%s)> ", statusFn())

		line, err := readLine(ctx, reader)
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			fmt.Fprintln(w, helpText)
		case "new":
			cmdErr = a.New(ctx)
		case "open":
			cmdErr = a.Open(ctx, args)
		case "status":
			cmdErr = a.Status(ctx)
		case "setpw":
			cmdErr = a.SetPassword(ctx)
		case "verify":
			cmdErr = a.Verify(ctx)
		case "unlock":
			cmdErr = a.Unlock(ctx)
		case "session":
			cmdErr = a.CreateSession(ctx)
		case "validate":
			cmdErr = a.Validate(ctx)
		case "lock":
			cmdErr = a.Lock(ctx)
		case "dir":
			cmdErr = a.Dir(ctx)
		case "check":
			cmdErr = a.Check(ctx, args)
		case "recent":
			cmdErr = a.Recent(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "Error:", renderError(cmdErr))
		}
	}
}

// readLine reads one line from reader, giving up when ctx is done. The read
// is started in its own goroutine so a signal can interrupt the prompt; on
// cancellation that goroutine stays blocked until the process exits.
func readLine(ctx context.Context, reader *bufio.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := reader.ReadString('\n')
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}
