package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// responder is the part of agentcrew.Dispatcher the REPL needs.
type responder interface {
	DispatchTo(ctx context.Context, query string, w io.Writer) (string, error)
}

// repl reads one query per line until exit, bye or end of input. Blank
// lines are sent as empty queries. A failed query is reported and the
// session continues.
func repl(ctx context.Context, d responder, in io.Reader, out io.Writer, user string) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if _, err := fmt.Fprintf(out, "😎 %s : ", user); err != nil {
			return err
		}
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "exit", "bye":
			return nil
		}

		text, err := d.DispatchTo(ctx, line, out)
		if text != "" {
			_, _ = fmt.Fprintln(out)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_, _ = fmt.Fprintf(out, "error: %v\n", err)
		}
		_, _ = fmt.Fprintln(out)
	}
}
