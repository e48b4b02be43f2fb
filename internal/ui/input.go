package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Line commands understood by ReadCommands. Any other line is an answer.
const (
	CmdRecord = "/record"
	CmdStop   = "/stop"
	CmdRetry  = "/retry"
	CmdQuit   = "/quit"
)

// Controls are the commands a line reader can issue.
type Controls interface {
	SubmitText(text string)
	StartRecording()
	StopRecording()
	Retry()
	Quit()
}

// ReadCommands reads lines from r and forwards them to c until r is
// exhausted, ctx is done or done is closed. End of input ends the session.
func ReadCommands(ctx context.Context, r io.Reader, c Controls, done <-chan struct{}) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		case err := <-errc:
			c.Quit()
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			return nil
		case line := <-lines:
			dispatch(strings.TrimSpace(line), c)
		}
	}
}

func dispatch(line string, c Controls) {
	switch strings.ToLower(line) {
	case CmdRecord:
		c.StartRecording()
	case CmdStop:
		c.StopRecording()
	case CmdRetry:
		c.Retry()
	case CmdQuit:
		c.Quit()
	default:
		c.SubmitText(line)
	}
}
