package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Process is a running ffmpeg fed through pipes.
type Process struct {
	cmd    *exec.Cmd
	done   chan struct{}
	err    error
	stderr syncBuffer

	stdin io.WriteCloser
	extra []*os.File
}

// Wait blocks until the process exits. A non-zero exit is an *Error.
func (p *Process) Wait() error {
	<-p.done
	return p.err
}

// Kill sends SIGKILL.
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// Done is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Stderr returns what ffmpeg has logged so far.
func (p *Process) Stderr() string {
	return p.stderr.String()
}

// Stdin is the write end of the child's stdin.
func (p *Process) Stdin() io.WriteCloser {
	return p.stdin
}

// ExtraPipe returns the write end of extra pipe i, which the child reads as
// fd 3+i.
func (p *Process) ExtraPipe(i int) io.WriteCloser {
	if i < 0 || i >= len(p.extra) {
		return nil
	}
	return p.extra[i]
}

// CloseInputs closes stdin and every extra pipe so ffmpeg sees EOF on all
// of its inputs.
func (p *Process) CloseInputs() error {
	var errs []error
	if err := p.stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, err)
	}
	for _, f := range p.extra {
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StartPiped starts ffmpeg with a stdin pipe and extraPipes more pipes at
// fd 3 and up. The caller writes inputs, calls CloseInputs, then Wait.
func StartPiped(ctx context.Context, args []string, extraPipes int) (*Process, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	p := &Process{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	cmd.Stderr = &p.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: failed to create stdin pipe: %w", err)
	}
	p.stdin = stdin

	readers := make([]*os.File, 0, extraPipes)
	closeAll := func() {
		for _, r := range readers {
			r.Close()
		}
		for _, w := range p.extra {
			w.Close()
		}
	}
	for i := 0; i < extraPipes; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("ffmpeg: failed to create pipe %d: %w", i+3, err)
		}
		readers = append(readers, r)
		p.extra = append(p.extra, w)
	}
	cmd.ExtraFiles = readers

	if err := cmd.Start(); err != nil {
		closeAll()
		return nil, fmt.Errorf("ffmpeg: failed to start: %w", err)
	}

	// The child holds its own copies of the read ends.
	for _, r := range readers {
		r.Close()
	}

	go func() {
		defer close(p.done)
		if err := cmd.Wait(); err != nil {
			p.err = &Error{Args: args, Stderr: p.stderr.String(), Err: err}
		}
	}()
	return p, nil
}

// syncBuffer lets Stderr be read while the process is still writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Error is a failed ffmpeg run with the tail of its stderr.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	// Only the last few lines of stderr carry the cause
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	if tail := strings.Join(lines, "\n"); tail != "" {
		return fmt.Sprintf("ffmpeg: %v: %s", e.Err, tail)
	}
	return fmt.Sprintf("ffmpeg: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Command returns the command line that failed.
func (e *Error) Command() string {
	return "ffmpeg " + strings.Join(e.Args, " ")
}
