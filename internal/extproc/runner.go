package extproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ErrTimeout marks a process that ran past its deadline and was killed.
// The E_TIMEOUT token is part of the message so downstream error-code
// extraction picks it up.
var ErrTimeout = errors.New("E_TIMEOUT: analysis process exceeded timeout")

const (
	// DefaultPollInterval is how often the runner checks for completion.
	DefaultPollInterval = 100 * time.Millisecond

	// stderrPreviewLen bounds how much captured error output a failure
	// message carries.
	stderrPreviewLen = 500
)

var commandContext = exec.CommandContext

// Command describes one external process invocation.
type Command struct {
	Binary       string
	Args         []string
	Timeout      time.Duration
	PollInterval time.Duration
}

// Result carries the captured output of a completed process.
type Result struct {
	Stdout     string
	Stderr     string
	ExitStatus string
}

// Run spawns the process with stdin closed, drains stdout and stderr
// concurrently, and polls for completion at a fixed interval. Both streams
// must be drained while the process runs: a process that fills one OS pipe
// buffer while nothing reads the other deadlocks. On timeout or cancel the
// whole process group is killed, the process waited on, and both readers
// joined before the error returns. The group kill matters: ffmpeg and shell
// wrappers spawn children that inherit the output pipes, and the readers
// only reach EOF once every inherited write end is closed.
func Run(ctx context.Context, spec Command) (Result, error) {
	if spec.Binary == "" {
		return Result{}, errors.New("extproc: empty binary")
	}
	poll := spec.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	cmd := commandContext(ctx, spec.Binary, spec.Args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("spawn %s: %w", spec.Binary, err)
	}
	start := time.Now()

	var stdout, stderr bytes.Buffer
	readerErrs := make(chan error, 2)
	var readers sync.WaitGroup
	readers.Add(2)
	go drain(stdoutPipe, &stdout, readerErrs, &readers)
	go drain(stderrPipe, &stderr, readerErrs, &readers)

	// Wait is only legal after the pipe readers finish.
	waitDone := make(chan error, 1)
	go func() {
		readers.Wait()
		waitDone <- cmd.Wait()
	}()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var waitErr error
poll:
	for {
		select {
		case waitErr = <-waitDone:
			break poll
		case <-ctx.Done():
			killGroup(cmd)
			<-waitDone
			return capture(&stdout, &stderr, cmd), ctx.Err()
		case <-ticker.C:
			if spec.Timeout > 0 && time.Since(start) >= spec.Timeout {
				killGroup(cmd)
				<-waitDone
				return capture(&stdout, &stderr, cmd), fmt.Errorf("%w after %s: %s", ErrTimeout, spec.Timeout, spec.Binary)
			}
		}
	}

	result := capture(&stdout, &stderr, cmd)

	// A crashed reader means the captured text cannot be trusted.
	select {
	case rerr := <-readerErrs:
		return result, fmt.Errorf("output capture failed: %w", rerr)
	default:
	}

	if waitErr != nil {
		return result, fmt.Errorf("%s exited with %s: %s", spec.Binary, result.ExitStatus, preview(result.Stderr, stderrPreviewLen))
	}
	return result, nil
}

// killGroup signals the process's entire group so children that inherited
// the output pipes die with it. Setpgid at spawn made the process the group
// leader, so the group id is its pid.
func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}

func capture(stdout, stderr *bytes.Buffer, cmd *exec.Cmd) Result {
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if state := cmd.ProcessState; state != nil {
		result.ExitStatus = state.String()
	}
	return result
}

// drain copies one output stream into memory. Panics inside the reader are
// converted into reader errors instead of tearing the process down silently.
func drain(r io.Reader, buf *bytes.Buffer, errs chan<- error, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if p := recover(); p != nil {
			errs <- fmt.Errorf("stream reader panicked: %v", p)
		}
	}()
	if _, err := io.Copy(buf, r); err != nil {
		errs <- fmt.Errorf("stream capture: %w", err)
	}
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
