// Package toolchain drives the system C compiler for the steps lilcc does
// not do itself: preprocessing, assembling and linking.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// DefaultCC is the compiler driver used when none is configured.
const DefaultCC = "cc"

// Toolchain runs one external compiler driver.
type Toolchain struct {
	CC string
}

func New(cc string) *Toolchain {
	if cc == "" {
		cc = DefaultCC
	}
	return &Toolchain{CC: cc}
}

// Available reports whether the compiler driver can be found on PATH.
func (tc *Toolchain) Available() bool {
	_, err := exec.LookPath(tc.CC)
	return err == nil
}

// ToolError is a failure of the external tool itself; Output holds what
// it printed.
type ToolError struct {
	Step   string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s failed: %v\n%s", e.Step, e.Err, e.Output)
}

func (e *ToolError) Unwrap() error { return e.Err }

func (tc *Toolchain) run(ctx context.Context, step string, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tc.CC, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The tool ran and rejected its input.
			return nil, &ToolError{Step: step, Output: stderr.String(), Err: err}
		}
		return nil, fmt.Errorf("running %s for %s: %w", tc.CC, step, err)
	}
	return stdout.Bytes(), nil
}

// Preprocess runs the C preprocessor over path and returns the expanded
// source without line markers.
func (tc *Toolchain) Preprocess(ctx context.Context, path string) (string, error) {
	out, err := tc.run(ctx, "preprocess", nil, "-E", "-P", path)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Assemble turns assembly text into an object file at objPath.
func (tc *Toolchain) Assemble(ctx context.Context, asm string, objPath string) error {
	_, err := tc.run(ctx, "assemble", []byte(asm), "-c", "-x", "assembler", "-o", objPath, "-")
	return err
}

// Link assembles and links the given assembly listings into an
// executable at outPath. Intermediate files live in a temporary directory
// that is removed afterwards.
func (tc *Toolchain) Link(ctx context.Context, listings []string, outPath string) error {
	dir, err := os.MkdirTemp("", "lilcc-")
	if err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{"-o", outPath}
	for i, asm := range listings {
		path := filepath.Join(dir, fmt.Sprintf("unit%d.s", i))
		if err := os.WriteFile(path, []byte(asm), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		args = append(args, path)
	}
	_, err = tc.run(ctx, "link", nil, args...)
	return err
}

// Run executes a built program and returns its exit status. A non-zero
// exit is not an error.
func Run(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, path)
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("running %s: %w", path, err)
	}
	return 0, nil
}
