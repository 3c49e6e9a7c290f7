// Package driver runs the compiler over a set of source files and produces
// the artefact the command line asked for.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"lilcc/pkg/asm"
	"lilcc/pkg/compiler"
	"lilcc/pkg/config"
	"lilcc/pkg/llvmgen"
	"lilcc/pkg/report"
	"lilcc/pkg/toolchain"

	"github.com/kr/pretty"
	"golang.org/x/sync/errgroup"
)

// Mode selects where the pipeline stops and what is written.
type Mode int

const (
	ModeLex        Mode = iota // print tokens
	ModeParse                  // print the AST
	ModeValidate               // print the symbol table
	ModeAsm                    // write .s files
	ModeLLVM                   // write .ll files
	ModeObject                 // write .o files
	ModeExecutable             // link one executable
)

var modeNames = [...]string{
	ModeLex:        "lex",
	ModeParse:      "parse",
	ModeValidate:   "validate",
	ModeAsm:        "asm",
	ModeLLVM:       "llvm",
	ModeObject:     "object",
	ModeExecutable: "executable",
}

func (m Mode) String() string {
	if int(m) >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// stage is the last compiler stage a mode needs.
func (m Mode) stage() compiler.Stage {
	switch m {
	case ModeLex:
		return compiler.StageLex
	case ModeParse:
		return compiler.StageParse
	case ModeValidate, ModeLLVM:
		return compiler.StageValidate
	}
	return compiler.StageCodegen
}

// ErrCompile is returned when at least one unit failed to compile. The
// diagnostics have already been reported.
var ErrCompile = errors.New("compilation failed")

// UsageError is a bad combination of command-line inputs.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// Options configures one driver run.
type Options struct {
	Mode Mode

	// Output overrides the artefact path; "-" writes text artefacts to
	// Stdout.
	Output string

	Config *config.Config
}

// Driver compiles units and writes their artefacts.
type Driver struct {
	opts     Options
	cfg      *config.Config
	reporter *report.Reporter
	tc       *toolchain.Toolchain

	// Stdout receives dumps and artefacts written to "-".
	Stdout io.Writer
}

func New(opts Options, reporter *report.Reporter) *Driver {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	return &Driver{
		opts:     opts,
		cfg:      cfg,
		reporter: reporter,
		tc:       toolchain.New(cfg.CC),
		Stdout:   os.Stdout,
	}
}

// unit is one source file and what compiling it produced.
type unit struct {
	path string
	src  string
	out  *compiler.Unit

	// text is the rendered artefact: a dump, assembly or LLVM IR.
	text string
}

// Run compiles every file concurrently and, only if all of them succeed,
// writes the artefacts. It returns ErrCompile after reporting compile
// errors, a *UsageError for bad inputs and a wrapped error for I/O and
// toolchain failures.
func (d *Driver) Run(ctx context.Context, files []string) error {
	if err := d.checkUsage(files); err != nil {
		return err
	}

	units := make([]*unit, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, path := range files {
		eg.Go(func() error {
			u, err := d.compileUnit(egCtx, path)
			if err != nil {
				return err
			}
			units[i] = u
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	return d.emit(ctx, units)
}

func (d *Driver) checkUsage(files []string) error {
	if len(files) == 0 {
		return &UsageError{Msg: "no input files"}
	}
	for _, f := range files {
		if !strings.HasSuffix(f, ".c") && !strings.HasSuffix(f, ".i") {
			return &UsageError{Msg: fmt.Sprintf("%s: not a C source file", f)}
		}
	}
	if len(files) > 1 && d.opts.Output != "" && d.opts.Mode != ModeExecutable {
		return &UsageError{Msg: fmt.Sprintf("cannot use -o with multiple files in %s mode", d.opts.Mode)}
	}
	if d.opts.Output == "-" && (d.opts.Mode == ModeObject || d.opts.Mode == ModeExecutable) {
		return &UsageError{Msg: fmt.Sprintf("cannot write %s output to stdout", d.opts.Mode)}
	}
	return nil
}

// compileUnit reads, optionally preprocesses and compiles one file.
func (d *Driver) compileUnit(ctx context.Context, path string) (*unit, error) {
	var src string
	if d.cfg.Preprocess {
		out, err := d.tc.Preprocess(ctx, path)
		if err != nil {
			d.reporter.Fatal("%s: %v", path, err)
			return nil, ErrCompile
		}
		src = out
	} else {
		buff, err := os.ReadFile(path)
		if err != nil {
			d.reporter.Fatal("%v", err)
			return nil, ErrCompile
		}
		src = string(buff)
	}

	timed := d.reporter.LogLevel() >= report.LogLevelVerbose
	var start time.Time
	if timed {
		start = time.Now()
	}
	out, err := compiler.CompileTo(src, d.opts.Mode.stage())
	if err != nil {
		d.reporter.CompileError(path, src, err)
		return nil, ErrCompile
	}
	if timed {
		d.reporter.Info("%s: %s stage done in %s", path, d.opts.Mode.stage(), time.Since(start))
	}

	u := &unit{path: path, src: src, out: out}
	if err := d.render(u); err != nil {
		d.reporter.CompileError(path, src, err)
		return nil, ErrCompile
	}
	return u, nil
}

// render produces the text artefact of a unit for the current mode.
func (d *Driver) render(u *unit) error {
	switch d.opts.Mode {
	case ModeLex:
		var sb strings.Builder
		for _, tok := range u.out.Tokens {
			sb.WriteString(tok.String())
			sb.WriteByte('\n')
		}
		u.text = sb.String()

	case ModeParse:
		u.text = fmt.Sprintf("%# v\n", pretty.Formatter(u.out.Program))

	case ModeValidate:
		u.text = u.out.Symbols.String()

	case ModeLLVM:
		m, err := llvmgen.Generate(u.out.Program, u.out.Symbols)
		if err != nil {
			return err
		}
		u.text = m.String()

	default:
		if d.cfg.VerifyAsm {
			listing, err := asm.Check(u.out.Asm)
			if err != nil {
				return fmt.Errorf("generated assembly is invalid: %w", err)
			}
			d.reporter.Info("%s: verified %d instructions", u.path, len(listing.Instructions))
		}
		u.text = u.out.Asm
	}
	return nil
}

// emit writes the artefacts of a fully successful build.
func (d *Driver) emit(ctx context.Context, units []*unit) error {
	switch d.opts.Mode {
	case ModeLex, ModeParse, ModeValidate:
		for _, u := range units {
			if len(units) > 1 {
				fmt.Fprintf(d.Stdout, "==> %s <==\n", u.path)
			}
			if _, err := io.WriteString(d.Stdout, u.text); err != nil {
				return fmt.Errorf("writing %s dump: %w", u.path, err)
			}
		}

	case ModeAsm, ModeLLVM:
		ext := ".s"
		if d.opts.Mode == ModeLLVM {
			ext = ".ll"
		}
		for _, u := range units {
			if d.opts.Output == "-" {
				if _, err := io.WriteString(d.Stdout, u.text); err != nil {
					return fmt.Errorf("writing %s: %w", u.path, err)
				}
				continue
			}
			out, err := d.artefactPath(u.path, ext)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, []byte(u.text), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			d.reporter.Info("wrote %s", out)
		}

	case ModeObject:
		for _, u := range units {
			out, err := d.artefactPath(u.path, ".o")
			if err != nil {
				return err
			}
			if err := d.tc.Assemble(ctx, u.text, out); err != nil {
				return fmt.Errorf("%s: %w", u.path, err)
			}
			d.reporter.Info("wrote %s", out)
		}

	case ModeExecutable:
		out, err := d.artefactPath(units[0].path, "")
		if err != nil {
			return err
		}
		listings := make([]string, len(units))
		for i, u := range units {
			listings[i] = u.text
		}
		if err := d.tc.Link(ctx, listings, out); err != nil {
			return err
		}
		d.reporter.Info("linked %s", out)
	}
	return nil
}
