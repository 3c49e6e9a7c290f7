package main

import (
	"errors"
	"fmt"
	"io"

	"lilcc/pkg/config"
	"lilcc/pkg/driver"
	"lilcc/pkg/report"

	"github.com/spf13/cobra"
)

// flags holds the parsed command line.
type flags struct {
	output     string
	asm        bool
	object     bool
	emitLLVM   bool
	lex        bool
	parse      bool
	validate   bool
	preprocess bool
	configPath string
	logLevel   string
	noColor    bool
	verifyAsm  bool
	cc         string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "lilcc <FILE>... [OPTIONS]",
		Short: "lilcc compiles a subset of C to x86-64 assembly",
		Long: `lilcc compiles C source files using int, long and void, functions,
static and extern storage, and structured control flow into x86-64 AT&T
assembly for the System V ABI. By default the result is assembled and linked
into an executable named after the first file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &driver.UsageError{Msg: "no input files"}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := f.mode()
			if err != nil {
				return err
			}
			cfg, err := f.config(cmd)
			if err != nil {
				return err
			}

			reporter := report.NewReporter(stderr, cfg.LogLevel, cfg.Color)
			d := driver.New(driver.Options{Mode: mode, Output: f.output, Config: cfg}, reporter)
			d.Stdout = stdout
			return d.Run(cmd.Context(), args)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &driver.UsageError{Msg: err.Error()}
	})

	fl := rootCmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "write the output to `file` (\"-\" for stdout)")
	fl.BoolVarP(&f.asm, "asm", "S", false, "stop after code generation and write a .s file")
	fl.BoolVarP(&f.object, "compile", "c", false, "assemble each file into a .o file")
	fl.BoolVar(&f.emitLLVM, "emit-llvm", false, "write LLVM IR to a .ll file")
	fl.BoolVar(&f.lex, "lex", false, "stop after lexing and print the tokens")
	fl.BoolVar(&f.parse, "parse", false, "stop after parsing and print the AST")
	fl.BoolVar(&f.validate, "validate", false, "stop after semantic analysis and print the symbol table")
	fl.BoolVarP(&f.preprocess, "preprocess", "E", false, "run the C preprocessor first")
	fl.StringVar(&f.configPath, "config", "", "read configuration from `file` instead of ./"+config.FileName)
	fl.StringVar(&f.logLevel, "log-level", "", "one of silent, error, warn, verbose")
	fl.BoolVar(&f.noColor, "no-color", false, "disable coloured output")
	fl.BoolVar(&f.verifyAsm, "verify-asm", false, "check generated assembly before writing it")
	fl.StringVar(&f.cc, "cc", "", "C compiler driver used to preprocess, assemble and link")

	return rootCmd
}

// mode picks the driver mode from the mutually exclusive stage flags.
func (f *flags) mode() (driver.Mode, error) {
	mode := driver.ModeExecutable
	set := 0
	for _, opt := range []struct {
		on   bool
		mode driver.Mode
	}{
		{f.lex, driver.ModeLex},
		{f.parse, driver.ModeParse},
		{f.validate, driver.ModeValidate},
		{f.asm, driver.ModeAsm},
		{f.emitLLVM, driver.ModeLLVM},
		{f.object, driver.ModeObject},
	} {
		if opt.on {
			mode = opt.mode
			set++
		}
	}
	if set > 1 {
		return mode, &driver.UsageError{Msg: "only one of --lex, --parse, --validate, -S, --emit-llvm and -c may be given"}
	}
	return mode, nil
}

// config loads the configuration file and applies flags on top of it.
func (f *flags) config(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, &driver.UsageError{Msg: err.Error()}
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		level, err := report.ParseLogLevel(f.logLevel)
		if err != nil {
			return nil, &driver.UsageError{Msg: err.Error()}
		}
		cfg.LogLevel = level
	}
	if changed("no-color") {
		cfg.Color = !f.noColor
	}
	if changed("preprocess") {
		cfg.Preprocess = f.preprocess
	}
	if changed("verify-asm") {
		cfg.VerifyAsm = f.verifyAsm
	}
	if changed("cc") {
		cfg.CC = f.cc
	}
	return cfg, nil
}

// Exit statuses.
const (
	exitOK      = 0
	exitCompile = 1
	exitUsage   = 2
)

// exitCode maps the error returned by the root command to the process
// exit status, printing anything not already reported.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	var usage *driver.UsageError
	switch {
	case errors.As(err, &usage):
		fmt.Fprintf(stderr, "lilcc: %v\nRun 'lilcc --help' for usage.\n", err)
		return exitUsage
	case errors.Is(err, driver.ErrCompile):
		return exitCompile
	default:
		fmt.Fprintf(stderr, "lilcc: %v\n", err)
		return exitCompile
	}
}
