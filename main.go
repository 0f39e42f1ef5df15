// Command rvm executes LC-3 program images on a machine extended with
// MUL and DIV.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"

	"github.com/aryanA101a/rvm/asm"
	"github.com/aryanA101a/rvm/console"
	"github.com/aryanA101a/rvm/vm"
)

// process exit codes
const (
	exitHalt      = 0
	exitLoad      = 1
	exitUsage     = 2
	exitRuntime   = 3
	exitInterrupt = 130
)

func main() {
	log.SetPrefix("rvm: ")
	log.SetFlags(0)

	var (
		traceFlag     = flag.String("trace", "", "write an instruction trace to `file`")
		canonicalFlag = flag.Bool("canonical", false, "AND, MUL, DIV, GETC and IN update the condition flags")
		debugFlag     = flag.Bool("debug", false, "run under the interactive debugger")
		promptFlag    = flag.String("prompt", "", "prompt written by the IN trap")

		cpuProfileFlag = flag.String("cpuprofile", "", "write CPU profile to `file`")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <image.obj | program.asm> ...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(exitUsage)
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
	}

	opts := vm.Options{
		CanonicalFlags: *canonicalFlag,
		Prompt:         *promptFlag,
	}
	closeOutputs, err := openOutputs(&opts, *traceFlag, *cpuProfileFlag)
	if err != nil {
		log.Print(err)
		os.Exit(exitRuntime)
	}

	var code int
	if *debugFlag {
		if err := debugMode(opts, flag.Args()); err != nil {
			log.Print(err)
			code = exitRuntime
			var ie *vm.ErrImage
			if errors.As(err, &ie) {
				code = exitLoad
			}
		}
	} else {
		// Signals are caught before the terminal enters raw mode.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		code = run(ctx, console.NewTerminal(os.Stdin, os.Stdout), opts, flag.Args())
		stop()
	}

	closeOutputs()
	os.Exit(code)
}

// openOutputs creates the trace and CPU profile files that were asked
// for. The returned func stops profiling and closes them.
func openOutputs(opts *vm.Options, tracePath, profilePath string) (func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			return nil, fmt.Errorf("creating trace file: %w", err)
		}
		files = append(files, f)
		opts.Trace = log.New(f, "", 0)
	}

	profiling := false
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("creating CPU profile file: %w", err)
		}
		files = append(files, f)
		if err := pprof.StartCPUProfile(f); err != nil {
			closeAll()
			return nil, fmt.Errorf("starting CPU profile: %w", err)
		}
		profiling = true
	}

	return func() {
		if profiling {
			pprof.StopCPUProfile()
		}
		closeAll()
	}, nil
}

// run loads the images and executes them on term until HALT, an error or
// ctx is done, and returns the process exit code.
func run(ctx context.Context, term *console.Terminal, opts vm.Options, paths []string) int {
	m := vm.New(term, opts)
	if _, err := loadImages(m, paths); err != nil {
		log.Print(err)
		return exitLoad
	}

	if err := term.EnableRawMode(); err != nil {
		log.Printf("enabling raw mode: %v", err)
		return exitRuntime
	}
	defer term.Restore()

	// The machine may be blocked reading the terminal when the signal
	// arrives, so it runs on its own goroutine.
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case err := <-done:
		return exitCode(err)
	case <-ctx.Done():
		return exitInterrupt
	}
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, vm.ErrInputExhausted):
		return exitHalt
	case errors.Is(err, context.Canceled):
		return exitInterrupt
	default:
		log.Print(err)
		return exitRuntime
	}
}

// loadImages loads each path in order into m; later images overwrite
// earlier ones. Files ending in .asm are assembled first. The returned
// symbols are the labels of every assembled source.
func loadImages(m *vm.VM, paths []string) (map[string]vm.Word, error) {
	symbols := map[string]vm.Word{}
	for _, path := range paths {
		if filepath.Ext(path) != ".asm" {
			if err := m.LoadImageFile(path); err != nil {
				return nil, err
			}
			continue
		}

		prog, err := assembleFile(path)
		if err != nil {
			return nil, &vm.ErrImage{Path: path, Err: err}
		}
		m.LoadProgram(prog.Origin, prog.Words)
		for label, addr := range prog.Symbols {
			symbols[label] = addr
		}
	}
	return symbols, nil
}

func assembleFile(path string) (*asm.Program, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return asm.Assemble(file)
}
