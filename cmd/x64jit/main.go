// Command x64jit assembles a YAML program into executable memory, prints its listing and
// optionally runs it.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	x64 "github.com/wdamron/x64jit"
	"github.com/wdamron/x64jit/disasm"
	"github.com/wdamron/x64jit/feats"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "x64jit: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	mode     x64.Mode
	program  string
	hintsIn  string
	hintsOut string
	size     int
	exec     bool
	host     bool
	verbose  bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("x64jit", flag.ContinueOnError)
	mode := fs.String("mode", "long64", "addressing mode: long64 or protected32")
	fs.StringVar(&o.program, "program", "", "YAML program to assemble (default: a built-in demo)")
	fs.StringVar(&o.hintsIn, "hints", "", "YAML hints to size the label and relocation tables")
	fs.StringVar(&o.hintsOut, "hints-out", "", "write the hints for this program to a YAML file")
	fs.IntVar(&o.size, "size", 4096, "region size in bytes")
	fs.BoolVar(&o.exec, "run", false, "call the assembled code and print its result (long64 on amd64 only)")
	fs.BoolVar(&o.host, "host", false, "restrict instructions to the features of this CPU")
	fs.BoolVar(&o.verbose, "v", false, "log region and stream events")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: x64jit [flags]\n\n")
		fmt.Fprintf(fs.Output(), "Assemble a program into executable memory and print its listing.\n\n")
		fmt.Fprintf(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	switch *mode {
	case "long64":
		o.mode = x64.Long64
	case "protected32":
		o.mode = x64.Protected32
	default:
		return o, fmt.Errorf("unknown mode %q", *mode)
	}
	if o.exec && (o.mode != x64.Long64 || runtime.GOARCH != "amd64") {
		return o, fmt.Errorf("-run needs long64 mode on amd64")
	}
	return o, nil
}

func run(args []string, stdout io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	if o.verbose {
		x64.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	prog := demoProgram
	if o.program != "" {
		f, err := os.Open(o.program)
		if err != nil {
			return err
		}
		prog, err = loadProgram(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	var hints x64.Hints
	if o.hintsIn != "" {
		f, err := os.Open(o.hintsIn)
		if err != nil {
			return err
		}
		hints, err = x64.LoadHints(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	region, err := x64.NewRegion(o.size)
	if err != nil {
		return err
	}
	defer region.Close()

	opts := []x64.Option{x64.WithMode(o.mode)}
	if o.host {
		opts = append(opts, x64.WithFeatures(feats.Host()))
	}
	asm, err := x64.Open(region, hints, opts...)
	if err != nil {
		return err
	}
	var fn func() int64
	if o.exec {
		if err := asm.BindFunc(&fn); err != nil {
			return err
		}
	}
	if err := newAssembler(asm).run(prog); err != nil {
		return err
	}
	res, err := asm.Finish()
	if err != nil {
		return err
	}

	lines, err := disasm.Code(asm.Code(), o.mode.Bits(), uint64(region.Base()))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %d bytes\n", prog.Name, res.Len)
	if err := disasm.Fprint(stdout, lines); err != nil {
		return err
	}

	if o.hintsOut != "" {
		f, err := os.Create(o.hintsOut)
		if err != nil {
			return err
		}
		if err := res.Hints.WriteYAML(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	if o.exec {
		fmt.Fprintf(stdout, "result: %d\n", fn())
	}
	return nil
}
