// Command exi is the CLI front end for the codec: encode XML to EXI,
// decode EXI back to XML, and inspect a decoded document's event trace
// interactively. Flag style grounded on the main.go of
// lookbusy1344-arm_emulator; the flag.FlagSet per subcommand is added
// here.
package main

import (
	"flag"
	"fmt"
	"os"
)

// sysexits-style exit codes (spec'd surface, §6/§13).
const (
	exitOK       = 0
	exitUsage    = 2
	exitIOErr    = 74
	exitDataErr  = 65
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printUsage()
		return exitUsage
	}

	switch args[0] {
	case "decode":
		return runDecode(args[1:])
	case "encode":
		return runEncode(args[1:])
	case "inspect":
		return runInspect(args[1:])
	case "-h", "--help", "help":
		printUsage()
		return exitOK
	default:
		fmt.Fprintf(os.Stderr, "exi: unknown command %q\n", args[0])
		printUsage()
		return exitUsage
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `usage:
  exi decode [flags] <in.exi> <out.xml>
  exi encode [flags] <in.xml> <out.exi>
  exi inspect <in.exi>

flags (decode/encode):
  -align string
        bit-packed, byte-aligned, pre-compression, or compression (default "bit-packed")
  -strict
        forbid preserved/optional productions (NS, SC, CM, PI, DT, ER)
  -preserve string
        comma-separated: comments,dtds,lexical-values,pis,prefixes
  -value-partition-capacity int
        global value partition size; -1 unbounded, 0 disabled (default -1)
  -config string
        path to a CLI defaults TOML file
`)
}

type sharedFlags struct {
	align          string
	strict         bool
	preserve       string
	valueCapacity  int
	configPath     string
	withCookie     bool
}

func parseShared(fs *flag.FlagSet, sf *sharedFlags) {
	fs.StringVar(&sf.align, "align", "bit-packed", "bit-packed, byte-aligned, pre-compression, or compression")
	fs.BoolVar(&sf.strict, "strict", false, "forbid preserved/optional productions")
	fs.StringVar(&sf.preserve, "preserve", "", "comma-separated: comments,dtds,lexical-values,pis,prefixes")
	fs.IntVar(&sf.valueCapacity, "value-partition-capacity", -1, "global value partition size")
	fs.StringVar(&sf.configPath, "config", "", "path to a CLI defaults TOML file")
	fs.BoolVar(&sf.withCookie, "cookie", false, "emit the 4-byte EXI cookie (encode only)")
}
