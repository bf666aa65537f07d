package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/hexbind/exi/internal/config"
	"github.com/hexbind/exi/internal/exi"
	"github.com/hexbind/exi/internal/xmlio"
)

func runEncode(args []string) int {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	var sf sharedFlags
	parseShared(fs, &sf)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "exi encode: expected <in.xml> <out.exi>")
		return exitUsage
	}

	opts, err := resolveOptions(sf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "exi encode: %v\n", err)
		return exitUsage
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "exi encode: %v\n", err)
		return exitUsage
	}

	in, err := os.Open(fs.Arg(0)) // #nosec G304 -- user-supplied CLI path
	if err != nil {
		fmt.Fprintf(os.Stderr, "exi encode: %v\n", err)
		return exitIOErr
	}
	defer in.Close()

	src := xmlio.NewXMLSource(in)
	buf, err := exi.Encode(src, opts, sf.withCookie, 1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "exi encode: %v\n", err)
		return exitDataErr
	}

	if err := os.WriteFile(fs.Arg(1), buf, 0o644); err != nil { // #nosec G306 -- CLI output file, default perms fine
		fmt.Fprintf(os.Stderr, "exi encode: %v\n", err)
		return exitIOErr
	}
	return exitOK
}

// resolveOptions merges the CLI defaults file with per-invocation flags.
// The alignment, strict, value-partition-capacity and preserve flags
// always replace the file's values, even when left at their defaults;
// only compression, self_contained, block_size and schema_id come from
// the file.
func resolveOptions(sf sharedFlags) (exi.HeaderOptions, error) {
	var cfg *config.Config
	var err error
	if sf.configPath != "" {
		cfg, err = config.LoadFrom(sf.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return exi.HeaderOptions{}, err
	}

	cfg.Options.Alignment = sf.align
	cfg.Options.Strict = sf.strict
	cfg.Options.ValueCapacity = sf.valueCapacity

	cfg.Preserve.Comments = false
	cfg.Preserve.DTDs = false
	cfg.Preserve.LexicalValues = false
	cfg.Preserve.PIs = false
	cfg.Preserve.Prefixes = false
	for _, p := range strings.Split(sf.preserve, ",") {
		switch strings.TrimSpace(p) {
		case "comments":
			cfg.Preserve.Comments = true
		case "dtds":
			cfg.Preserve.DTDs = true
		case "lexical-values":
			cfg.Preserve.LexicalValues = true
		case "pis":
			cfg.Preserve.PIs = true
		case "prefixes":
			cfg.Preserve.Prefixes = true
		case "":
		default:
			return exi.HeaderOptions{}, fmt.Errorf("unknown -preserve value %q", p)
		}
	}

	return cfg.HeaderOptions()
}
