package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hexbind/exi/internal/exi"
	"github.com/hexbind/exi/internal/xmlio"
)

func runDecode(args []string) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	var sf sharedFlags
	parseShared(fs, &sf)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "exi decode: expected <in.exi> <out.xml>")
		return exitUsage
	}

	opts, err := resolveOptions(sf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "exi decode: %v\n", err)
		return exitUsage
	}

	in, err := os.ReadFile(fs.Arg(0)) // #nosec G304 -- user-supplied CLI path
	if err != nil {
		fmt.Fprintf(os.Stderr, "exi decode: %v\n", err)
		return exitIOErr
	}

	out, err := os.Create(fs.Arg(1)) // #nosec G304 -- user-supplied CLI path
	if err != nil {
		fmt.Fprintf(os.Stderr, "exi decode: %v\n", err)
		return exitIOErr
	}
	defer out.Close()

	// opts becomes the out-of-band fallback; the stream's own in-band
	// options, if present, still win (§4.5 step 3).
	ser := xmlio.NewXMLSerializer(out)
	if err := exi.DecodeWithOptions(in, opts, ser); err != nil {
		fmt.Fprintf(os.Stderr, "exi decode: %v\n", err)
		return exitDataErr
	}
	return exitOK
}
