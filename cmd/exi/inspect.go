package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hexbind/exi/internal/bitio"
	"github.com/hexbind/exi/internal/exi"
	"github.com/hexbind/exi/internal/inspect"
)

func runInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exi inspect: expected <in.exi>")
		return exitUsage
	}

	buf, err := os.ReadFile(fs.Arg(0)) // #nosec G304 -- user-supplied CLI path
	if err != nil {
		fmt.Fprintf(os.Stderr, "exi inspect: %v\n", err)
		return exitIOErr
	}

	r := bitio.NewReader(buf)
	header, ch, err := exi.DecodeHeader(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "exi inspect: %v\n", err)
		return exitDataErr
	}

	rec := inspect.NewRecorder(discardSerializer{}, ch)
	p := exi.NewProcessor(header.Options)
	if err := p.DecodeBody(ch, rec); err != nil {
		fmt.Fprintf(os.Stderr, "exi inspect: %v\n", err)
		return exitDataErr
	}

	ui := inspect.NewTUI(rec.Records())
	if err := ui.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "exi inspect: %v\n", err)
		return exitIOErr
	}
	return exitOK
}

// discardSerializer satisfies exi.Serializer while doing nothing; the
// inspect command only needs the Recorder's side effects.
type discardSerializer struct{}

func (discardSerializer) SD() (exi.Status, error) { return exi.StatusContinue, nil }
func (discardSerializer) ED() (exi.Status, error) { return exi.StatusContinue, nil }
func (discardSerializer) SE(exi.QName) (exi.Status, error) { return exi.StatusContinue, nil }
func (discardSerializer) EE(exi.QName) (exi.Status, error) { return exi.StatusContinue, nil }
func (discardSerializer) AT(exi.QName, exi.TypedValue) (exi.Status, error) {
	return exi.StatusContinue, nil
}
func (discardSerializer) NS(string, string, bool) (exi.Status, error) {
	return exi.StatusContinue, nil
}
func (discardSerializer) CH(exi.TypedValue) (exi.Status, error) { return exi.StatusContinue, nil }
func (discardSerializer) CM(string) (exi.Status, error)         { return exi.StatusContinue, nil }
func (discardSerializer) PI(string, string) (exi.Status, error) { return exi.StatusContinue, nil }
func (discardSerializer) DT(string, string, string, string) (exi.Status, error) {
	return exi.StatusContinue, nil
}
func (discardSerializer) ER(string) (exi.Status, error)      { return exi.StatusContinue, nil }
func (discardSerializer) SC() (exi.Status, error)            { return exi.StatusContinue, nil }
func (discardSerializer) NeedsPersistence() bool             { return false }
