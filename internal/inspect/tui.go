// Package inspect implements the `exi inspect` text user interface: a
// scrollable, navigable view over one decoded document's event trace,
// built from a recorded []exi.Event plus the wire-layout annotations the
// decoder collects alongside them. Grounded on the debugger TUI of
// lookbusy1344-arm_emulator (gdamore/tcell + rivo/tview, global
// input-capture key bindings, a command line, an output log).
package inspect

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/hexbind/exi/internal/exi"
)

// Record pairs one decoded event with a wire position, so the tree view
// can show it alongside content. Recorder fills BitOffset with the
// channel position at the time its callback runs, which is after the
// event's code and content were read; Recorder does not set CodeLength,
// so it stays 0.
type Record struct {
	Event      exi.Event
	BitOffset  int
	CodeLength int
}

// TUI is the inspect browser: a tree of events on the left, a detail
// panel and raw-bits view on the right, and a command line that accepts
// only "quit" or "q".
type TUI struct {
	App  *tview.Application
	Root *tview.TreeView

	Detail  *tview.TextView
	RawBits *tview.TextView
	Status  *tview.TextView
	Command *tview.InputField

	Layout *tview.Flex

	records []Record
}

func NewTUI(records []Record) *TUI {
	t := &TUI{records: records}
	t.App = tview.NewApplication()
	t.initViews()
	t.buildLayout()
	t.setupKeyBindings()
	return t
}

func (t *TUI) initViews() {
	root := tview.NewTreeNode("document").SetColor(tcell.ColorYellow)
	t.Root = tview.NewTreeView().SetRoot(root).SetCurrentNode(root)
	t.Root.SetBorder(true).SetTitle(" Events ")

	t.populateTree(root)

	t.Detail = tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	t.Detail.SetBorder(true).SetTitle(" Detail ")

	t.RawBits = tview.NewTextView().SetDynamicColors(true)
	t.RawBits.SetBorder(true).SetTitle(" Wire Position ")

	t.Status = tview.NewTextView().SetDynamicColors(true)
	t.Status.SetBorder(true).SetTitle(" Status ")

	t.Command = tview.NewInputField().SetLabel("> ").SetFieldWidth(0)
	t.Command.SetBorder(true).SetTitle(" Command ")
	t.Command.SetDoneFunc(t.handleCommand)

	t.Root.SetSelectedFunc(func(node *tview.TreeNode) {
		idx, ok := node.GetReference().(int)
		if !ok {
			return
		}
		t.showRecord(idx)
	})
}

func (t *TUI) populateTree(root *tview.TreeNode) {
	depth := 0
	for i, rec := range t.records {
		switch rec.Event.Kind {
		case exi.EventEE:
			depth--
		}
		label := fmt.Sprintf("%s%s", strings.Repeat("  ", maxInt(depth, 0)), describeEvent(rec.Event))
		node := tview.NewTreeNode(label).SetReference(i)
		root.AddChild(node)
		if rec.Event.Kind == exi.EventSE {
			depth++
		}
	}
}

func describeEvent(ev exi.Event) string {
	switch ev.Kind {
	case exi.EventSD:
		return "SD"
	case exi.EventED:
		return "ED"
	case exi.EventSE:
		return "SE " + ev.QName.Local
	case exi.EventEE:
		return "EE"
	case exi.EventAT:
		return "AT " + ev.QName.Local + "=" + ev.Value.Lex
	case exi.EventCH:
		return "CH " + ev.Value.Lex
	case exi.EventNS:
		return "NS " + ev.NSPrefix + "=" + ev.NSUri
	case exi.EventCM:
		return "CM"
	case exi.EventPI:
		return "PI " + ev.PITarget
	case exi.EventDT:
		return "DT " + ev.DTName
	case exi.EventER:
		return "ER " + ev.Text
	case exi.EventSC:
		return "SC"
	default:
		return "?"
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (t *TUI) buildLayout() {
	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.Detail, 0, 2, false).
		AddItem(t.RawBits, 5, 0, false)

	content := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(t.Root, 0, 1, true).
		AddItem(right, 0, 2, false)

	t.Layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(content, 0, 4, true).
		AddItem(t.Status, 3, 0, false).
		AddItem(t.Command, 3, 0, false)
}

func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		case tcell.KeyTab:
			if t.App.GetFocus() == t.Root {
				t.App.SetFocus(t.Command)
			} else {
				t.App.SetFocus(t.Root)
			}
			return nil
		}
		return event
	})
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := strings.TrimSpace(t.Command.GetText())
	t.Command.SetText("")
	if cmd == "" {
		return
	}
	switch {
	case cmd == "quit" || cmd == "q":
		t.App.Stop()
	default:
		t.Status.SetText(fmt.Sprintf("[red]unknown command:[white] %s", cmd))
	}
}

func (t *TUI) showRecord(idx int) {
	if idx < 0 || idx >= len(t.records) {
		return
	}
	rec := t.records[idx]
	t.Detail.SetText(fmt.Sprintf("kind: %s\nqname: %s:%s\nvalue: %s",
		rec.Event.Kind, rec.Event.QName.URI, rec.Event.QName.Local, rec.Event.Value.Lex))
	t.RawBits.SetText(fmt.Sprintf("bit offset: %d\ncode length: %d bits", rec.BitOffset, rec.CodeLength))
}

// Run starts the TUI's event loop. Blocks until the user quits.
func (t *TUI) Run() error {
	t.Status.SetText("[green]exi inspect[white] — arrows to navigate, enter to select, tab to switch focus, q to quit")
	return t.App.SetRoot(t.Layout, true).SetFocus(t.Root).Run()
}

func (t *TUI) Stop() {
	t.App.Stop()
}
