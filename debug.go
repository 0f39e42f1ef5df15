package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/howeyc/fsnotify"
	"github.com/rivo/tview"

	"github.com/aryanA101a/rvm/console"
	"github.com/aryanA101a/rvm/vm"
)

const (
	inputBufferSize = 4096
	stepBatch       = 1 << 12
	reportInterval  = 50 * time.Millisecond
)

type stateKind int

const (
	clearState stateKind = iota
	quietState
	pauseState
	breakState
	haltState
)

type command struct {
	name string
	n    int
	sym  *symbol
	text string
}

var (
	errCommand = errors.New("unknown command")
	errAddress = errors.New("address required")
)

// parseCommand parses a line typed into the debugger.
func parseCommand(line string, syms symbols) (command, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "s", "step":
		cmd := command{name: "step", n: 1}
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				return command{}, fmt.Errorf("invalid step count %q", arg)
			}
			cmd.n = n
		}
		return cmd, nil
	case "c", "cont":
		return command{name: "cont"}, nil
	case "p", "pause":
		return command{name: "pause"}, nil
	case "b", "break", "w", "watch":
		cmd := command{name: "break"}
		if name[0] == 'w' {
			cmd.name = "watch"
		}
		if arg == "" {
			if cmd.name == "watch" {
				return command{}, errAddress
			}
			return cmd, nil
		}
		s, ok := syms.resolve(arg)
		if !ok {
			return command{}, fmt.Errorf("invalid address %q", arg)
		}
		cmd.sym = &s
		return cmd, nil
	case "in":
		// Keep the text exactly as typed after the first space.
		_, text, _ := strings.Cut(strings.TrimLeft(line, " "), " ")
		return command{name: "in", text: text + "\n"}, nil
	case "reset", "exit":
		return command{name: name}, nil
	}
	return command{}, fmt.Errorf("%w %q", errCommand, name)
}

type debugger struct {
	opts  vm.Options
	paths []string
	cmds  chan command

	log   *tview.TextView
	watch *tview.TextView
	state *tview.TextView
	input *tview.InputField
	cols  *tview.Flex
	rows  *tview.Flex
	app   *tview.Application

	mu    sync.Mutex
	syms  symbols
	queue *console.Queue

	// Owned by the machine goroutine.
	m       *vm.VM
	brk     *symbol
	watches []symbol
}

func (d *debugger) symbols() symbols {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syms
}

func (d *debugger) console() *console.Queue {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue
}

// interrupt ends the current console input, so a machine blocked in GETC
// or IN returns to the command loop.
func (d *debugger) interrupt() {
	if q := d.console(); q != nil {
		q.Close()
	}
}

func debugMode(opts vm.Options, paths []string) error {
	for i := range paths {
		paths[i] = filepath.Clean(paths[i])
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	watched := map[string]bool{}
	for _, path := range paths {
		dir := filepath.Dir(path)
		if watched[dir] {
			continue
		}
		if err := watcher.Watch(dir); err != nil {
			return err
		}
		watched[dir] = true
	}

	d := newDebugger(opts, paths)
	if err := d.load(); err != nil {
		return err
	}

	log.SetPrefix("")
	log.SetOutput(d.log)
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetPrefix("rvm: ")
	}()

	go d.runMachine()
	go d.watchFiles(watcher)

	err = d.app.Run()
	d.interrupt()
	select {
	case d.cmds <- command{name: "exit"}:
	default:
	}
	return err
}

func newDebugger(opts vm.Options, paths []string) *debugger {
	d := &debugger{
		opts:  opts,
		paths: paths,
		cmds:  make(chan command, 16),
		log: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.cols.
		AddItem(d.watch, 0, 1, false).
		AddItem(d.log, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 3, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetAutocompleteFunc(func(t string) (entries []string) {
		if cmd, arg, ok := strings.Cut(t, " "); ok {
			switch cmd {
			case "b", "break", "w", "watch":
				for _, s := range d.symbols().withLabelPrefix(arg) {
					entries = append(entries, cmd+" "+s.label)
				}
			}
		}
		return
	})
	d.input.SetAutocompletedFunc(func(t string, index, src int) bool {
		if src != tview.AutocompletedNavigate {
			d.input.SetText(t)
		}
		return src == tview.AutocompletedEnter || src == tview.AutocompletedClick
	})
	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		line := d.input.GetText()
		if line == "" {
			return
		}
		d.input.SetText("")
		cmd, err := parseCommand(line, d.symbols())
		if err != nil {
			log.Print(err)
			return
		}
		switch cmd.name {
		case "exit":
			d.app.Stop()
		case "in":
			// The event loop must not block on a full queue.
			if n := d.console().Offer([]byte(cmd.text)); n < len(cmd.text) {
				log.Printf("input buffer full: dropped %d bytes", len(cmd.text)-n)
			}
		case "reset":
			d.interrupt()
			d.cmds <- cmd
		default:
			d.cmds <- cmd
		}
	})
	return d
}

// load builds a fresh machine from the image files. The current machine
// is kept if any image fails to load.
func (d *debugger) load() error {
	queue := console.NewQueue(d.log, inputBufferSize)
	m := vm.New(queue, d.opts)
	labels, err := loadImages(m, d.paths)
	if err != nil {
		queue.Close()
		return err
	}

	d.mu.Lock()
	if d.queue != nil {
		d.queue.Close()
	}
	d.queue = queue
	d.syms = newSymbols(labels)
	d.mu.Unlock()

	d.m = m
	return nil
}

// watchFiles requests a reset when one of the image files changes.
func (d *debugger) watchFiles(watcher *fsnotify.Watcher) {
	var reload <-chan time.Time
	for {
		select {
		case <-reload:
			log.Printf("reloading")
			d.interrupt()
			d.cmds <- command{name: "reset"}
			reload = nil
		case ev, ok := <-watcher.Event:
			if !ok {
				return
			}
			if d.watching(ev.Name) && !ev.IsAttrib() {
				reload = time.After(100 * time.Millisecond)
			}
		case err, ok := <-watcher.Error:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)
		}
	}
}

func (d *debugger) watching(name string) bool {
	name = filepath.Clean(name)
	for _, path := range d.paths {
		if path == name {
			return true
		}
	}
	return false
}

// runMachine owns the machine. It executes commands and, while the
// machine is continuing or stepping, instructions.
func (d *debugger) runMachine() {
	var (
		running bool
		steps   int
		resumed bool
		halted  bool
		last    time.Time
	)
	log.Printf("loaded %s; paused", strings.Join(d.paths, " "))
	d.report(pauseState)

	for {
		var cmd command
		if running || steps > 0 {
			select {
			case cmd = <-d.cmds:
			default:
			}
		} else {
			cmd = <-d.cmds
		}

		switch cmd.name {
		case "":
		case "exit":
			return
		case "step", "cont":
			if halted {
				log.Print("halted; reset to run again")
				break
			}
			resumed = true
			if cmd.name == "step" {
				running, steps = false, cmd.n
			} else {
				running, steps = true, 0
			}
		case "pause":
			running, steps = false, 0
			d.report(pauseState)
		case "break":
			d.brk = cmd.sym
			if cmd.sym == nil {
				log.Print("cleared break")
			} else {
				log.Printf("set break %v", *cmd.sym)
			}
			d.report(quietState)
		case "watch":
			d.watches = append(d.watches, *cmd.sym)
			log.Printf("watching %v", *cmd.sym)
			d.report(quietState)
		case "reset":
			if err := d.load(); err != nil {
				log.Print(err)
				break
			}
			running, steps, halted = false, 0, false
			log.Print("reset")
			d.report(pauseState)
		}

		for i := 0; i < stepBatch && (running || steps > 0); i++ {
			if running && !resumed && d.brk != nil && d.m.Registers().PC == d.brk.addr {
				running = false
				d.report(breakState)
				break
			}
			resumed = false

			err := d.m.Step()
			if err != nil || !d.m.Running() {
				if err != nil {
					log.Printf("vm: %v", err)
				}
				running, steps, halted = false, 0, true
				d.report(haltState)
				break
			}
			if steps > 0 {
				if steps--; steps == 0 {
					d.report(pauseState)
				}
			}
		}
		if running && time.Since(last) > reportInterval {
			d.report(clearState)
			last = time.Now()
		}
	}
}

// report updates the watch and state panes from the machine.
func (d *debugger) report(k stateKind) {
	var (
		watch = d.watchContent()
		state string
	)
	if k != quietState {
		state = stateMsg(d.symbols(), d.m, k)
	}
	d.app.QueueUpdateDraw(func() {
		switch k {
		case clearState:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case breakState:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case pauseState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case haltState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.watch.SetText(watch)
		if k != quietState {
			d.state.SetText(state)
		}
	})
}

func stateMsg(syms symbols, m *vm.VM, k stateKind) string {
	var (
		reg   = m.Registers()
		instr = m.Memory().Peek(reg.PC)
		pcSym string
	)
	if s := syms.forAddr(reg.PC); len(s) > 0 {
		pcSym = s[0].label
	}
	kind := "       "
	switch k {
	case breakState:
		kind = "[break]"
	case pauseState:
		kind = "[pause]"
	case haltState:
		kind = "[HALT!]"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%.4x %-20s %s %s\n", reg.PC, vm.Disassemble(reg.PC, instr), kind, pcSym)
	for i, r := range reg.R {
		fmt.Fprintf(&b, "R%d %.4x  ", i, r)
	}
	fmt.Fprintf(&b, "\nCOND %v\n", reg.Cond)
	return b.String()
}

func (d *debugger) watchContent() string {
	var b strings.Builder
	if s := d.brk; s != nil {
		fmt.Fprintf(&b, "%v brk!\n", *s)
	}
	mem := d.m.Memory()
	for _, w := range d.watches {
		fmt.Fprintf(&b, "%v %.4x\n", w, mem.Peek(w.addr))
	}
	return b.String()
}
