package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-looper/controls"
	"go-looper/midi"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		filter := ""
		if len(os.Args) > 2 {
			filter = os.Args[2]
		}
		monitor(filter)
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list             - List all MIDI ports")
	fmt.Println("  monitor [name]   - Print events and their looper action")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := gomidi.GetInPorts()
		outs := gomidi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

// monitor listens on every input whose name contains filter and prints each
// decoded event with the action the default controller table gives it.
func monitor(filter string) {
	table := controls.DefaultMap()
	filter = strings.ToLower(filter)

	var kbs []*midi.KeyboardController
	for _, in := range gomidi.GetInPorts() {
		if !strings.Contains(strings.ToLower(in.String()), filter) {
			continue
		}
		kb, err := midi.NewKeyboardController(in.String(), in)
		if err != nil {
			fmt.Printf("skip %s: %v\n", in.String(), err)
			continue
		}
		fmt.Printf("listening on %s\n", in.String())
		kbs = append(kbs, kb)
	}
	if len(kbs) == 0 {
		fmt.Println("no matching input ports")
		return
	}

	start := time.Now()
	for _, kb := range kbs {
		go func(kb *midi.KeyboardController) {
			for ev := range kb.Events() {
				line := fmt.Sprintf("%8.3fs  %-14s %s", time.Since(start).Seconds(), kb.ID(), ev)
				if ev.Type == midi.CC {
					line += "  -> " + table.Lookup(ev.Control()).String()
				}
				fmt.Println(line)
			}
		}(kb)
	}

	fmt.Println("Ctrl+C to stop")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig

	for _, kb := range kbs {
		kb.Close()
	}
	gomidi.CloseDriver()
}
