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

	"pipedream/midi"
	"pipedream/notes"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	arg := ""
	if len(os.Args) > 2 {
		arg = os.Args[2]
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "detect":
		detectKeyboards(arg)
	case "monitor":
		monitor(arg)
	case "thru":
		playScale(arg)
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list            - List all MIDI ports")
	fmt.Println("  detect [name]   - Show which inputs would be used as keyboards")
	fmt.Println("  monitor [name]  - Print played notes and the chanter note each maps to")
	fmt.Println("  thru <name>     - Play the chanter scale out of an output port")
	fmt.Println("  poll            - Poll for device changes")
}

func getPorts() ([]drivers.In, []drivers.Out, bool) {
	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ch <- result{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		return r.ins, r.outs, true
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return nil, nil, false
	}
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ins, outs, ok := getPorts()
	if !ok {
		return
	}
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
}

func detectKeyboards(match string) {
	match = strings.ToLower(match)
	ins, _, ok := getPorts()
	if !ok {
		return
	}
	found := 0
	for i, p := range ins {
		if midi.IsKeyboardPort(p.String(), match) {
			fmt.Printf("Keyboard: %d: %s\n", i, p.String())
			found++
		}
	}
	if found == 0 {
		fmt.Println("No keyboard found")
	}
}

func monitor(match string) {
	match = strings.ToLower(match)
	ins, _, ok := getPorts()
	if !ok {
		return
	}
	var in drivers.In
	for _, p := range ins {
		if midi.IsKeyboardPort(p.String(), match) {
			in = p
			break
		}
	}
	if in == nil {
		fmt.Println("No keyboard found")
		return
	}

	kb, err := midi.NewKeyboardController(in.String(), in)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer kb.Close()

	fmt.Printf("Listening on %s. Ctrl+C to exit.\n", kb.ID())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	for {
		select {
		case evt := <-kb.NoteEvents():
			s := midi.SymbolFor(evt.Note)
			fmt.Printf("  note %3d vel %3d ch %2d -> %-6s (%s)\n",
				evt.Note, evt.Velocity, evt.Channel, notes.Label(s), string(notes.Letter(s)))
		case <-sig:
			return
		}
	}
}

func playScale(name string) {
	out, ok := midi.FindOut(name)
	if !ok {
		fmt.Printf("No output port matching %q\n", name)
		return
	}

	thru, err := midi.OpenThru(out, 0)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer thru.Close()

	fmt.Printf("Playing the scale on %s\n", out.String())
	thru.DroneChanged(true, notes.DroneFrequency)
	for _, s := range notes.All {
		fmt.Printf("  %-6s note %d\n", notes.Label(s), midi.NoteFor(s))
		thru.NoteStarted(s, 400*time.Millisecond)
		time.Sleep(500 * time.Millisecond)
	}
	thru.DroneChanged(false, notes.DroneFrequency)
	fmt.Println("Done!")
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a keyboard to test. Ctrl+C to exit.")

	lastIn := ""
	lastOut := ""

	for {
		ins := gomidi.GetInPorts()
		outs := gomidi.GetOutPorts()

		// Build current state
		var inNames, outNames []string
		for _, p := range ins {
			inNames = append(inNames, p.String())
		}
		for _, p := range outs {
			outNames = append(outNames, p.String())
		}

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			for _, name := range inNames {
				if midi.IsKeyboardPort(name, "") {
					fmt.Printf("  -> keyboard: %s\n", name)
				}
			}

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}
