package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"pipedream/config"
	"pipedream/debug"
	"pipedream/export"
	"pipedream/midi"
	"pipedream/notes"
	"pipedream/oto"
	"pipedream/sequencer"
	"pipedream/synth"
	"pipedream/theme"
	"pipedream/tui"
	"pipedream/tune"
)

func main() {
	link := flag.String("tune", "", "Open a shared tune link (or bare `tune=...` query) instead of the last session.")
	render := flag.String("render", "", "Render the tune to this .wav `file` and exit.")
	drone := flag.Bool("drone", false, "Mix the drone under a rendered tune.")
	importPath := flag.String("import", "", "Add the saved tunes in this .json/.yml `file` to the library and exit.")
	exportPath := flag.String("export", "", "Write the saved-tune library to this .json/.yml `file` and exit.")
	configPath := flag.String("config", "", "Read configuration from `path` instead of ~/.config/pipedream/config.json.")
	debugFlag := flag.Bool("debug", false, "Write a debug log to ~/.config/pipedream/debug.log.")
	strict := flag.Bool("strict", false, "Reject share links containing unknown note letters instead of skipping them.")
	flag.Usage = printUsage
	flag.Parse()

	if *debugFlag || os.Getenv(debug.EnvVar) != "" {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "could not start debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	var store *sequencer.Store
	if dir, err := sequencer.StoreDir(); err == nil {
		store, err = sequencer.OpenStore(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tunes will not be kept: %v\n", err)
		}
	}

	var shared *tune.Tune
	if *link != "" {
		t, err := parseLink(*link, *strict)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		shared = &t
	}

	if *render != "" || *importPath != "" || *exportPath != "" {
		if err := batch(cfg, store, shared, *render, *drone, *importPath, *exportPath); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, store, shared); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func parseLink(raw string, strict bool) (tune.Tune, error) {
	if strict {
		t, err := tune.DecodeStrict(raw)
		if err != nil {
			return tune.Tune{}, fmt.Errorf("could not read -tune link: %w", err)
		}
		return t, nil
	}
	t, ok := tune.Parse(raw)
	if !ok {
		return tune.Tune{}, fmt.Errorf("the -tune link has no %q parameter", tune.TuneKey)
	}
	return t, nil
}

// batch runs the non-interactive commands
func batch(cfg *config.Config, store *sequencer.Store, shared *tune.Tune, render string, drone bool, importPath, exportPath string) error {
	if importPath != "" {
		if store == nil {
			return fmt.Errorf("no storage directory to import into")
		}
		tunes, err := export.ImportFile(importPath)
		if err != nil {
			return fmt.Errorf("could not import: %w", err)
		}
		saved := append(store.LoadSaved(), tunes...)
		if err := store.SaveSaved(saved); err != nil {
			return fmt.Errorf("could not save imported tunes: %w", err)
		}
		fmt.Printf("imported %d tunes (%d in library)\n", len(tunes), len(saved))
	}

	if exportPath != "" {
		var saved []sequencer.SavedTune
		if store != nil {
			saved = store.LoadSaved()
		}
		if err := export.ExportFile(exportPath, saved); err != nil {
			return fmt.Errorf("could not export: %w", err)
		}
		fmt.Printf("exported %d tunes to %s\n", len(saved), exportPath)
	}

	if render != "" {
		var seq notes.Sequence
		switch {
		case shared != nil:
			seq = shared.Notes
		case store != nil:
			seq = store.LoadTune()
		}
		opts := synth.RenderOptions{
			SampleRate:   cfg.Audio.SampleRate,
			NoteDuration: cfg.NoteDuration(),
			Drone:        drone,
			DroneFreq:    cfg.Audio.DroneFrequency,
		}
		if err := export.RenderWAV(render, seq, opts); err != nil {
			return fmt.Errorf("could not render %s: %w", render, err)
		}
		fmt.Printf("rendered %d notes to %s\n", len(seq), render)
	}
	return nil
}

// run starts the interactive app
func run(cfg *config.Config, store *sequencer.Store, shared *tune.Tune) error {
	palette := theme.Default()
	if cfg.UI.Palette != "" {
		p, err := theme.LoadGPL(cfg.UI.Palette)
		if err != nil {
			return fmt.Errorf("could not load palette: %w", err)
		}
		palette = p
	}
	th := theme.New(palette)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := synth.NewEngine(oto.Opener(cfg.Audio.SampleRate))
	defer engine.Close()

	if cfg.MIDI.OutputPort != "" {
		if out, ok := midi.FindOut(cfg.MIDI.OutputPort); ok {
			thru, err := midi.OpenThru(out, uint8(cfg.MIDI.Channel))
			if err != nil {
				debug.Log("midi", "%v", err)
			} else {
				engine.SetObserver(thru)
				defer thru.Close()
			}
		} else {
			debug.Log("midi", "no output port matching %q", cfg.MIDI.OutputPort)
		}
	}

	// Open the output now so the first key press does not wait for it
	go func() {
		wctx, wcancel := context.WithTimeout(ctx, 5*time.Second)
		defer wcancel()
		if _, err := engine.EnsureOutput(wctx); err != nil {
			debug.Log("audio", "%v", err)
		}
	}()

	manager := sequencer.NewManager(engine, store, sequencer.Options{
		NoteDuration: cfg.NoteDuration(),
		DroneFreq:    cfg.Audio.DroneFrequency,
		Inactivity:   cfg.Inactivity(),
		ShareBase:    cfg.Share.BaseURL,
		Clipboard:    os.Stderr,
	})
	defer manager.Close()

	if shared != nil {
		manager.LoadShared(tune.Encode(shared.Notes, shared.Name))
	}

	// Create MIDI device manager (handles hot-plug)
	var deviceMgr *midi.DeviceManager
	if cfg.MIDI.AutoConnect {
		deviceMgr = midi.NewDeviceManager(cfg.MIDI.InputPort)
		go deviceMgr.Run(ctx)
	}

	m := tui.NewModel(manager, deviceMgr, th)
	m.SetDrawerWidth(cfg.UI.DrawerWidth)
	p := tea.NewProgram(m, tea.WithAltScreen())

	_, err := p.Run()
	return err
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "pipedream: write and play bagpipe tunes in the terminal.\nUsage: %s [flags]\n", os.Args[0])
	flag.PrintDefaults()
}
