package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hajimehoshi/ebiten/v2/audio"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-looper/config"
	"go-looper/controls"
	"go-looper/debug"
	"go-looper/looper"
	"go-looper/midi"
	"go-looper/sequencer"
	"go-looper/synth"
	"go-looper/theme"
	"go-looper/tui"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/go-looper/config.json)")
	writeConfig := flag.Bool("write-config", false, "write the effective config back to disk and exit")
	flag.Parse()

	if err := run(*configPath, *writeConfig); err != nil {
		fmt.Fprintf(os.Stderr, "go-looper: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, writeConfig bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if writeConfig {
		if configPath != "" {
			return cfg.SaveTo(configPath)
		}
		return cfg.Save()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Log.File != "" {
		level, _ := debug.ParseLevel(cfg.Log.Level)
		if err := debug.Enable(cfg.Log.File, level); err != nil {
			return err
		}
		defer debug.Disable()
	}

	table, err := cfg.ControlMap()
	if err != nil {
		return err
	}
	palette, err := theme.LoadOrDefault(cfg.UI.Palette)
	if err != nil {
		return err
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}
	defer out.close()
	defer gomidi.CloseDriver()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seq := sequencer.New(cfg.Clock.TicksPerSecond)
	go func() {
		if err := seq.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			debug.Warn("seq", "dispatch loop: %v", err)
		}
	}()

	handler := looper.NewRecordHandler(seq, out.sink, table, cfg.Clock.Period)

	// Splits re-channel first so the recorded and the live events agree.
	var chain []midi.Handler
	if cfg.Splits != 0 {
		split, err := controls.NewSplitHandler(cfg.Splits, table)
		if err != nil {
			return err
		}
		chain = append(chain, split)
	}
	chain = append(chain,
		controls.NewEffectHandler(out.params, table),
		controls.NewFilterHandler(out.params, table),
		handler,
	)
	router := controls.NewRouter(thru{seq: seq, dst: out.sink}, chain...)

	deviceMgr := midi.NewDeviceManager(cfg.Keyboard.Match, cfg.Keyboard.Exclude)
	go deviceMgr.Run(ctx)

	m := tui.NewModel(handler, deviceMgr, seq, theme.New(palette))
	m.OnConnect = func(c midi.Controller) {
		go route(c, router)
	}
	if dir, err := config.SessionsDir(); err == nil {
		m.SessionsDir = dir
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// route feeds one keyboard's events through the handler chain until the
// keyboard goes away.
func route(c midi.Controller, router *controls.Router) {
	debug.Log("route", "routing %s", c.ID())
	for ev := range c.Events() {
		if err := router.Dispatch(ev); err != nil {
			debug.Log("route", "%s: %s: %v", c.ID(), ev, err)
		}
	}
	debug.Log("route", "%s closed", c.ID())
}

// thru plays live events immediately through the sequencer.
type thru struct {
	seq *sequencer.Sequencer
	dst midi.Sink
}

func (t thru) Send(ev midi.Event) error { return t.seq.Send(t.dst, ev) }

type output struct {
	sink   midi.Sink
	params controls.ParamSink
	close  func()
}

func openOutput(cfg config.OutputConfig) (*output, error) {
	switch cfg.Kind {
	case config.OutputPort:
		port, err := synth.OpenPort(cfg.PortName, uint8(cfg.Channel))
		if err != nil {
			return nil, err
		}
		debug.Log("synth", "output port %s", port.Name())
		return &output{sink: port, params: port, close: func() {}}, nil

	case config.OutputMelty:
		melty, err := synth.LoadMelty(cfg.SoundFont)
		if err != nil {
			return nil, err
		}
		audioCtx := audio.NewContext(synth.SampleRate)
		player, err := audioCtx.NewPlayer(melty)
		if err != nil {
			return nil, fmt.Errorf("audio player: %w", err)
		}
		player.SetBufferSize(30 * time.Millisecond)
		player.Play()
		return &output{
			sink:   melty,
			params: melty,
			close: func() {
				melty.AllNotesOff()
				player.Pause()
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown output kind %q", cfg.Kind)
}
