// Command screencap is a terminal UI for recording the screen together with
// the microphone. It talks to a capture engine daemon over a unix socket and
// falls back to a built-in synthetic engine for demos.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jfelder/screencap/internal/app"
	"github.com/jfelder/screencap/internal/engine"
	"github.com/jfelder/screencap/internal/history"
	"github.com/jfelder/screencap/internal/media"
	"github.com/jfelder/screencap/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	var (
		engineName = flag.String("engine", "daemon", "capture engine: daemon or synthetic")
		socketPath = flag.String("socket", engine.SocketPath(), "capture engine socket path")
		outDir     = flag.String("out", defaultOutDir(), "directory downloads are written to")
		maxDur     = flag.Duration("max", session.DefaultMaxDuration, "maximum recording duration")
		dbPath     = flag.String("db", history.DefaultDBPath(), "history database path (empty to disable)")
	)
	flag.Parse()

	var eng media.Engine
	switch *engineName {
	case "synthetic":
		eng = &media.SyntheticEngine{}
	case "daemon":
		e, err := engine.Dial(*socketPath)
		if err != nil {
			// No daemon means recording is unsupported; the TUI still
			// runs and shows history plus a persistent notice.
			eng = &media.SyntheticEngine{Unsupported: true}
		} else {
			eng = e
			defer e.Close()
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown engine %q\n", *engineName)
		os.Exit(2)
	}

	var store *history.Store
	if *dbPath != "" {
		s, err := history.Open(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		} else {
			store = s
			defer s.Close()
		}
	}

	controller := session.New(eng, session.Options{MaxDuration: *maxDur})

	p := tea.NewProgram(app.New(controller, store, *outDir), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func defaultOutDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home + "/Downloads"
}
