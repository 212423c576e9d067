// Command hubbub-preview renders a saved GitHub events dump once, without polling.
//
// The input is a JSON array as returned by the GitHub events endpoints, e.g.
//
//	curl -s https://api.github.com/orgs/golang/events > events.json
//	hubbub-preview -input events.json -view punchcard
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rewired-gh/hubbub/internal/colors"
	"github.com/rewired-gh/hubbub/internal/config"
	"github.com/rewired-gh/hubbub/internal/display"
	"github.com/rewired-gh/hubbub/internal/github"
	"github.com/rewired-gh/hubbub/internal/logger"
	"github.com/rewired-gh/hubbub/internal/render"
	"github.com/rewired-gh/hubbub/internal/storage"
)

func main() {
	input := flag.String("input", "-", "Events JSON file, - for stdin")
	configPath := flag.String("config", "", "Optional configuration file for the color rules")
	view := flag.String("view", render.ViewStream, "View to render: stream or punchcard")
	highlight := flag.String("highlight", "", "Actor whose events are brightened")
	allDays := flag.Bool("all-days", false, "Include events from before today")
	flag.Parse()

	logger.Init("info", "text")

	table := colors.DefaultTable()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("Failed to load config: %v", err)
		}
		table = cfg.Colors
	}

	events, err := readEvents(*input)
	if err != nil {
		logger.Fatal("Failed to read events: %v", err)
	}

	window := storage.New()
	added := window.Ingest(github.ToEvents(events))

	opts := render.Options{Highlight: *highlight}
	if *allDays {
		todayOnly := false
		opts.TodayOnly = &todayOnly
	}
	v, err := render.New(*view, display.NewTerminal(os.Stdout), colors.NewResolver(table), opts)
	if err != nil {
		logger.Fatal("%v", err)
	}
	v.AddEvents(added)

	if len(v.Events()) == 0 {
		fmt.Fprintf(os.Stderr, "no events to render (%d read, %d distinct)\n", len(events), len(added))
		os.Exit(1)
	}
	if err := v.Render(); err != nil {
		logger.Fatal("Render failed: %v", err)
	}
	fmt.Printf("%s: %d of %d events\n", v.Name(), len(v.Events()), len(added))
}

func readEvents(path string) ([]github.APIEvent, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var events []github.APIEvent
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}
