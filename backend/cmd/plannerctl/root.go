// Package main implements plannerctl, a command-line client for driving
// the planning core without going through the HTTP surface: useful for
// ad-hoc schedule/evaluate/replan runs against a POI/policy fixture file.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// App holds the output stream shared by plannerctl's subcommands,
// following abramin-kairos's App-struct-plus-newXCmd(app) cobra wiring
// pattern.
type App struct {
	out *os.File
}

// NewRootCmd creates the top-level "plannerctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "plannerctl",
		Short: "Drive the itinerary planning core from the command line",
		Long: `plannerctl runs the planning core's scheduler, robustness
evaluator, what-if engine, and replanner directly against a local
fixture file, without starting the HTTP server.`,
	}

	root.AddCommand(
		newScheduleCmd(app),
		newEvaluateCmd(app),
		newReplanCmd(app),
	)

	return root
}

func main() {
	app := &App{out: os.Stdout}
	if err := NewRootCmd(app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readFixture(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return nil
}
