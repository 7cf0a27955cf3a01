package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/engine"
	"github.com/alexisbeaulieu97/synapse/internal/graph"
	"github.com/alexisbeaulieu97/synapse/internal/logging"
	_ "github.com/alexisbeaulieu97/synapse/internal/nodes"
)

type rootFlags struct {
	speed     float64
	pauseFile string
	speedFile string
	stopFile  string
	noTrace   bool
	settings  string
	logLevel  string
}

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")).Bold(true)

func renderError(err error) string {
	return errorStyle.Render("error: ") + err.Error()
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "synapse [file]",
		Short:         "Synapse executes declarative node graphs as live dataflow programs",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			return runGraph(cmd, file, flags)
		},
	}

	cmd.Flags().Float64Var(&flags.speed, "speed", 0, "Per-node execution delay in seconds, for visualization")
	cmd.Flags().StringVar(&flags.pauseFile, "pause-file", "", "Pause execution while this file exists")
	cmd.Flags().StringVar(&flags.speedFile, "speed-file", "", "Read an override delay from this file each pulse")
	cmd.Flags().StringVar(&flags.stopFile, "stop-file", "", "Stop gracefully when this file appears")
	cmd.Flags().BoolVar(&flags.noTrace, "no-trace", false, "Suppress per-node trace lines")
	cmd.Flags().StringVar(&flags.settings, "settings", "", "Runner settings YAML file")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newVersionCmd())

	return cmd
}

func runGraph(cmd *cobra.Command, file string, flags *rootFlags) error {
	settings := graph.DefaultSettings()
	if flags.settings != "" {
		loaded, err := graph.LoadSettings(flags.settings)
		if err != nil {
			return err
		}
		settings = loaded
	}

	log, err := logging.New(logging.Options{
		Level:     flags.logLevel,
		Component: "cli",
	})
	if err != nil {
		return err
	}

	var doc *graph.Document
	if file != "" {
		log.Info("loading graph", "file", file)
		doc, err = graph.ParseFile(file)
		if err != nil {
			return err
		}
	} else {
		log.Info("no input file provided, running built-in demo graph")
		doc, _, err = graph.ParseBytes([]byte(demoGraph), "demo")
		if err != nil {
			return err
		}
	}

	b := bridge.New(log.With("component", "bridge"))
	defer b.Close()

	delay := time.Duration(flags.speed * float64(time.Second))
	if delay == 0 && settings.DelayMS > 0 {
		delay = time.Duration(settings.DelayMS) * time.Millisecond
	}

	eng := engine.New(b, engine.Options{
		Delay:        delay,
		PauseFile:    flags.pauseFile,
		SpeedFile:    flags.speedFile,
		StopFile:     flags.stopFile,
		Trace:        settings.Trace && !flags.noTrace,
		TraceWriter:  cmd.OutOrStdout(),
		BackStep:     settings.BackStep,
		HistoryDepth: settings.HistoryDepth,
		Workers:      settings.Parallel,
		SourceFile:   file,
		Logger:       log.With("component", "engine"),
	})

	loaded, err := engine.Load(doc, eng)
	if err != nil {
		return err
	}

	startID, err := engine.ValidateEntryPoints(loaded)
	if err != nil {
		return err
	}

	log.Info("graph loaded, starting execution", "start", startID, "nodes", len(loaded))
	if err := eng.Run(startID); err != nil {
		return err
	}

	if payload, ok := b.Get("SUBGRAPH_RETURN").(map[string]interface{}); ok && len(payload) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "return: %v\n", payload)
	}

	log.Info("run finished")
	return nil
}
