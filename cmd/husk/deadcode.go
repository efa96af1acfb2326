package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/husk-dev/husk/internal/analyzer"
	"github.com/husk-dev/husk/internal/output"
	"github.com/husk-dev/husk/internal/progress"
)

func deadcodeCmd() *cli.Command {
	return &cli.Command{
		Name:      "deadcode",
		Aliases:   []string{"dc"},
		Usage:     "Find unused functions, classes, imports, variables, and parameters",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "confidence",
				Value: 60,
				Usage: "Minimum confidence to report a symbol (0-100)",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Disable simple-name fallback matching",
			},
		},
		Action: runDeadcodeCmd,
	}
}

func runDeadcodeCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("confidence") {
		cfg.Thresholds.Confidence = c.Int("confidence")
	}
	if c.IsSet("strict") {
		cfg.Analysis.Strict = c.Bool("strict")
	}

	a := analyzer.New(cfg)

	var tracker *progress.Tracker
	a.OnDiscover = func(total int) {
		tracker = progress.NewTracker("Scanning for dead code...", total, cfg.Output.Verbose)
	}
	a.OnProgress = func() {
		if tracker != nil {
			tracker.Tick()
		}
	}
	if cfg.Output.Verbose {
		a.OnWarning = func(path string, err error) {
			color.Yellow("warning: %s: %v", path, err)
		}
	}

	result, err := a.AnalyzeDeadCode(c.Context, getPath(c))
	if tracker != nil {
		tracker.Finish()
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if result.Total() == 0 && formatter.Format() == output.FormatText {
		formatter.Success("No unused symbols at confidence >= %d (%d files analyzed)",
			cfg.Thresholds.Confidence, result.Summary.TotalFiles)
		return nil
	}
	return formatter.Output(output.DeadCodeReport(result))
}
