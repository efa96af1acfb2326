package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/husk-dev/husk/internal/analyzer"
	"github.com/husk-dev/husk/internal/output"
	"github.com/husk-dev/husk/internal/progress"
	"github.com/husk-dev/husk/pkg/models"
)

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Aliases:   []string{"sec"},
		Usage:     "Scan Python source for security issues",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "severity",
				Usage: "Minimum severity to report: low, medium, high, critical",
			},
			&cli.StringFlag{
				Name:  "fail-on",
				Usage: "Exit nonzero when findings at or above this severity exist",
			},
		},
		Action: runScanCmd,
	}
}

func runScanCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	a := analyzer.New(cfg)

	var tracker *progress.Tracker
	a.OnDiscover = func(total int) {
		tracker = progress.NewTracker("Scanning for security issues...", total, cfg.Output.Verbose)
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

	result, err := a.AnalyzeSecurity(c.Context, getPath(c))
	if tracker != nil {
		tracker.Finish()
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if min := models.ParseSeverity(c.String("severity")).Rank(); min > 0 {
		kept := result.Findings[:0]
		for _, f := range result.Findings {
			if f.Severity.Rank() >= min {
				kept = append(kept, f)
			}
		}
		result.Findings = kept
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if len(result.Findings) == 0 && formatter.Format() == output.FormatText {
		formatter.Success("No security findings (%d files scanned)", result.FilesScanned)
		return nil
	}
	if err := formatter.Output(output.SecurityReport(result, formatter.Colored())); err != nil {
		return err
	}

	if failOn := models.ParseSeverity(c.String("fail-on")).Rank(); failOn > 0 {
		for _, f := range result.Findings {
			if f.Severity.Rank() >= failOn {
				return cli.Exit(fmt.Sprintf("findings at or above %s severity", c.String("fail-on")), 1)
			}
		}
	}
	return nil
}
