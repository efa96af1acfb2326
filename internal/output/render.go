package output

import (
	"fmt"
	"strconv"

	"github.com/husk-dev/husk/pkg/models"
)

// DeadCodeReport builds a Renderable from a dead-code result, one table per
// symbol category.
func DeadCodeReport(result *models.DeadCodeResult) Renderable {
	report := &Report{
		Title: "Unreachable Code",
		Data:  result,
	}

	sections := []struct {
		title   string
		symbols []models.UnusedSymbol
	}{
		{"Unused Functions & Methods", result.UnusedFunctions},
		{"Unused Classes", result.UnusedClasses},
		{"Unused Imports", result.UnusedImports},
		{"Unused Variables", result.UnusedVariables},
		{"Unused Parameters", result.UnusedParameters},
	}

	for _, s := range sections {
		if len(s.symbols) == 0 {
			continue
		}
		rows := make([][]string, 0, len(s.symbols))
		for _, sym := range s.symbols {
			rows = append(rows, []string{
				sym.SimpleName,
				fmt.Sprintf("%s:%d", sym.File, sym.Line),
				strconv.Itoa(sym.Confidence),
			})
		}
		report.Sections = append(report.Sections, &Table{
			Title:   fmt.Sprintf("%s (%d)", s.title, len(s.symbols)),
			Headers: []string{"Name", "Location", "Confidence"},
			Rows:    rows,
		})
	}

	report.Sections = append(report.Sections, &Table{
		Headers: []string{"Files Analyzed", "Failed", "Unused Symbols"},
		Rows: [][]string{{
			strconv.Itoa(result.Summary.TotalFiles),
			strconv.Itoa(result.Summary.FailedFiles),
			strconv.Itoa(result.Total()),
		}},
	})

	return report
}

// SecurityReport builds a Renderable from security findings.
func SecurityReport(result *models.SecurityResult, colored bool) Renderable {
	rows := make([][]string, 0, len(result.Findings))
	for _, f := range result.Findings {
		sev := string(f.Severity)
		if colored {
			sev = SeverityColor(sev, sev)
		}
		rows = append(rows, []string{
			f.RuleID,
			sev,
			fmt.Sprintf("%s:%d", f.File, f.Line),
			f.Message,
		})
	}

	bySeverity := result.CountBySeverity()
	footer := []string{
		fmt.Sprintf("%d findings", len(result.Findings)),
		fmt.Sprintf("%d critical / %d high",
			bySeverity[models.SeverityCritical], bySeverity[models.SeverityHigh]),
		fmt.Sprintf("%d files scanned", result.FilesScanned),
		"",
	}

	return &Report{
		Title: "Security Findings",
		Data:  result,
		Sections: []Renderable{
			&Table{
				Headers: []string{"Rule", "Severity", "Location", "Message"},
				Rows:    rows,
				Footer:  footer,
			},
		},
	}
}
