package analyzer

import (
	"context"
	"sort"

	"github.com/husk-dev/husk/internal/fileproc"
	"github.com/husk-dev/husk/internal/rules"
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

// AnalyzeSecurity runs every security rule pack over the files under root.
// Findings are ordered by file, line, then rule ID.
func (a *Analyzer) AnalyzeSecurity(ctx context.Context, root string) (*models.SecurityResult, error) {
	files, _, err := a.discover(root)
	if err != nil {
		return nil, err
	}

	perFile, _ := fileproc.MapFilesWithContext(ctx, files, a.cfg.Analysis.Workers,
		func(psr *parser.Parser, path string) ([]models.Finding, error) {
			res, err := psr.ParseFile(path)
			if err != nil {
				a.warn(path, err)
				return nil, nil
			}
			return rules.ScanFile(res), nil
		}, a.OnProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &models.SecurityResult{
		Findings:     []models.Finding{},
		FilesScanned: len(files),
	}
	for _, findings := range perFile {
		result.Findings = append(result.Findings, findings...)
	}
	sort.Slice(result.Findings, func(i, j int) bool {
		a, b := result.Findings[i], result.Findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.RuleID < b.RuleID
	})
	return result, nil
}
