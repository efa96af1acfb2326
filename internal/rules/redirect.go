package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/internal/taint"
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

const ruleOpenRedirect = "HUSK-D230"

var redirectFuncs = map[string]struct{}{
	"redirect":                      {},
	"HttpResponseRedirect":          {},
	"HttpResponsePermanentRedirect": {},
}

// ScanRedirect reports redirect targets taken from untrusted input.
func ScanRedirect(res *parser.ParseResult) []models.Finding {
	w := taint.NewWalker(res.Path, res.Source, taint.URLSanitizers)

	w.OnCall = func(node *sitter.Node) {
		qn := taint.QualifiedCallName(node, res.Source)
		if qn == "" {
			return
		}
		simple := qn
		if i := strings.LastIndex(qn, "."); i >= 0 {
			simple = qn[i+1:]
		}
		if _, ok := redirectFuncs[simple]; !ok {
			return
		}
		args := positionalArgs(node)
		if len(args) == 0 {
			return
		}
		if w.IsTainted(args[0], taint.ClassRedirect) {
			w.Report(ruleOpenRedirect, models.SeverityHigh,
				"Possible open redirect: target comes from untrusted input.", node)
		}
	}

	w.Run(res.Tree.RootNode())
	return w.Findings()
}
