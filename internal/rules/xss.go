package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/internal/taint"
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

const ruleXSS = "HUSK-D233"

// htmlSinks render their argument as markup without escaping.
var htmlSinks = map[string]struct{}{
	"render_template_string": {},
	"Markup":                 {},
	"format_html":            {},
	"HttpResponse":           {},
	"make_response":          {},
}

// ScanXSS reports HTML responses built from tainted or interpolated strings.
func ScanXSS(res *parser.ParseResult) []models.Finding {
	w := taint.NewWalker(res.Path, res.Source, taint.HTMLSanitizers)

	w.OnCall = func(node *sitter.Node) {
		qn := taint.QualifiedCallName(node, res.Source)
		if qn == "" {
			return
		}
		simple := qn
		if i := strings.LastIndex(qn, "."); i >= 0 {
			simple = qn[i+1:]
		}
		if _, ok := htmlSinks[simple]; !ok {
			return
		}
		args := positionalArgs(node)
		if len(args) == 0 {
			return
		}
		markup := args[0]
		if w.IsTainted(markup, taint.ClassXSS) {
			w.Report(ruleXSS, models.SeverityCritical,
				"Possible XSS: untrusted input rendered as markup.", node)
			return
		}
		if taint.StringBuilt(markup, res.Source) {
			w.Report(ruleXSS, models.SeverityHigh,
				"Markup built from interpolated string.", node)
		}
	}

	w.Run(res.Tree.RootNode())
	return w.Findings()
}
