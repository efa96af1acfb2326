package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/internal/taint"
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

const ruleJWT = "HUSK-D232"

// ScanJWT reports JWT decode/encode calls with signature verification
// disabled or the "none" algorithm allowed.
func ScanJWT(res *parser.ParseResult) []models.Finding {
	w := taint.NewWalker(res.Path, res.Source, nil)

	w.OnCall = func(node *sitter.Node) {
		qn := taint.QualifiedCallName(node, res.Source)
		if qn == "" {
			return
		}
		if !strings.HasPrefix(qn, "jwt.") && !strings.HasSuffix(qn, ".jwt.decode") &&
			!strings.HasSuffix(qn, ".jwt.encode") {
			return
		}
		if !strings.HasSuffix(qn, ".decode") && !strings.HasSuffix(qn, ".encode") {
			return
		}

		if algs := keywordArg(node, res.Source, "algorithms"); algs != nil && allowsNoneAlgorithm(algs, res.Source) {
			w.Report(ruleJWT, models.SeverityCritical,
				`JWT accepts the "none" algorithm.`, node)
			return
		}
		if v := keywordArg(node, res.Source, "verify"); v != nil &&
			parser.GetNodeText(v, res.Source) == "False" {
			w.Report(ruleJWT, models.SeverityCritical,
				"JWT processed with verify=False.", node)
			return
		}
		if opts := keywordArg(node, res.Source, "options"); opts != nil && disablesSignatureCheck(opts, res.Source) {
			w.Report(ruleJWT, models.SeverityCritical,
				"JWT processed with signature verification disabled.", node)
		}
	}

	w.Run(res.Tree.RootNode())
	return w.Findings()
}

// allowsNoneAlgorithm matches algorithms=[... "none" ...].
func allowsNoneAlgorithm(list *sitter.Node, source []byte) bool {
	if list.Type() != "list" {
		return false
	}
	for _, el := range parser.NamedChildren(list) {
		if el.Type() == "string" &&
			strings.EqualFold(strings.Trim(parser.GetNodeText(el, source), `"'`), "none") {
			return true
		}
	}
	return false
}

// disablesSignatureCheck matches options={"verify_signature": False}.
func disablesSignatureCheck(dict *sitter.Node, source []byte) bool {
	if dict.Type() != "dictionary" {
		return false
	}
	for _, pair := range parser.NamedChildren(dict) {
		if pair.Type() != "pair" {
			continue
		}
		key := strings.Trim(parser.GetNodeText(pair.ChildByFieldName("key"), source), `"'`)
		value := parser.GetNodeText(pair.ChildByFieldName("value"), source)
		if key == "verify_signature" && value == "False" {
			return true
		}
	}
	return false
}
