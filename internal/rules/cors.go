package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/internal/taint"
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

const ruleCORS = "HUSK-D231"

const allowOriginHeader = "Access-Control-Allow-Origin"

// ScanCORS reports wildcard cross-origin configuration. This pack is purely
// structural; no taint tracking is involved.
func ScanCORS(res *parser.ParseResult) []models.Finding {
	var findings []models.Finding
	report := func(node *sitter.Node, message string) {
		findings = append(findings, models.Finding{
			RuleID:   ruleCORS,
			Severity: models.SeverityHigh,
			Message:  message,
			File:     res.Path,
			Line:     parser.Line(node),
			Col:      parser.Col(node),
		})
	}

	parser.Walk(res.Tree.RootNode(), res.Source, func(node *sitter.Node, source []byte) bool {
		switch node.Type() {
		case "assignment":
			left := node.ChildByFieldName("left")
			right := node.ChildByFieldName("right")
			if left == nil || right == nil {
				return true
			}
			if left.Type() == "identifier" &&
				parser.GetNodeText(left, source) == "CORS_ALLOW_ALL_ORIGINS" &&
				parser.GetNodeText(right, source) == "True" {
				report(node, "CORS_ALLOW_ALL_ORIGINS enabled for all origins.")
				return true
			}
			if left.Type() == "subscript" &&
				strings.Contains(parser.GetNodeText(left.ChildByFieldName("subscript"), source), allowOriginHeader) &&
				isWildcardString(right, source) {
				report(node, "Access-Control-Allow-Origin set to wildcard.")
			}
		case "pair":
			key := node.ChildByFieldName("key")
			value := node.ChildByFieldName("value")
			if key != nil && value != nil &&
				strings.Contains(parser.GetNodeText(key, source), allowOriginHeader) &&
				isWildcardString(value, source) {
				report(node, "Access-Control-Allow-Origin set to wildcard.")
			}
		case "call":
			if taint.QualifiedCallName(node, source) != "CORS" {
				return true
			}
			if keywordArg(node, source, "origins") != nil || keywordArg(node, source, "resources") != nil {
				return true
			}
			if len(positionalArgs(node)) <= 1 {
				report(node, "CORS() initialized without an origin allowlist.")
			}
		}
		return true
	})
	return findings
}

func isWildcardString(node *sitter.Node, source []byte) bool {
	if node == nil || node.Type() != "string" {
		return false
	}
	return strings.Trim(parser.GetNodeText(node, source), `"'`) == "*"
}
