package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

const ruleMassAssignment = "HUSK-D234"

// ScanMassAssignment reports serializer/form Meta classes exposing every
// model field via fields = "__all__".
func ScanMassAssignment(res *parser.ParseResult) []models.Finding {
	var findings []models.Finding

	parser.Walk(res.Tree.RootNode(), res.Source, func(node *sitter.Node, source []byte) bool {
		if node.Type() != "class_definition" {
			return true
		}
		name := parser.GetNodeText(node.ChildByFieldName("name"), source)
		if name != "Meta" {
			return true
		}
		body := node.ChildByFieldName("body")
		if body == nil {
			return true
		}
		for _, stmt := range parser.NamedChildren(body) {
			target := stmt
			if stmt.Type() == "expression_statement" {
				target = stmt.NamedChild(0)
			}
			if target == nil || target.Type() != "assignment" {
				continue
			}
			left := target.ChildByFieldName("left")
			right := target.ChildByFieldName("right")
			if left == nil || right == nil || left.Type() != "identifier" {
				continue
			}
			if parser.GetNodeText(left, source) != "fields" || right.Type() != "string" {
				continue
			}
			if strings.Trim(parser.GetNodeText(right, source), `"'`) == "__all__" {
				findings = append(findings, models.Finding{
					RuleID:   ruleMassAssignment,
					Severity: models.SeverityHigh,
					Message:  `Mass assignment: Meta.fields = "__all__" exposes every model field.`,
					File:     res.Path,
					Line:     parser.Line(target),
					Col:      parser.Col(target),
					Symbol:   name,
				})
			}
		}
		return true
	})
	return findings
}
