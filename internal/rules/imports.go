package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/pkg/parser"
)

// trackProvenance records local names bound by imports of the given modules:
// "import sqlite3" binds sqlite3, "import psycopg2 as pg" binds pg,
// "from sqlalchemy import text" binds text.
func trackProvenance(node *sitter.Node, source []byte, modules map[string]struct{}, bound map[string]struct{}) {
	inModules := func(name string) bool {
		if _, ok := modules[name]; ok {
			return true
		}
		top, _, _ := strings.Cut(name, ".")
		_, ok := modules[top]
		return ok
	}

	switch node.Type() {
	case "import_statement":
		for _, c := range parser.NamedChildren(node) {
			switch c.Type() {
			case "dotted_name":
				full := parser.GetNodeText(c, source)
				if inModules(full) {
					top, _, _ := strings.Cut(full, ".")
					bound[top] = struct{}{}
				}
			case "aliased_import":
				full := parser.GetNodeText(c.ChildByFieldName("name"), source)
				alias := parser.GetNodeText(c.ChildByFieldName("alias"), source)
				if full != "" && alias != "" && inModules(full) {
					bound[alias] = struct{}{}
				}
			}
		}
	case "import_from_statement":
		mod := node.ChildByFieldName("module_name")
		if mod == nil || mod.Type() != "dotted_name" {
			return
		}
		if !inModules(parser.GetNodeText(mod, source)) {
			return
		}
		for _, c := range parser.NamedChildren(node) {
			if c.StartByte() == mod.StartByte() {
				continue
			}
			switch c.Type() {
			case "dotted_name":
				bound[parser.GetNodeText(c, source)] = struct{}{}
			case "aliased_import":
				alias := parser.GetNodeText(c.ChildByFieldName("alias"), source)
				if alias != "" {
					bound[alias] = struct{}{}
				}
			}
		}
	}
}

// positionalArgs returns the non-keyword arguments of a call.
func positionalArgs(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	var out []*sitter.Node
	for _, a := range parser.NamedChildren(args) {
		if a.Type() != "keyword_argument" {
			out = append(out, a)
		}
	}
	return out
}

// keywordArg returns the value of a named keyword argument, or nil.
func keywordArg(call *sitter.Node, source []byte, name string) *sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	for _, a := range parser.NamedChildren(args) {
		if a.Type() != "keyword_argument" {
			continue
		}
		if parser.GetNodeText(a.ChildByFieldName("name"), source) == name {
			return a.ChildByFieldName("value")
		}
	}
	return nil
}

// isStringLiteral reports whether expr is a plain string constant.
func isStringLiteral(expr *sitter.Node) bool {
	if expr == nil || expr.Type() != "string" {
		return false
	}
	for _, c := range parser.NamedChildren(expr) {
		if c.Type() == "interpolation" {
			return false
		}
	}
	return true
}
