package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/internal/taint"
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

// dangerousCall describes one directly-flagged call form. A trailing ".*" in
// the key matches any attribute of the module; kwEquals requires a literal
// keyword argument with that exact value.
type dangerousCall struct {
	key      string
	ruleID   string
	severity models.Severity
	message  string
	kwEquals map[string]string
}

var dangerousCalls = []dangerousCall{
	{key: "eval", ruleID: "HUSK-D201", severity: models.SeverityHigh, message: "Use of eval()"},
	{key: "exec", ruleID: "HUSK-D202", severity: models.SeverityHigh, message: "Use of exec()"},
	{key: "os.system", ruleID: "HUSK-D203", severity: models.SeverityCritical, message: "Use of os.system()"},
	{key: "pickle.load", ruleID: "HUSK-D204", severity: models.SeverityCritical, message: "Untrusted deserialization via pickle.load"},
	{key: "pickle.loads", ruleID: "HUSK-D205", severity: models.SeverityCritical, message: "Untrusted deserialization via pickle.loads"},
	{key: "yaml.load", ruleID: "HUSK-D206", severity: models.SeverityHigh, message: "yaml.load without SafeLoader"},
	{key: "hashlib.md5", ruleID: "HUSK-D207", severity: models.SeverityMedium, message: "Weak hash (MD5)"},
	{key: "hashlib.sha1", ruleID: "HUSK-D208", severity: models.SeverityMedium, message: "Weak hash (SHA1)"},
	{key: "subprocess.*", ruleID: "HUSK-D209", severity: models.SeverityHigh, message: "subprocess call with shell=True",
		kwEquals: map[string]string{"shell": "True"}},
	{key: "requests.*", ruleID: "HUSK-D210", severity: models.SeverityHigh, message: "requests call with verify=False",
		kwEquals: map[string]string{"verify": "False"}},
}

func matchesRule(name, key string) bool {
	if name == "" {
		return false
	}
	if strings.HasSuffix(key, ".*") {
		return strings.HasPrefix(name, key[:len(key)-2]+".")
	}
	return name == key
}

// ScanDangerousCalls flags direct dangerous-call forms without taint
// analysis; the call itself is the finding.
func ScanDangerousCalls(res *parser.ParseResult) []models.Finding {
	w := taint.NewWalker(res.Path, res.Source, nil)
	w.OnCall = func(node *sitter.Node) {
		name := taint.QualifiedCallName(node, res.Source)
		if name == "" {
			return
		}
		for _, rule := range dangerousCalls {
			if !matchesRule(name, rule.key) {
				continue
			}
			if rule.key == "yaml.load" && yamlLoadHasSafeLoader(node, res.Source) {
				continue
			}
			if !kwEquals(node, res.Source, rule.kwEquals) {
				continue
			}
			w.Report(rule.ruleID, rule.severity, rule.message, node)
			return
		}
	}
	w.Run(res.Tree.RootNode())
	return w.Findings()
}

// kwEquals checks that every required keyword argument is present as a
// literal with the expected source text.
func kwEquals(call *sitter.Node, source []byte, required map[string]string) bool {
	if len(required) == 0 {
		return true
	}
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	found := make(map[string]string)
	for _, a := range parser.NamedChildren(args) {
		if a.Type() != "keyword_argument" {
			continue
		}
		name := parser.GetNodeText(a.ChildByFieldName("name"), source)
		value := parser.GetNodeText(a.ChildByFieldName("value"), source)
		found[name] = value
	}
	for key, expected := range required {
		if found[key] != expected {
			return false
		}
	}
	return true
}

// yamlLoadHasSafeLoader exempts yaml.load(..., Loader=SafeLoader).
func yamlLoadHasSafeLoader(call *sitter.Node, source []byte) bool {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	for _, a := range parser.NamedChildren(args) {
		if a.Type() != "keyword_argument" {
			continue
		}
		if parser.GetNodeText(a.ChildByFieldName("name"), source) != "Loader" {
			continue
		}
		value := parser.GetNodeText(a.ChildByFieldName("value"), source)
		return strings.Contains(value, "SafeLoader")
	}
	return false
}
