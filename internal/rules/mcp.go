package rules

import (
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/internal/taint"
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

// MCP server rule IDs. These fire only in files that import an MCP library.
const (
	ruleMCPPoisoning     = "HUSK-D240"
	ruleMCPUnauthNet     = "HUSK-D241"
	ruleMCPPermissiveURI = "HUSK-D242"
	ruleMCPExposedHost   = "HUSK-D243"
	ruleMCPSecretDefault = "HUSK-D244"
)

var injectionTagRe = regexp.MustCompile(
	`(?i)<\s*/?\s*(system|instruction|s>|admin|prompt|context|rules|configuration|im_start|im_end|endoftext|message)\b`)

var injectionPhraseRe = regexp.MustCompile(
	`(?i)(ignore\s+(all\s+)?previous\s+instructions?` +
		`|disregard\s+(all\s+)?(previous|above|prior)` +
		`|you\s+are\s+now\s+a` +
		`|forget\s+(all\s+)?previous` +
		`|new\s+system\s+prompt` +
		`|override\s+(all\s+)?instructions?` +
		`|do\s+not\s+follow\s+(any\s+)?previous)`)

// Zero-width characters, bidi overrides, BOM.
var hiddenUnicodeRe = regexp.MustCompile(
	`[\x{200b}-\x{200f}\x{2028}-\x{202e}\x{2060}-\x{2064}\x{feff}\x{fff9}-\x{fffb}]`)

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^sk-[a-zA-Z0-9]{20,}$`),
	regexp.MustCompile(`^sk-ant-[a-zA-Z0-9\-]{20,}$`),
	regexp.MustCompile(`^AKIA[A-Z0-9]{16}$`),
	regexp.MustCompile(`^ghp_[a-zA-Z0-9]{36}$`),
	regexp.MustCompile(`^gho_[a-zA-Z0-9]{36}$`),
	regexp.MustCompile(`^glpat-[a-zA-Z0-9\-]{20,}$`),
	regexp.MustCompile(`^xox[bpsar]-[a-zA-Z0-9\-]{10,}$`),
	regexp.MustCompile(`^sk_live_[a-zA-Z0-9]{20,}$`),
	regexp.MustCompile(`^rk_live_[a-zA-Z0-9]{20,}$`),
	regexp.MustCompile(`^Bearer\s+[a-zA-Z0-9\-_.]{20,}$`),
	regexp.MustCompile(`^Basic\s+[a-zA-Z0-9+/=]{20,}$`),
	regexp.MustCompile(`^eyJ[a-zA-Z0-9\-_]{20,}`),
}

var fileURITemplateRe = regexp.MustCompile(`file://.*\{`)
var pathTemplateVarRe = regexp.MustCompile(`(?i)\{(path|file|filename|dir|directory|filepath)\}`)
var rootTemplateRe = regexp.MustCompile(`^[^/]*/?\{`)

var mcpImports = map[string]struct{}{
	"mcp": {}, "fastmcp": {}, "mcp.server": {},
	"mcp.server.fastmcp": {}, "mcp.server.lowlevel": {},
}

var mcpServerClasses = map[string]struct{}{"FastMCP": {}, "Server": {}}

var mcpToolDecorators = map[string]struct{}{"tool": {}, "resource": {}, "prompt": {}}

var networkTransports = map[string]struct{}{
	"sse": {}, "streamable-http": {}, "streamable_http": {}, "http": {},
}

var mcpAuthKwargs = []string{"auth", "authenticator", "auth_server_provider", "middleware", "auth_middleware"}

type mcpChecker struct {
	file       string
	source     []byte
	findings   []models.Finding
	serverVars map[string]struct{}
}

// ScanMCP reports MCP server weaknesses: poisoned tool metadata,
// unauthenticated network transports, permissive resource URIs, wide host
// bindings and secrets left in tool parameter defaults.
func ScanMCP(res *parser.ParseResult) []models.Finding {
	if !isMCPFile(res) {
		return nil
	}
	c := &mcpChecker{
		file:       res.Path,
		source:     res.Source,
		serverVars: make(map[string]struct{}),
	}
	parser.Walk(res.Tree.RootNode(), res.Source, func(node *sitter.Node, source []byte) bool {
		switch node.Type() {
		case "assignment":
			c.trackServerVar(node)
		case "decorated_definition":
			c.checkToolFunction(node)
		case "call":
			c.checkServerRun(node)
		}
		return true
	})
	return c.findings
}

func isMCPFile(res *parser.ParseResult) bool {
	mcpNames := make(map[string]struct{})
	found := false
	parser.Walk(res.Tree.RootNode(), res.Source, func(node *sitter.Node, source []byte) bool {
		if found {
			return false
		}
		switch node.Type() {
		case "import_statement", "import_from_statement":
			trackProvenance(node, res.Source, mcpImports, mcpNames)
			if len(mcpNames) > 0 {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func (c *mcpChecker) report(ruleID string, severity models.Severity, message string, node *sitter.Node) {
	c.findings = append(c.findings, models.Finding{
		RuleID:   ruleID,
		Severity: severity,
		Message:  message,
		File:     c.file,
		Line:     parser.Line(node),
		Col:      parser.Col(node),
	})
}

// trackServerVar remembers names bound to FastMCP(...) or Server(...).
func (c *mcpChecker) trackServerVar(node *sitter.Node) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "identifier" || right.Type() != "call" {
		return
	}
	qn := taint.QualifiedCallName(right, c.source)
	for cls := range mcpServerClasses {
		if qn == cls || strings.HasSuffix(qn, "."+cls) {
			c.serverVars[parser.GetNodeText(left, c.source)] = struct{}{}
			return
		}
	}
}

func (c *mcpChecker) checkToolFunction(decorated *sitter.Node) {
	def := decorated.ChildByFieldName("definition")
	if def == nil || def.Type() != "function_definition" {
		return
	}
	var decorators []*sitter.Node
	isTool := false
	for _, child := range parser.NamedChildren(decorated) {
		if child.Type() != "decorator" {
			continue
		}
		decorators = append(decorators, child)
		if _, ok := mcpToolDecorators[decoratorName(child, c.source)]; ok {
			isTool = true
		}
	}
	if !isTool {
		return
	}

	if doc, node := docstring(def, c.source); doc != "" {
		c.checkInjectionText(doc, node, "tool docstring")
	}
	for _, dec := range decorators {
		if desc, node := decoratorDescription(dec, c.source); desc != "" {
			c.checkInjectionText(desc, node, "tool description")
		}
		if decoratorName(dec, c.source) == "resource" {
			c.checkResourceDecorator(dec)
		}
	}
	c.checkParamDefaults(def)
}

func (c *mcpChecker) checkInjectionText(text string, node *sitter.Node, context string) {
	if injectionTagRe.MatchString(text) {
		c.report(ruleMCPPoisoning, models.SeverityCritical,
			"MCP tool poisoning: suspicious injection tag in "+context+".", node)
	}
	if injectionPhraseRe.MatchString(text) {
		c.report(ruleMCPPoisoning, models.SeverityCritical,
			"MCP tool poisoning: prompt injection phrase in "+context+".", node)
	}
	if hiddenUnicodeRe.MatchString(text) {
		c.report(ruleMCPPoisoning, models.SeverityHigh,
			"MCP tool poisoning: hidden Unicode characters in "+context+".", node)
	}
}

func (c *mcpChecker) checkResourceDecorator(dec *sitter.Node) {
	call := decoratorCall(dec)
	if call == nil {
		return
	}
	for _, arg := range positionalArgs(call) {
		if uri, ok := stringValue(arg, c.source); ok {
			c.checkResourceURI(uri, dec)
		}
	}
	if v := keywordArg(call, c.source, "uri"); v != nil {
		if uri, ok := stringValue(v, c.source); ok {
			c.checkResourceURI(uri, dec)
		}
	}
}

func (c *mcpChecker) checkResourceURI(uri string, node *sitter.Node) {
	if fileURITemplateRe.MatchString(uri) {
		c.report(ruleMCPPermissiveURI, models.SeverityHigh,
			fmt.Sprintf("MCP permissive resource URI: %q may allow path traversal.", uri), node)
		return
	}
	if !pathTemplateVarRe.MatchString(uri) {
		return
	}
	_, pathPart, ok := strings.Cut(uri, "://")
	if !ok {
		return
	}
	if rootTemplateRe.MatchString(pathPart) {
		c.report(ruleMCPPermissiveURI, models.SeverityHigh,
			fmt.Sprintf("MCP permissive resource URI: %q allows unconstrained path access.", uri), node)
	}
}

func (c *mcpChecker) checkParamDefaults(def *sitter.Node) {
	params := def.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for _, p := range parser.NamedChildren(params) {
		if p.Type() != "default_parameter" && p.Type() != "typed_default_parameter" {
			continue
		}
		name := parser.GetNodeText(p.ChildByFieldName("name"), c.source)
		value := p.ChildByFieldName("value")
		val, ok := stringValue(value, c.source)
		if !ok || len(val) < 10 {
			continue
		}
		for _, pattern := range secretPatterns {
			if pattern.MatchString(val) {
				c.report(ruleMCPSecretDefault, models.SeverityCritical,
					fmt.Sprintf("Hardcoded secret in MCP tool parameter default %q.", name), value)
				break
			}
		}
	}
}

func (c *mcpChecker) checkServerRun(call *sitter.Node) {
	qn := taint.QualifiedCallName(call, c.source)
	i := strings.LastIndex(qn, ".")
	if i < 0 {
		return
	}
	obj, method := qn[:i], qn[i+1:]
	if method != "run" {
		return
	}
	if _, known := c.serverVars[obj]; !known && obj != "server" && obj != "mcp" && obj != "app" {
		return
	}

	var transport, host string
	hasAuth := false
	if v := keywordArg(call, c.source, "transport"); v != nil {
		transport, _ = stringValue(v, c.source)
	}
	if v := keywordArg(call, c.source, "host"); v != nil {
		host, _ = stringValue(v, c.source)
	}
	for _, kw := range mcpAuthKwargs {
		if keywordArg(call, c.source, kw) != nil {
			hasAuth = true
			break
		}
	}

	isNetwork := false
	if _, ok := networkTransports[strings.ToLower(transport)]; ok && transport != "" {
		isNetwork = true
	}
	if host != "" && host != "127.0.0.1" && host != "localhost" {
		isNetwork = true
	}

	if isNetwork && !hasAuth {
		msg := "MCP server uses network transport without authentication."
		if transport != "" {
			msg = fmt.Sprintf("MCP server uses network transport (%s) without authentication.", transport)
		}
		c.report(ruleMCPUnauthNet, models.SeverityHigh, msg, call)
	}
	if host == "0.0.0.0" && !hasAuth {
		c.report(ruleMCPExposedHost, models.SeverityCritical,
			"MCP server bound to 0.0.0.0 without authentication: accessible from any network interface.", call)
	}
}

// decoratorName returns the trailing name of a decorator expression,
// "tool" for @server.tool() and @tool alike.
func decoratorName(dec *sitter.Node, source []byte) string {
	expr := dec.NamedChild(0)
	if expr == nil {
		return ""
	}
	if expr.Type() == "call" {
		expr = expr.ChildByFieldName("function")
	}
	switch {
	case expr == nil:
		return ""
	case expr.Type() == "attribute":
		return parser.GetNodeText(expr.ChildByFieldName("attribute"), source)
	case expr.Type() == "identifier":
		return parser.GetNodeText(expr, source)
	}
	return ""
}

// decoratorCall returns the call node of a decorator, or nil for bare forms.
func decoratorCall(dec *sitter.Node) *sitter.Node {
	expr := dec.NamedChild(0)
	if expr != nil && expr.Type() == "call" {
		return expr
	}
	return nil
}

func decoratorDescription(dec *sitter.Node, source []byte) (string, *sitter.Node) {
	call := decoratorCall(dec)
	if call == nil {
		return "", nil
	}
	v := keywordArg(call, source, "description")
	if v == nil {
		return "", nil
	}
	if s, ok := stringValue(v, source); ok {
		return s, dec
	}
	return "", nil
}

// docstring returns the leading string literal of a function body.
func docstring(def *sitter.Node, source []byte) (string, *sitter.Node) {
	body := def.ChildByFieldName("body")
	if body == nil {
		return "", nil
	}
	first := body.NamedChild(0)
	if first == nil || first.Type() != "expression_statement" {
		return "", nil
	}
	str := first.NamedChild(0)
	if s, ok := stringValue(str, source); ok {
		return s, first
	}
	return "", nil
}

// stringValue unquotes a plain string literal.
func stringValue(node *sitter.Node, source []byte) (string, bool) {
	if !isStringLiteral(node) {
		return "", false
	}
	raw := parser.GetNodeText(node, source)
	raw = strings.TrimLeft(raw, "rRbBuU")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			return raw[len(q) : len(raw)-len(q)], true
		}
	}
	return raw, true
}
