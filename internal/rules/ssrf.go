package rules

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/internal/taint"
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

const ruleSSRF = "HUSK-D216"

var httpModules = map[string]struct{}{
	"requests": {}, "httpx": {}, "aiohttp": {}, "urllib": {},
	"urllib3": {}, "http.client": {}, "urllib.request": {},
}

var httpReceiverNames = map[string]struct{}{
	"requests": {}, "httpx": {}, "session": {}, "client": {},
	"http": {}, "s": {}, "sess": {},
}

// nonHTTPReceiverNames are receivers whose get/post/delete have nothing to do
// with outbound HTTP (dict.get, queue.get, redis clients, ORMs).
var nonHTTPReceiverNames = map[string]struct{}{
	"self": {}, "cls": {}, "dict": {}, "d": {}, "data": {}, "params": {},
	"config": {}, "settings": {}, "cache": {}, "redis": {}, "r": {},
	"queue": {}, "q": {}, "os": {}, "environ": {}, "kwargs": {},
	"headers": {}, "cookies": {}, "db": {}, "cursor": {}, "conn": {},
}

var httpMethods = map[string]struct{}{
	"get": {}, "post": {}, "put": {}, "delete": {}, "head": {},
	"options": {}, "patch": {}, "request": {},
}

// ScanSSRF reports outbound HTTP requests whose URL is tainted or built by
// interpolation without a trusted base.
func ScanSSRF(res *parser.ParseResult) []models.Finding {
	w := taint.NewWalker(res.Path, res.Source, taint.URLSanitizers)
	httpNames := make(map[string]struct{})

	w.OnImport = func(node *sitter.Node) {
		trackProvenance(node, res.Source, httpModules, httpNames)
	}

	likelyHTTPReceiver := func(call *sitter.Node) bool {
		name := taint.ReceiverName(call, res.Source)
		if name == "" {
			return false
		}
		if _, ok := nonHTTPReceiverNames[strings.ToLower(name)]; ok {
			return false
		}
		if _, ok := httpNames[name]; ok {
			return true
		}
		_, ok := httpReceiverNames[strings.ToLower(name)]
		return ok
	}

	w.OnCall = func(node *sitter.Node) {
		fn := node.ChildByFieldName("function")
		if fn == nil || fn.Type() != "attribute" {
			return
		}
		method := parser.GetNodeText(fn.ChildByFieldName("attribute"), res.Source)
		_, isHTTPMethod := httpMethods[method]
		if !isHTTPMethod && method != "urlopen" {
			return
		}
		if method != "urlopen" && !likelyHTTPReceiver(node) {
			return
		}

		url := queryExpression(node, res.Source, "url")
		if url == nil {
			return
		}
		if hasSafeBaseURL(url, res.Source) {
			return
		}
		if w.IsTainted(url, taint.ClassSSRF) {
			w.Report(ruleSSRF, models.SeverityCritical,
				"Possible SSRF: tainted URL in outbound request.", node)
			return
		}
		if taint.StringBuilt(url, res.Source) {
			w.Report(ruleSSRF, models.SeverityHigh,
				"Outbound request URL built from interpolated string.", node)
		}
	}

	w.Run(res.Tree.RootNode())
	return w.Findings()
}

// hasSafeBaseURL exempts f-strings anchored to a fixed origin: the leading
// literal holds scheme, host and a path separator ("https://api.internal/"),
// or the leading interpolation is an UPPERCASE configuration constant.
func hasSafeBaseURL(expr *sitter.Node, source []byte) bool {
	if expr == nil || expr.Type() != "string" {
		return false
	}
	var first *sitter.Node
	for _, c := range parser.NamedChildren(expr) {
		if c.Type() == "interpolation" {
			first = c
			break
		}
	}
	if first == nil {
		return false
	}
	prefix := stripStringOpen(string(source[expr.StartByte():first.StartByte()]))
	if prefix == "" {
		inner := first.NamedChild(0)
		if inner == nil || inner.Type() != "identifier" {
			return false
		}
		name := parser.GetNodeText(inner, source)
		return name != "" && name == strings.ToUpper(name) &&
			strings.ContainsAny(name, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	idx := strings.Index(prefix, "://")
	if idx < 0 {
		return false
	}
	return strings.Contains(prefix[idx+3:], "/")
}

// stripStringOpen removes the f-string prefix letters and opening quote.
func stripStringOpen(s string) string {
	s = strings.TrimLeft(s, "fFrRbBuU")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) {
			return s[len(q):]
		}
	}
	return s
}
