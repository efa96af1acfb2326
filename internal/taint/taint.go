// Package taint implements the traversal base shared by every security rule
// pack: per-function taint scopes, untrusted-source recognition, propagation
// through assignments and calls, and class-scoped sanitizer clearing. Rule
// packs supply source/sink/sanitizer vocabularies; none re-implements
// propagation.
package taint

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

// Class is a vulnerability class. A sanitizer clears taint only for the
// classes it is registered against; cross-class non-interference is an
// invariant, not an oversight.
type Class string

const (
	ClassSQL      Class = "sql"
	ClassCommand  Class = "command"
	ClassSSRF     Class = "ssrf"
	ClassRedirect Class = "redirect"
	ClassXSS      Class = "xss"
)

// AllClasses taints a value for every vulnerability class; untrusted sources
// seed with this.
var AllClasses = []Class{ClassSQL, ClassCommand, ClassSSRF, ClassRedirect, ClassXSS}

type classSet map[Class]struct{}

func newClassSet(classes ...Class) classSet {
	s := make(classSet, len(classes))
	for _, c := range classes {
		s[c] = struct{}{}
	}
	return s
}

func (s classSet) clone() classSet {
	out := make(classSet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// untrustedAttrs are attribute chains recognized as untrusted input.
var untrustedAttrs = map[string]struct{}{
	"request.args":         {},
	"request.form":         {},
	"request.values":       {},
	"request.json":         {},
	"request.data":         {},
	"request.cookies":      {},
	"request.headers":      {},
	"request.files":        {},
	"request.GET":          {},
	"request.POST":         {},
	"request.query_params": {},
	"request.query":        {},
	"request.body":         {},
	"os.environ":           {},
	"sys.argv":             {},
	"flask.request":        {},
}

// untrustedCalls are bare calls that return untrusted input.
var untrustedCalls = map[string]struct{}{
	"input": {},
}

// routeHints mark a decorated function as request-reachable; its parameters
// are seeded tainted.
var routeHints = []string{"route", "get", "post", "put", "delete", "patch", "websocket", "api"}

// URLSanitizers clear SSRF and redirect taint only.
var URLSanitizers = map[string][]Class{
	"urlencode":    {ClassSSRF, ClassRedirect},
	"quote":        {ClassSSRF, ClassRedirect},
	"quote_plus":   {ClassSSRF, ClassRedirect},
	"url_for":      {ClassSSRF, ClassRedirect},
	"urlparse":     {ClassSSRF, ClassRedirect},
	"validate_url": {ClassSSRF, ClassRedirect},
}

// HTMLSanitizers clear XSS taint only.
var HTMLSanitizers = map[string][]Class{
	"escape":      {ClassXSS},
	"escape_html": {ClassXSS},
	"clean":       {ClassXSS},
	"bleach":      {ClassXSS},
	"markupsafe":  {ClassXSS},
}

// SQLSanitizers clear SQL taint only.
var SQLSanitizers = map[string][]Class{
	"quote_ident":   {ClassSQL},
	"quote_literal": {ClassSQL},
	"mogrify":       {ClassSQL},
	"sql_escape":    {ClassSQL},
}

// ShellSanitizers clear command-injection taint only.
var ShellSanitizers = map[string][]Class{
	"quote":       {ClassCommand},
	"shlex_quote": {ClassCommand},
}

// MergeSanitizers combines sanitizer vocabularies; a name registered in
// several keeps the union of its classes.
func MergeSanitizers(maps ...map[string][]Class) map[string][]Class {
	out := make(map[string][]Class)
	for _, m := range maps {
		for name, classes := range m {
			out[name] = append(out[name], classes...)
		}
	}
	return out
}

// Walker traverses one file's tree maintaining taint scopes. Rule packs hook
// OnCall/OnAssign/OnImport and query IsTainted/StringBuilt/CurrentSymbol.
type Walker struct {
	File   string
	Source []byte

	// OnCall is invoked at every call node, after taint state is current.
	OnCall func(node *sitter.Node)
	// OnAssign is invoked at every assignment node before propagation.
	OnAssign func(node *sitter.Node)
	// OnImport is invoked for import and import-from statements, so packs
	// can track module provenance.
	OnImport func(node *sitter.Node)

	sanitizers map[string][]Class

	findings []models.Finding
	scopes   []map[string]classSet
	symbols  []string
}

// NewWalker creates a walker with an optional sanitizer vocabulary.
func NewWalker(file string, source []byte, sanitizers map[string][]Class) *Walker {
	return &Walker{
		File:       file,
		Source:     source,
		sanitizers: sanitizers,
		scopes:     []map[string]classSet{make(map[string]classSet)},
		symbols:    []string{"<module>"},
	}
}

// Findings returns everything reported during the walk.
func (w *Walker) Findings() []models.Finding { return w.findings }

// Report appends a finding attributed to the enclosing symbol.
func (w *Walker) Report(ruleID string, severity models.Severity, message string, node *sitter.Node) {
	w.findings = append(w.findings, models.Finding{
		RuleID:   ruleID,
		Severity: severity,
		Message:  message,
		File:     w.File,
		Line:     parser.Line(node),
		Col:      parser.Col(node),
		Symbol:   w.CurrentSymbol(),
	})
}

// CurrentSymbol names the enclosing function/method for finding attribution.
func (w *Walker) CurrentSymbol() string {
	return w.symbols[len(w.symbols)-1]
}

func (w *Walker) pushScope() {
	w.scopes = append(w.scopes, make(map[string]classSet))
}

func (w *Walker) popScope() {
	w.scopes = w.scopes[:len(w.scopes)-1]
}

func (w *Walker) taintName(name string, classes classSet) {
	if len(classes) == 0 {
		delete(w.scopes[len(w.scopes)-1], name)
		return
	}
	w.scopes[len(w.scopes)-1][name] = classes
}

func (w *Walker) lookupName(name string) classSet {
	for i := len(w.scopes) - 1; i >= 0; i-- {
		if s, ok := w.scopes[i][name]; ok {
			return s
		}
	}
	return nil
}

// Run walks the whole tree.
func (w *Walker) Run(root *sitter.Node) {
	for _, c := range parser.NamedChildren(root) {
		w.walk(c)
	}
}

func (w *Walker) walk(node *sitter.Node) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "decorated_definition":
		w.walkDecorated(node)
	case "function_definition":
		w.walkFunction(node, false)
	case "class_definition":
		w.walkClass(node)
	case "import_statement", "import_from_statement":
		if w.OnImport != nil {
			w.OnImport(node)
		}
	case "assignment":
		w.walkAssignment(node)
	case "augmented_assignment":
		w.walkAugmented(node)
	case "call":
		w.walkCall(node)
	default:
		for _, c := range parser.NamedChildren(node) {
			w.walk(c)
		}
	}
}

func (w *Walker) walkDecorated(node *sitter.Node) {
	routed := false
	var def *sitter.Node
	for _, c := range parser.NamedChildren(node) {
		switch c.Type() {
		case "decorator":
			text := strings.ToLower(parser.GetNodeText(c, w.Source))
			for _, hint := range routeHints {
				if strings.Contains(text, "."+hint) || strings.Contains(text, "@"+hint) {
					routed = true
					break
				}
			}
		case "function_definition":
			def = c
		case "class_definition":
			def = c
		}
	}
	if def == nil {
		return
	}
	if def.Type() == "class_definition" {
		w.walkClass(def)
		return
	}
	w.walkFunction(def, routed)
}

func (w *Walker) walkFunction(node *sitter.Node, routed bool) {
	name := parser.GetNodeText(node.ChildByFieldName("name"), w.Source)
	w.symbols = append(w.symbols, name)
	w.pushScope()

	// Parameters of request-reachable handlers are untrusted for every
	// class.
	if routed {
		if params := node.ChildByFieldName("parameters"); params != nil {
			for _, p := range parser.NamedChildren(params) {
				pn := parameterName(p, w.Source)
				if pn != "" && pn != "self" && pn != "cls" {
					w.taintName(pn, newClassSet(AllClasses...))
				}
			}
		}
	}

	w.walk(node.ChildByFieldName("body"))
	w.popScope()
	w.symbols = w.symbols[:len(w.symbols)-1]
}

func parameterName(p *sitter.Node, source []byte) string {
	switch p.Type() {
	case "identifier":
		return parser.GetNodeText(p, source)
	case "default_parameter", "typed_default_parameter":
		return parser.GetNodeText(p.ChildByFieldName("name"), source)
	case "typed_parameter":
		for _, c := range parser.NamedChildren(p) {
			if c.Type() == "identifier" {
				return parser.GetNodeText(c, source)
			}
		}
	}
	return ""
}

func (w *Walker) walkClass(node *sitter.Node) {
	name := parser.GetNodeText(node.ChildByFieldName("name"), w.Source)
	w.symbols = append(w.symbols, name)
	w.walk(node.ChildByFieldName("body"))
	w.symbols = w.symbols[:len(w.symbols)-1]
}

func (w *Walker) walkAssignment(node *sitter.Node) {
	if w.OnAssign != nil {
		w.OnAssign(node)
	}
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	w.walk(right)

	classes := w.taintOf(right)
	w.bindTaint(left, classes)
}

func (w *Walker) walkAugmented(node *sitter.Node) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	w.walk(right)

	if left == nil {
		return
	}
	name := chainText(left, w.Source)
	if name == "" {
		return
	}
	merged := w.lookupName(name).clone()
	if merged == nil {
		merged = make(classSet)
	}
	for c := range w.taintOf(right) {
		merged[c] = struct{}{}
	}
	w.taintName(name, merged)
}

func (w *Walker) bindTaint(target *sitter.Node, classes classSet) {
	if target == nil {
		return
	}
	switch target.Type() {
	case "identifier", "attribute":
		if name := chainText(target, w.Source); name != "" {
			w.taintName(name, classes)
		}
	case "tuple_pattern", "pattern_list", "tuple", "list_pattern":
		for _, c := range parser.NamedChildren(target) {
			w.bindTaint(c, classes.clone())
		}
	}
}

func (w *Walker) walkCall(node *sitter.Node) {
	// Descend first so nested calls and arguments are already processed.
	for _, c := range parser.NamedChildren(node) {
		w.walk(c)
	}

	if w.OnCall != nil {
		w.OnCall(node)
	}

	// Conservative inter-procedural step: a call fed a tainted argument
	// taints the synthetic node "call:<callee>", so later reads of that
	// call's result stay suspect.
	callee := QualifiedCallName(node, w.Source)
	if callee == "" {
		return
	}
	if args := node.ChildByFieldName("arguments"); args != nil {
		for _, a := range parser.NamedChildren(args) {
			arg := a
			if a.Type() == "keyword_argument" {
				arg = a.ChildByFieldName("value")
			}
			if t := w.taintOf(arg); len(t) > 0 {
				w.taintName("call:"+callee, t.clone())
				break
			}
		}
	}
}

// taintOf computes which vulnerability classes an expression is tainted for.
func (w *Walker) taintOf(expr *sitter.Node) classSet {
	if expr == nil {
		return nil
	}
	switch expr.Type() {
	case "identifier":
		return w.lookupName(parser.GetNodeText(expr, w.Source))
	case "attribute":
		chain := chainText(expr, w.Source)
		if chain == "" {
			return nil
		}
		if _, ok := untrustedAttrs[chain]; ok {
			return newClassSet(AllClasses...)
		}
		// request.args.get -> still the source
		for prefix := range untrustedAttrs {
			if strings.HasPrefix(chain, prefix+".") {
				return newClassSet(AllClasses...)
			}
		}
		return w.lookupName(chain)
	case "call":
		return w.taintOfCall(expr)
	case "binary_operator":
		out := make(classSet)
		for c := range w.taintOf(expr.ChildByFieldName("left")) {
			out[c] = struct{}{}
		}
		for c := range w.taintOf(expr.ChildByFieldName("right")) {
			out[c] = struct{}{}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case "string":
		out := make(classSet)
		for _, c := range parser.NamedChildren(expr) {
			if c.Type() != "interpolation" {
				continue
			}
			for _, in := range parser.NamedChildren(c) {
				for cls := range w.taintOf(in) {
					out[cls] = struct{}{}
				}
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case "subscript":
		return w.taintOf(expr.ChildByFieldName("value"))
	case "parenthesized_expression", "await":
		return w.taintOf(expr.NamedChild(0))
	case "conditional_expression":
		out := make(classSet)
		for _, c := range parser.NamedChildren(expr) {
			for cls := range w.taintOf(c) {
				out[cls] = struct{}{}
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}

func (w *Walker) taintOfCall(call *sitter.Node) classSet {
	callee := QualifiedCallName(call, w.Source)
	if callee == "" {
		return nil
	}
	if _, ok := untrustedCalls[callee]; ok {
		return newClassSet(AllClasses...)
	}

	// Accessor on an untrusted source: request.args.get("q")
	fn := call.ChildByFieldName("function")
	if fn != nil && fn.Type() == "attribute" {
		if receiver := chainText(fn.ChildByFieldName("object"), w.Source); receiver != "" {
			if _, ok := untrustedAttrs[receiver]; ok {
				return newClassSet(AllClasses...)
			}
		}
	}

	argTaint := w.argumentTaint(call)

	// A registered sanitizer clears only its own classes; taint for every
	// other class flows through the call.
	simple := callee
	if i := strings.LastIndex(callee, "."); i >= 0 {
		simple = callee[i+1:]
	}
	if cleared, ok := w.sanitizers[simple]; ok {
		out := argTaint.clone()
		for _, c := range cleared {
			delete(out, c)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	// .format() on a tainted operand, str() of tainted, etc.
	if fn != nil && fn.Type() == "attribute" {
		attr := parser.GetNodeText(fn.ChildByFieldName("attribute"), w.Source)
		if attr == "format" || attr == "join" || attr == "strip" || attr == "lower" || attr == "upper" {
			out := argTaint.clone()
			for c := range w.taintOf(fn.ChildByFieldName("object")) {
				out[c] = struct{}{}
			}
			if len(out) == 0 {
				return nil
			}
			return out
		}
	}
	if callee == "str" || callee == "format" {
		if len(argTaint) == 0 {
			return nil
		}
		return argTaint
	}

	// Result of an earlier tainted call.
	return w.lookupName("call:" + callee)
}

func (w *Walker) argumentTaint(call *sitter.Node) classSet {
	out := make(classSet)
	if args := call.ChildByFieldName("arguments"); args != nil {
		for _, a := range parser.NamedChildren(args) {
			arg := a
			if a.Type() == "keyword_argument" {
				arg = a.ChildByFieldName("value")
			}
			for c := range w.taintOf(arg) {
				out[c] = struct{}{}
			}
		}
	}
	return out
}

// IsTainted reports whether an expression carries taint for a class.
func (w *Walker) IsTainted(expr *sitter.Node, class Class) bool {
	_, ok := w.taintOf(expr)[class]
	return ok
}

// IsTaintedAny reports whether an expression carries taint for any class.
func (w *Walker) IsTaintedAny(expr *sitter.Node) bool {
	return len(w.taintOf(expr)) > 0
}

// StringBuilt reports whether an expression builds a string at runtime:
// f-string interpolation, concatenation, %-formatting, or .format(). Such
// expressions are inherently suspect as queries/commands even without a
// confirmed tainted operand.
func StringBuilt(expr *sitter.Node, source []byte) bool {
	if expr == nil {
		return false
	}
	switch expr.Type() {
	case "string":
		for _, c := range parser.NamedChildren(expr) {
			if c.Type() == "interpolation" {
				return true
			}
		}
		return false
	case "binary_operator":
		op := ""
		if opNode := expr.ChildByFieldName("operator"); opNode != nil {
			op = parser.GetNodeText(opNode, source)
		} else {
			for i := 0; i < int(expr.ChildCount()); i++ {
				t := expr.Child(i).Type()
				if t == "+" || t == "%" {
					op = t
					break
				}
			}
		}
		return op == "+" || op == "%"
	case "call":
		fn := expr.ChildByFieldName("function")
		if fn != nil && fn.Type() == "attribute" {
			return parser.GetNodeText(fn.ChildByFieldName("attribute"), source) == "format"
		}
	case "parenthesized_expression":
		return StringBuilt(expr.NamedChild(0), source)
	}
	return false
}

// QualifiedCallName flattens a call's function expression to "a.b.c", or ""
// when the callee is not a plain chain.
func QualifiedCallName(call *sitter.Node, source []byte) string {
	return chainText(call.ChildByFieldName("function"), source)
}

// ReceiverName returns the immediate receiver of a method call: the variable
// x in x.execute(...) or the attribute leaf in a.b.execute(...).
func ReceiverName(call *sitter.Node, source []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "attribute" {
		return ""
	}
	obj := fn.ChildByFieldName("object")
	if obj == nil {
		return ""
	}
	switch obj.Type() {
	case "identifier":
		return parser.GetNodeText(obj, source)
	case "attribute":
		return parser.GetNodeText(obj.ChildByFieldName("attribute"), source)
	}
	return ""
}

func chainText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier":
		return parser.GetNodeText(node, source)
	case "attribute":
		obj := chainText(node.ChildByFieldName("object"), source)
		attr := parser.GetNodeText(node.ChildByFieldName("attribute"), source)
		if obj == "" || attr == "" {
			return ""
		}
		return obj + "." + attr
	}
	return ""
}
