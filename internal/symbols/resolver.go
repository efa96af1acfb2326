package symbols

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

// FileResult is the self-contained output of resolving one file. Results from
// all files are merged by the cross-reference engine after the parallel phase.
type FileResult struct {
	Defs     []*Definition
	Refs     []Reference
	Dynamic  map[string]struct{}
	Exports  []string
	Patterns []WildcardPattern
}

// EmptyResult is substituted for a file that failed to parse.
func EmptyResult() *FileResult {
	return &FileResult{Dynamic: map[string]struct{}{}}
}

type scopeKind int

const (
	scopeModule scopeKind = iota
	scopeClass
	scopeFunction
	scopeLambda
	scopeComprehension
)

// frame is one entry of the scope stack. Frames are strictly nested and
// popped in LIFO order as traversal unwinds.
type frame struct {
	kind    scopeKind
	path    string            // fully-qualified path of this scope
	aliases map[string]string // import alias -> origin
	locals  map[string]string // short name -> fully-qualified name
	params  map[string]string // parameter name -> fully-qualified name
	types   map[string]string // variable -> inferred constructor type
	def     *Definition       // owning definition for function frames
}

func newFrame(kind scopeKind, path string, def *Definition) *frame {
	return &frame{
		kind:    kind,
		path:    path,
		aliases: make(map[string]string),
		locals:  make(map[string]string),
		params:  make(map[string]string),
		types:   make(map[string]string),
		def:     def,
	}
}

// Resolver walks one file's syntax tree. Not reusable across files.
type Resolver struct {
	module string
	file   string
	source []byte

	defs     []*Definition
	defIdx   map[string]*Definition
	refs     []Reference
	dynamic  map[string]struct{}
	exports  []string
	patterns []WildcardPattern

	stack []*frame
}

// Resolve walks a parsed file and returns its definitions, references,
// dynamic module roots, declared exports, and wildcard patterns.
func Resolve(res *parser.ParseResult, module string) *FileResult {
	r := &Resolver{
		module:  module,
		file:    res.Path,
		source:  res.Source,
		defIdx:  make(map[string]*Definition),
		dynamic: make(map[string]struct{}),
	}
	r.stack = []*frame{newFrame(scopeModule, module, nil)}

	root := res.Tree.RootNode()
	for _, child := range parser.NamedChildren(root) {
		r.visit(child)
	}

	return &FileResult{
		Defs:     r.defs,
		Refs:     r.refs,
		Dynamic:  r.dynamic,
		Exports:  r.exports,
		Patterns: r.patterns,
	}
}

func (r *Resolver) top() *frame { return r.stack[len(r.stack)-1] }

func (r *Resolver) push(f *frame) { r.stack = append(r.stack, f) }

func (r *Resolver) pop() { r.stack = r.stack[:len(r.stack)-1] }

// scoped joins a name onto the current scope path.
func (r *Resolver) scoped(name string) string {
	if p := r.top().path; p != "" {
		return p + "." + name
	}
	return name
}

func (r *Resolver) addDef(name string, kind models.Kind, line int) *Definition {
	if existing, ok := r.defIdx[name]; ok {
		return existing
	}
	d := NewDefinition(name, kind, r.file, line)
	r.defs = append(r.defs, d)
	r.defIdx[name] = d
	return d
}

func (r *Resolver) addRef(name string) {
	r.refs = append(r.refs, Reference{Name: name, File: r.file})
}

// enclosingFunction returns the innermost function frame, or nil at
// module/class level.
func (r *Resolver) enclosingFunction() *frame {
	for i := len(r.stack) - 1; i >= 0; i-- {
		if r.stack[i].kind == scopeFunction || r.stack[i].kind == scopeLambda {
			return r.stack[i]
		}
	}
	return nil
}

// enclosingClassPath returns the path of the innermost class frame, or "".
func (r *Resolver) enclosingClassPath() string {
	for i := len(r.stack) - 1; i >= 0; i-- {
		if r.stack[i].kind == scopeClass {
			return r.stack[i].path
		}
	}
	return ""
}

// qualify resolves a bare name against the scope stack: the innermost
// function's parameters first, then enclosing functions' parameters (which
// marks the inner function a closure over the captured name), then local
// bindings innermost-first, then import aliases, then built-ins, falling back
// to module qualification.
func (r *Resolver) qualify(name string) string {
	var inner *frame
	for i := len(r.stack) - 1; i >= 0; i-- {
		f := r.stack[i]
		if f.kind != scopeFunction && f.kind != scopeLambda {
			continue
		}
		if fq, ok := f.params[name]; ok {
			if inner != nil && inner.def != nil {
				inner.def.IsClosure = true
				inner.def.Captured = appendUnique(inner.def.Captured, name)
			}
			return fq
		}
		if inner == nil {
			inner = f
		}
	}
	for i := len(r.stack) - 1; i >= 0; i-- {
		if fq, ok := r.stack[i].locals[name]; ok {
			return fq
		}
	}
	for i := len(r.stack) - 1; i >= 0; i-- {
		if fq, ok := r.stack[i].aliases[name]; ok {
			return fq
		}
	}
	if _, ok := pythonBuiltins[name]; ok {
		return name
	}
	if r.module != "" {
		return r.module + "." + name
	}
	return name
}

// inferredType looks up a constructor-inferred type for a variable.
func (r *Resolver) inferredType(name string) (string, bool) {
	for i := len(r.stack) - 1; i >= 0; i-- {
		if t, ok := r.stack[i].types[name]; ok {
			return t, true
		}
	}
	return "", false
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// visit walks a node in load context. Store positions (assignment targets,
// loop variables, with-bindings, parameters) are handled by bindTarget.
func (r *Resolver) visit(node *sitter.Node) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "import_statement":
		r.visitImport(node)
	case "import_from_statement":
		r.visitImportFrom(node)
	case "function_definition":
		r.visitFunction(node, nil)
	case "class_definition":
		r.visitClass(node, nil)
	case "decorated_definition":
		r.visitDecorated(node)
	case "assignment":
		r.visitAssignment(node)
	case "augmented_assignment":
		r.visit(node.ChildByFieldName("left"))
		r.visit(node.ChildByFieldName("right"))
	case "call":
		r.visitCall(node)
	case "attribute":
		r.visitAttribute(node)
	case "identifier":
		r.visitName(node)
	case "subscript":
		r.visitSubscript(node)
	case "string":
		r.visitString(node)
	case "with_statement":
		r.visitWith(node)
	case "for_statement":
		r.bindTarget(node.ChildByFieldName("left"))
		r.visit(node.ChildByFieldName("right"))
		r.visit(node.ChildByFieldName("body"))
		r.visit(node.ChildByFieldName("alternative"))
	case "lambda":
		r.visitLambda(node)
	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		r.visitComprehension(node)
	case "global_statement", "nonlocal_statement":
		for _, c := range parser.NamedChildren(node) {
			if c.Type() == "identifier" {
				r.addRef(r.module + "." + parser.GetNodeText(c, r.source))
			}
		}
	case "keyword_argument":
		r.visit(node.ChildByFieldName("value"))
	default:
		for _, c := range parser.NamedChildren(node) {
			r.visit(c)
		}
	}
}

// visitName records a load of a bare name; dynamic constructs taint the
// module root.
func (r *Resolver) visitName(node *sitter.Node) {
	name := parser.GetNodeText(node, r.source)
	if name == "" {
		return
	}
	r.addRef(r.qualify(name))
	if _, ok := dynamicPatterns[name]; ok && r.module != "" {
		root := strings.SplitN(r.module, ".", 2)[0]
		r.dynamic[root] = struct{}{}
	}
}

func (r *Resolver) visitImport(node *sitter.Node) {
	line := parser.Line(node)
	for _, c := range parser.NamedChildren(node) {
		switch c.Type() {
		case "dotted_name":
			full := parser.GetNodeText(c, r.source)
			parts := strings.Split(full, ".")
			r.top().aliases[parts[len(parts)-1]] = full
			r.addDef(full, models.KindImport, line)
		case "aliased_import":
			nameNode := c.ChildByFieldName("name")
			aliasNode := c.ChildByFieldName("alias")
			full := parser.GetNodeText(nameNode, r.source)
			alias := parser.GetNodeText(aliasNode, r.source)
			if full == "" || alias == "" {
				continue
			}
			r.top().aliases[alias] = full
			r.addDef(full, models.KindImport, line)
		}
	}
}

func (r *Resolver) visitImportFrom(node *sitter.Node) {
	line := parser.Line(node)
	modNode := node.ChildByFieldName("module_name")
	if modNode == nil {
		return
	}

	base := ""
	switch modNode.Type() {
	case "dotted_name":
		base = parser.GetNodeText(modNode, r.source)
	case "relative_import":
		var level int
		var dotted string
		for _, c := range parser.NamedChildren(modNode) {
			if c.Type() == "dotted_name" {
				dotted = parser.GetNodeText(c, r.source)
			}
		}
		for _, ch := range parser.GetNodeText(modNode, r.source) {
			if ch == '.' {
				level++
			} else {
				break
			}
		}
		if dotted == "" {
			return
		}
		parts := strings.Split(r.module, ".")
		if level > len(parts) {
			level = len(parts)
		}
		prefix := strings.Join(parts[:len(parts)-level], ".")
		if prefix != "" {
			base = prefix + "." + dotted
		} else {
			base = dotted
		}
	default:
		return
	}

	for _, c := range parser.NamedChildren(node) {
		if c.StartByte() == modNode.StartByte() {
			continue
		}
		switch c.Type() {
		case "dotted_name":
			name := parser.GetNodeText(c, r.source)
			full := base + "." + name
			r.top().aliases[name] = full
			r.addDef(full, models.KindImport, line)
		case "aliased_import":
			name := parser.GetNodeText(c.ChildByFieldName("name"), r.source)
			alias := parser.GetNodeText(c.ChildByFieldName("alias"), r.source)
			if name == "" || alias == "" {
				continue
			}
			full := base + "." + name
			r.top().aliases[alias] = full
			r.addDef(full, models.KindImport, line)
		case "wildcard_import":
			// from m import *: nothing bindable to track
		}
	}
}

func (r *Resolver) visitDecorated(node *sitter.Node) {
	var decorators []*sitter.Node
	var def *sitter.Node
	for _, c := range parser.NamedChildren(node) {
		switch c.Type() {
		case "decorator":
			decorators = append(decorators, c)
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
		r.visitClass(def, decorators)
	} else {
		r.visitFunction(def, decorators)
	}
}

// decoratorName returns the dotted name of the decorated expression, without
// call arguments.
func (r *Resolver) decoratorName(dec *sitter.Node) string {
	expr := dec.NamedChild(0)
	if expr == nil {
		return ""
	}
	if expr.Type() == "call" {
		expr = expr.ChildByFieldName("function")
	}
	return dottedText(expr, r.source)
}

// dottedText flattens an identifier/attribute chain to "a.b.c", or "" when
// the expression is not a plain chain.
func dottedText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier":
		return parser.GetNodeText(node, source)
	case "attribute":
		obj := dottedText(node.ChildByFieldName("object"), source)
		attr := parser.GetNodeText(node.ChildByFieldName("attribute"), source)
		if obj == "" || attr == "" {
			return ""
		}
		return obj + "." + attr
	}
	return ""
}

// frameworkInvoked reports whether a decorator marks the definition as called
// by a framework or the runtime rather than by explicit user code.
func frameworkInvoked(decorator string) bool {
	if decorator == "" {
		return false
	}
	parts := strings.Split(decorator, ".")
	leaf := parts[len(parts)-1]
	if _, ok := propertyDecorators[leaf]; ok {
		return true
	}
	lower := strings.ToLower(decorator)
	for _, hint := range frameworkDecoratorHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func (r *Resolver) visitFunction(node *sitter.Node, decorators []*sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := parser.GetNodeText(nameNode, r.source)
	fqn := r.scoped(name)

	kind := models.KindFunction
	if r.top().kind == scopeClass {
		kind = models.KindMethod
	}
	def := r.addDef(fqn, kind, parser.Line(node))

	for _, dec := range decorators {
		dn := r.decoratorName(dec)
		def.Decorators = append(def.Decorators, dn)
		if frameworkInvoked(dn) {
			r.addRef(fqn)
		}
		r.visit(dec.NamedChild(0))
	}

	f := newFrame(scopeFunction, fqn, def)
	r.push(f)
	r.bindParameters(node.ChildByFieldName("parameters"), fqn, f)
	r.visit(node.ChildByFieldName("return_type"))
	r.visit(node.ChildByFieldName("body"))
	r.pop()
}

func (r *Resolver) bindParameters(params *sitter.Node, owner string, f *frame) {
	if params == nil {
		return
	}
	line := parser.Line(params)
	for _, p := range parser.NamedChildren(params) {
		var nameNode *sitter.Node
		switch p.Type() {
		case "identifier":
			nameNode = p
		case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
			nameNode = firstIdentifier(p)
			r.visitParameterType(p)
		case "default_parameter", "typed_default_parameter":
			nameNode = p.ChildByFieldName("name")
			r.visit(p.ChildByFieldName("value"))
			r.visitParameterType(p)
		default:
			continue
		}
		if nameNode == nil {
			continue
		}
		name := parser.GetNodeText(nameNode, r.source)
		if name == "" {
			continue
		}
		fqn := owner + "." + name
		f.params[name] = fqn
		r.addDef(fqn, models.KindParameter, line)
	}
}

func (r *Resolver) visitParameterType(p *sitter.Node) {
	if t := p.ChildByFieldName("type"); t != nil {
		r.visit(t)
	}
}

func firstIdentifier(node *sitter.Node) *sitter.Node {
	for _, c := range parser.NamedChildren(node) {
		if c.Type() == "identifier" {
			return c
		}
	}
	return nil
}

func (r *Resolver) visitClass(node *sitter.Node, decorators []*sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := parser.GetNodeText(nameNode, r.source)
	fqn := r.scoped(name)
	def := r.addDef(fqn, models.KindClass, parser.Line(node))

	for _, dec := range decorators {
		dn := r.decoratorName(dec)
		def.Decorators = append(def.Decorators, dn)
		if frameworkInvoked(dn) {
			r.addRef(fqn)
		}
		r.visit(dec.NamedChild(0))
	}

	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for _, s := range parser.NamedChildren(supers) {
			if base := dottedText(s, r.source); base != "" {
				def.BaseClasses = append(def.BaseClasses, base)
			}
			r.visit(s)
		}
	}

	r.push(newFrame(scopeClass, fqn, def))
	r.visit(node.ChildByFieldName("body"))
	r.pop()
}

func (r *Resolver) visitAssignment(node *sitter.Node) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")

	if r.handleAllDeclaration(left, right) {
		return
	}

	r.visit(node.ChildByFieldName("type"))
	r.visit(right)
	r.bindTarget(left)

	// x = Ctor() makes later x.attr loads qualify through Ctor.
	if left != nil && left.Type() == "identifier" && right != nil {
		if t, ok := r.constructorType(right); ok {
			name := parser.GetNodeText(left, r.source)
			r.top().types[name] = t
		}
	}
}

// handleAllDeclaration records __all__ = [...] names as declared exports and
// references them both bare and module-qualified.
func (r *Resolver) handleAllDeclaration(left, right *sitter.Node) bool {
	if left == nil || right == nil || left.Type() != "identifier" {
		return false
	}
	if parser.GetNodeText(left, r.source) != "__all__" {
		return false
	}
	if right.Type() != "list" && right.Type() != "tuple" {
		return false
	}
	for _, elt := range parser.NamedChildren(right) {
		if elt.Type() != "string" {
			continue
		}
		if val, ok := r.stringLiteral(elt); ok {
			r.exports = append(r.exports, val)
			r.addRef(val)
			if r.module != "" {
				r.addRef(r.module + "." + val)
			}
		}
	}
	return true
}

// constructorType returns the qualified type when expr is a call to a
// capitalized name.
func (r *Resolver) constructorType(expr *sitter.Node) (string, bool) {
	if expr.Type() != "call" {
		return "", false
	}
	chain := dottedText(expr.ChildByFieldName("function"), r.source)
	if chain == "" {
		return "", false
	}
	parts := strings.Split(chain, ".")
	leaf := parts[len(parts)-1]
	if leaf == "" || leaf[0] < 'A' || leaf[0] > 'Z' {
		return "", false
	}
	qualified := r.qualify(parts[0])
	if len(parts) > 1 {
		qualified += "." + strings.Join(parts[1:], ".")
	}
	return qualified, true
}

// bindTarget handles a store position: binds local names (shadowing outer
// scopes), declares variable definitions, and visits any value subexpressions
// in load context.
func (r *Resolver) bindTarget(node *sitter.Node) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "identifier":
		name := parser.GetNodeText(node, r.source)
		if name == "" {
			return
		}
		fqn := r.scoped(name)
		r.top().locals[name] = fqn
		r.addDef(fqn, models.KindVariable, parser.Line(node))
	case "tuple_pattern", "list_pattern", "pattern_list", "tuple", "list":
		for _, c := range parser.NamedChildren(node) {
			r.bindTarget(c)
		}
	case "attribute", "subscript":
		// obj.attr = v / obj[k] = v: the receiver and key are loads
		r.visit(node)
	default:
		r.visit(node)
	}
}

func (r *Resolver) visitCall(node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")

	if fn != nil && fn.Type() == "identifier" {
		name := parser.GetNodeText(fn, r.source)
		if name == "getattr" || name == "hasattr" {
			r.handleGetattr(node, args)
		}
	}
	if fn != nil && fn.Type() == "attribute" {
		attr := parser.GetNodeText(fn.ChildByFieldName("attribute"), r.source)
		obj := fn.ChildByFieldName("object")
		if attr == "format" && obj != nil && obj.Type() == "string" {
			r.handleFormatCall(obj)
		}
	}

	r.visit(fn)
	r.visit(args)
}

// handleGetattr registers the attribute argument of getattr/hasattr as a
// reference when literal, or as a wildcard pattern when interpolated.
func (r *Resolver) handleGetattr(call, args *sitter.Node) {
	if args == nil {
		return
	}
	var positional []*sitter.Node
	for _, a := range parser.NamedChildren(args) {
		if a.Type() != "keyword_argument" {
			positional = append(positional, a)
		}
	}
	if len(positional) < 2 {
		return
	}
	attrArg := positional[1]
	if attrArg.Type() != "string" {
		return
	}
	if val, ok := r.stringLiteral(attrArg); ok {
		r.addRef(val)
		if positional[0].Type() == "identifier" {
			obj := parser.GetNodeText(positional[0], r.source)
			if obj != "self" {
				r.addRef(r.qualify(obj) + "." + val)
			}
		}
		return
	}
	// f-string attribute: keep the static prefix as pattern evidence
	if pat, ok := r.interpolationPattern(attrArg); ok {
		r.patterns = append(r.patterns, WildcardPattern{Pattern: pat, Confidence: 80})
	}
}

var formatFieldRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)`)

// handleFormatCall references the named fields of "literal".format(...).
func (r *Resolver) handleFormatCall(str *sitter.Node) {
	val, ok := r.stringLiteral(str)
	if !ok {
		return
	}
	for _, m := range formatFieldRe.FindAllStringSubmatch(val, -1) {
		r.addRef(r.qualify(m[1]))
	}
}

func (r *Resolver) visitAttribute(node *sitter.Node) {
	obj := node.ChildByFieldName("object")
	attr := parser.GetNodeText(node.ChildByFieldName("attribute"), r.source)
	if obj == nil || attr == "" {
		return
	}

	if obj.Type() == "identifier" {
		objName := parser.GetNodeText(obj, r.source)
		if objName == "self" || objName == "cls" {
			if cls := r.enclosingClassPath(); cls != "" {
				r.addRef(cls + "." + attr)
				return
			}
		}
		r.visitName(obj)
		if t, ok := r.inferredType(objName); ok {
			r.addRef(t + "." + attr)
		} else {
			r.addRef(r.qualify(objName) + "." + attr)
		}
		return
	}
	r.visit(obj)
}

func (r *Resolver) visitSubscript(node *sitter.Node) {
	value := node.ChildByFieldName("value")
	sub := node.ChildByFieldName("subscript")

	// globals()["name"] reaches a module-level symbol by string
	if value != nil && value.Type() == "call" {
		fn := value.ChildByFieldName("function")
		if fn != nil && fn.Type() == "identifier" && parser.GetNodeText(fn, r.source) == "globals" {
			if sub != nil && sub.Type() == "string" {
				if name, ok := r.stringLiteral(sub); ok {
					r.addRef(name)
					if r.module != "" {
						r.addRef(r.module + "." + name)
					}
				}
			}
		}
	}
	r.visit(value)
	r.visit(sub)
}

func (r *Resolver) visitWith(node *sitter.Node) {
	for _, c := range parser.NamedChildren(node) {
		if c.Type() != "with_clause" {
			r.visit(c)
			continue
		}
		for _, item := range parser.NamedChildren(c) {
			if item.Type() != "with_item" {
				continue
			}
			value := item.ChildByFieldName("value")
			if value == nil {
				value = item.NamedChild(0)
			}
			if value != nil && value.Type() == "as_pattern" {
				expr := value.NamedChild(0)
				alias := value.ChildByFieldName("alias")
				if alias == nil {
					alias = value.NamedChild(1)
				}
				r.visit(expr)
				target := alias
				if target != nil && target.Type() == "as_pattern_target" {
					target = target.NamedChild(0)
				}
				r.bindTarget(target)
				// with Ctor() as x: x carries the constructed type
				if target != nil && target.Type() == "identifier" && expr != nil {
					if t, ok := r.constructorType(expr); ok {
						r.top().types[parser.GetNodeText(target, r.source)] = t
					}
				}
			} else {
				r.visit(value)
			}
		}
	}
}

func (r *Resolver) visitLambda(node *sitter.Node) {
	f := newFrame(scopeLambda, r.top().path, nil)
	r.push(f)
	if params := node.ChildByFieldName("parameters"); params != nil {
		for _, p := range parser.NamedChildren(params) {
			var nameNode *sitter.Node
			switch p.Type() {
			case "identifier":
				nameNode = p
			case "default_parameter":
				nameNode = p.ChildByFieldName("name")
				r.visit(p.ChildByFieldName("value"))
			default:
				nameNode = firstIdentifier(p)
			}
			if nameNode != nil {
				name := parser.GetNodeText(nameNode, r.source)
				f.params[name] = r.top().path + ".<lambda>." + name
			}
		}
	}
	r.visit(node.ChildByFieldName("body"))
	r.pop()
}

func (r *Resolver) visitComprehension(node *sitter.Node) {
	r.push(newFrame(scopeComprehension, r.top().path, nil))
	// bind loop variables before visiting the element expression
	for _, c := range parser.NamedChildren(node) {
		if c.Type() == "for_in_clause" {
			r.visit(c.ChildByFieldName("right"))
			r.bindComprehensionTarget(c.ChildByFieldName("left"))
		}
	}
	for _, c := range parser.NamedChildren(node) {
		if c.Type() != "for_in_clause" {
			r.visit(c)
		}
	}
	r.pop()
}

// bindComprehensionTarget binds loop variables without declaring them as
// definitions; comprehension variables are not reportable symbols.
func (r *Resolver) bindComprehensionTarget(node *sitter.Node) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "identifier":
		name := parser.GetNodeText(node, r.source)
		r.top().locals[name] = r.scoped(name)
	case "tuple_pattern", "pattern_list", "tuple":
		for _, c := range parser.NamedChildren(node) {
			r.bindComprehensionTarget(c)
		}
	}
}

// visitString visits f-string interpolations and registers the static prefix
// as a wildcard pattern when it looks like a symbol-name fragment.
func (r *Resolver) visitString(node *sitter.Node) {
	var interpolations []*sitter.Node
	for _, c := range parser.NamedChildren(node) {
		if c.Type() == "interpolation" {
			interpolations = append(interpolations, c)
		}
	}
	if len(interpolations) == 0 {
		return
	}
	for _, in := range interpolations {
		for _, c := range parser.NamedChildren(in) {
			r.visit(c)
		}
	}
	if pat, ok := r.interpolationPattern(node); ok {
		r.patterns = append(r.patterns, WildcardPattern{Pattern: pat, Confidence: 70})
	}
}

var identFragmentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// interpolationPattern derives "prefix*" from an f-string whose static text
// before the first interpolation is an identifier fragment.
func (r *Resolver) interpolationPattern(str *sitter.Node) (string, bool) {
	var first *sitter.Node
	for _, c := range parser.NamedChildren(str) {
		if c.Type() == "interpolation" {
			first = c
			break
		}
	}
	if first == nil {
		return "", false
	}
	raw := r.source[str.StartByte():first.StartByte()]
	prefix := stripStringOpen(string(raw))
	if prefix == "" || !identFragmentRe.MatchString(prefix) {
		return "", false
	}
	return prefix + "*", true
}

// stringLiteral extracts the value of a plain (non-interpolated) string node.
func (r *Resolver) stringLiteral(str *sitter.Node) (string, bool) {
	for _, c := range parser.NamedChildren(str) {
		if c.Type() == "interpolation" {
			return "", false
		}
	}
	text := parser.GetNodeText(str, r.source)
	return stripQuotes(text), true
}

// stripStringOpen removes the string prefix letters and opening quotes.
func stripStringOpen(s string) string {
	i := 0
	for i < len(s) {
		switch s[i] {
		case 'f', 'F', 'r', 'R', 'b', 'B', 'u', 'U':
			i++
			continue
		}
		break
	}
	s = s[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) {
			return s[len(q):]
		}
	}
	return s
}

// stripQuotes removes prefix letters and surrounding quotes from a string
// literal's source text.
func stripQuotes(s string) string {
	i := 0
	for i < len(s) {
		switch s[i] {
		case 'f', 'F', 'r', 'R', 'b', 'B', 'u', 'U':
			i++
			continue
		}
		break
	}
	s = s[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
