package symbols

import (
	"testing"

	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

func resolve(t *testing.T, module, source string) *FileResult {
	t.Helper()
	p := parser.New()
	defer p.Close()
	res, err := p.Parse([]byte(source), module+".py")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return Resolve(res, module)
}

func findDef(fr *FileResult, name string) *Definition {
	for _, d := range fr.Defs {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func hasRef(fr *FileResult, name string) bool {
	for _, r := range fr.Refs {
		if r.Name == name {
			return true
		}
	}
	return false
}

func hasPattern(fr *FileResult, pattern string) bool {
	for _, p := range fr.Patterns {
		if p.Pattern == pattern {
			return true
		}
	}
	return false
}

func TestResolveFunctionAndCall(t *testing.T) {
	fr := resolve(t, "app", `
def greet(name):
    return "hi " + name

def main():
    greet("world")
`)
	d := findDef(fr, "app.greet")
	if d == nil {
		t.Fatal("app.greet not defined")
	}
	if d.Kind != models.KindFunction {
		t.Errorf("kind = %v, want function", d.Kind)
	}
	if !hasRef(fr, "app.greet") {
		t.Error("call to greet should reference app.greet")
	}
}

func TestResolveMethodAndSelfAttribute(t *testing.T) {
	fr := resolve(t, "app", `
class Worker:
    def helper(self):
        return 1

    def run(self):
        return self.helper()
`)
	if d := findDef(fr, "app.Worker"); d == nil || d.Kind != models.KindClass {
		t.Fatalf("app.Worker class not resolved: %+v", d)
	}
	if d := findDef(fr, "app.Worker.helper"); d == nil || d.Kind != models.KindMethod {
		t.Fatalf("app.Worker.helper method not resolved: %+v", d)
	}
	if !hasRef(fr, "app.Worker.helper") {
		t.Error("self.helper() should reference app.Worker.helper")
	}
	if d := findDef(fr, "app.Worker.run.self"); d == nil || d.Kind != models.KindParameter {
		t.Error("self parameter should be declared")
	}
}

func TestResolveImports(t *testing.T) {
	fr := resolve(t, "app", `
import os
import numpy as np
from collections import OrderedDict

np.zeros(3)
`)
	if d := findDef(fr, "os"); d == nil || d.Kind != models.KindImport {
		t.Error("import os should declare os")
	}
	if findDef(fr, "numpy") == nil {
		t.Error("aliased import should declare the origin name")
	}
	if findDef(fr, "collections.OrderedDict") == nil {
		t.Error("from-import should declare the qualified origin")
	}
	// np.zeros resolves through the alias to numpy
	if !hasRef(fr, "numpy.zeros") {
		t.Error("np.zeros should reference numpy.zeros")
	}
}

func TestResolveRelativeImport(t *testing.T) {
	fr := resolve(t, "pkg.mod", `
from .sibling import helper

helper()
`)
	if findDef(fr, "pkg.sibling.helper") == nil {
		t.Error("relative import should resolve against the package path")
	}
	if !hasRef(fr, "pkg.sibling.helper") {
		t.Error("call through relative import should reference the origin")
	}
}

func TestResolveAllDeclaration(t *testing.T) {
	fr := resolve(t, "app", `
__all__ = ["public_fn", "PublicClass"]

def public_fn():
    pass
`)
	if len(fr.Exports) != 2 {
		t.Fatalf("Exports = %v, want 2 names", fr.Exports)
	}
	if !hasRef(fr, "app.public_fn") {
		t.Error("__all__ entry should reference the module-qualified name")
	}
}

func TestResolveGetattrString(t *testing.T) {
	fr := resolve(t, "app", `
def dispatch(obj, name):
    getattr(obj, "run_task")()
`)
	if !hasRef(fr, "run_task") {
		t.Error("getattr literal should be referenced bare")
	}
}

func TestResolveGetattrFStringPattern(t *testing.T) {
	fr := resolve(t, "app", `
def dispatch(obj, name):
    getattr(obj, f"handle_{name}")()
`)
	if !hasPattern(fr, "handle_*") {
		t.Errorf("f-string getattr should yield a wildcard pattern, got %+v", fr.Patterns)
	}
}

func TestResolveFStringInterpolationVisited(t *testing.T) {
	fr := resolve(t, "app", `
def show(user):
    return f"user={user}"
`)
	if !hasRef(fr, "app.show.user") {
		t.Error("interpolated name should be referenced through the parameter scope")
	}
}

func TestResolveDynamicConstructTaintsModule(t *testing.T) {
	fr := resolve(t, "pkg.mod", `
def load(obj, name):
    return getattr(obj, name)
`)
	if _, ok := fr.Dynamic["pkg"]; !ok {
		t.Errorf("getattr usage should taint the module root, got %v", fr.Dynamic)
	}
}

func TestResolveClosureCapture(t *testing.T) {
	fr := resolve(t, "app", `
def outer(token):
    def inner():
        return token
    return inner
`)
	d := findDef(fr, "app.outer.inner")
	if d == nil {
		t.Fatal("inner function not resolved")
	}
	if !d.IsClosure {
		t.Error("inner should be marked a closure over token")
	}
}

func TestResolveDecoratorFrameworkCredit(t *testing.T) {
	fr := resolve(t, "app", `
import functools

@app.route("/users")
def list_users():
    return []

@functools.wraps
def plain():
    pass
`)
	if !hasRef(fr, "app.list_users") {
		t.Error("route decorator should credit the handler")
	}
}

func TestResolveConstructorTypeInference(t *testing.T) {
	fr := resolve(t, "app", `
class Client:
    def fetch(self):
        pass

def main():
    c = Client()
    c.fetch()
`)
	if !hasRef(fr, "app.Client.fetch") {
		t.Error("c.fetch() should reference app.Client.fetch via inferred type")
	}
}

func TestResolveGlobalsSubscript(t *testing.T) {
	fr := resolve(t, "app", `
def run():
    fn = globals()["helper"]
    return fn()
`)
	if !hasRef(fr, "app.helper") {
		t.Error(`globals()["helper"] should reference the module-level name`)
	}
}

func TestResolveComprehensionScope(t *testing.T) {
	fr := resolve(t, "app", `
items = [1, 2, 3]
squares = [x * x for x in items]
`)
	if findDef(fr, "app.x") != nil {
		t.Error("comprehension variable should not be a reportable definition")
	}
	if !hasRef(fr, "app.items") {
		t.Error("comprehension iterable should be referenced")
	}
}

func TestResolveNestedSameNameFunctions(t *testing.T) {
	fr := resolve(t, "m", `
def g():
    def f():
        return 1

def h():
    def f():
        return 2
`)
	if findDef(fr, "m.g.f") == nil {
		t.Error("m.g.f not defined")
	}
	if findDef(fr, "m.h.f") == nil {
		t.Error("m.h.f not defined")
	}
}

func TestEmptyResult(t *testing.T) {
	fr := EmptyResult()
	if fr.Dynamic == nil {
		t.Error("EmptyResult should allocate the dynamic set")
	}
	if len(fr.Defs) != 0 || len(fr.Refs) != 0 {
		t.Error("EmptyResult should carry no symbols")
	}
}
