package rules

import (
	"testing"

	"github.com/husk-dev/husk/pkg/models"
)

func TestRedirectTaintedTarget(t *testing.T) {
	findings := scanSource(t, ScanRedirect, `
def handler():
    target = request.args.get("next")
    return redirect(target)
`)
	if !hasFinding(findings, "HUSK-D230", models.SeverityHigh) {
		t.Errorf("tainted redirect target should be reported, got %+v", findings)
	}
}

func TestRedirectQualifiedCall(t *testing.T) {
	findings := scanSource(t, ScanRedirect, `
def handler():
    target = request.GET["next"]
    return django.shortcuts.HttpResponseRedirect(target)
`)
	if !hasFinding(findings, "HUSK-D230", models.SeverityHigh) {
		t.Errorf("qualified redirect call should match, got %+v", findings)
	}
}

func TestRedirectNegatives(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"constant target", `return_value = redirect("/home")`},
		{"url_for target", "def handler():\n    target = request.args.get(\"next\")\n    redirect(url_for(target))"},
		{"unrelated call", "def handler():\n    target = request.args.get(\"next\")\n    log(target)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if findings := scanSource(t, ScanRedirect, tt.source); len(findings) != 0 {
				t.Errorf("expected no findings, got %+v", findings)
			}
		})
	}
}
