package rules

import (
	"testing"

	"github.com/husk-dev/husk/pkg/models"
)

func TestXSSTaintedMarkup(t *testing.T) {
	findings := scanSource(t, ScanXSS, `
def handler():
    q = request.args["q"]
    return render_template_string(f"<h1>Results for {q}</h1>")
`)
	if !hasFinding(findings, "HUSK-D233", models.SeverityCritical) {
		t.Errorf("tainted markup should be critical, got %+v", findings)
	}
}

func TestXSSInterpolatedMarkup(t *testing.T) {
	findings := scanSource(t, ScanXSS, `
def banner(title):
    return Markup("<b>" + title + "</b>")
`)
	if !hasFinding(findings, "HUSK-D233", models.SeverityHigh) {
		t.Errorf("concatenated markup should be high, got %+v", findings)
	}
}

func TestXSSEscapedInput(t *testing.T) {
	findings := scanSource(t, ScanXSS, `
def handler():
    q = request.args["q"]
    return make_response(escape(q))
`)
	if hasFinding(findings, "HUSK-D233", models.SeverityCritical) {
		t.Errorf("escaped input should not be critical, got %+v", findings)
	}
}

func TestXSSNegatives(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"literal markup", `resp = Markup("<b>static</b>")`},
		{"template file", "def handler():\n    q = request.args[\"q\"]\n    return render_template(\"index.html\", q=q)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if findings := scanSource(t, ScanXSS, tt.source); len(findings) != 0 {
				t.Errorf("expected no findings, got %+v", findings)
			}
		})
	}
}
