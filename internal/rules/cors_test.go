package rules

import (
	"testing"

	"github.com/husk-dev/husk/pkg/models"
)

func TestCORSWildcardConfigurations(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"django allow all", `CORS_ALLOW_ALL_ORIGINS = True`},
		{"header subscript", `response.headers["Access-Control-Allow-Origin"] = "*"`},
		{"header dict pair", `headers = {"Access-Control-Allow-Origin": "*"}`},
		{"flask cors without allowlist", `CORS(app)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := scanSource(t, ScanCORS, tt.source)
			if !hasFinding(findings, "HUSK-D231", models.SeverityHigh) {
				t.Errorf("want HUSK-D231, got %+v", findings)
			}
		})
	}
}

func TestCORSNegatives(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"allow all disabled", `CORS_ALLOW_ALL_ORIGINS = False`},
		{"specific origin header", `response.headers["Access-Control-Allow-Origin"] = "https://example.com"`},
		{"cors with origins", `CORS(app, origins=["https://example.com"])`},
		{"cors with resources", `CORS(app, resources={r"/api/*": {"origins": "https://example.com"}})`},
		{"unrelated header", `response.headers["Content-Type"] = "*"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if findings := scanSource(t, ScanCORS, tt.source); len(findings) != 0 {
				t.Errorf("expected no findings, got %+v", findings)
			}
		})
	}
}
