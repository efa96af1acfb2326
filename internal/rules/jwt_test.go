package rules

import (
	"testing"

	"github.com/husk-dev/husk/pkg/models"
)

func TestJWTWeaknesses(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"none algorithm", `payload = jwt.decode(token, key, algorithms=["HS256", "none"])`},
		{"none uppercase", `payload = jwt.decode(token, key, algorithms=["None"])`},
		{"verify false", `payload = jwt.decode(token, key, verify=False)`},
		{"signature check disabled", `payload = jwt.decode(token, options={"verify_signature": False})`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := scanSource(t, ScanJWT, tt.source)
			if !hasFinding(findings, "HUSK-D232", models.SeverityCritical) {
				t.Errorf("want HUSK-D232, got %+v", findings)
			}
		})
	}
}

func TestJWTNegatives(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"pinned algorithm", `payload = jwt.decode(token, key, algorithms=["HS256"])`},
		{"verify enabled", `payload = jwt.decode(token, key, verify=True)`},
		{"signature check enabled", `payload = jwt.decode(token, options={"verify_signature": True})`},
		{"unrelated decode", `text = base64.b64decode(data)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if findings := scanSource(t, ScanJWT, tt.source); len(findings) != 0 {
				t.Errorf("expected no findings, got %+v", findings)
			}
		})
	}
}
