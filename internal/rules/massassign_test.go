package rules

import (
	"testing"

	"github.com/husk-dev/husk/pkg/models"
)

func TestMassAssignmentAllFields(t *testing.T) {
	findings := scanSource(t, ScanMassAssignment, `
class UserSerializer(serializers.ModelSerializer):
    class Meta:
        model = User
        fields = "__all__"
`)
	if !hasFinding(findings, "HUSK-D234", models.SeverityHigh) {
		t.Errorf("Meta.fields = \"__all__\" should be reported, got %+v", findings)
	}
}

func TestMassAssignmentNegatives(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{
			"explicit field list",
			"class UserSerializer(serializers.ModelSerializer):\n    class Meta:\n        model = User\n        fields = [\"name\", \"email\"]",
		},
		{
			"all outside meta",
			"class Config:\n    fields = \"__all__\"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if findings := scanSource(t, ScanMassAssignment, tt.source); len(findings) != 0 {
				t.Errorf("expected no findings, got %+v", findings)
			}
		})
	}
}
