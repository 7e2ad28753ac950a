package settings

import "testing"

func TestExpandPlaceholders(t *testing.T) {
	vars := map[string]string{"service": "nginxsite", "config": "prod"}
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"{service}", "nginxsite", false},
		{"/etc/{service}/{config}.conf", "/etc/nginxsite/prod.conf", false},
		{"{{literal}}", "{literal}", false},
		{"{{{config}}}", "{prod}", false},
		{"{missing}", "", true},
		{"{config", "", true},
		{"config}", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := expandPlaceholders(tt.in, vars)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expandPlaceholders(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
