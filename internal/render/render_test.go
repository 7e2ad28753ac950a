package render

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemplate(t *testing.T, root, name, body string) {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRender(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "nginxsite/prod.conf", `server {
    listen {{ .port }};
    server_name {{ join .names " " }};
    root {{ .HOME }}/www/{{ .CONFIG }};
{{- range .includes }}
    include includes/{{ $.CONFIG }}/{{ . }};
{{- end }}
}
`)
	ctx := map[string]any{
		"port":     int64(8080),
		"names":    []string{"example.com", "www.example.com"},
		"HOME":     "/opt/confdeploy",
		"CONFIG":   "prod",
		"includes": []any{"proxy.conf"},
	}

	r := New(root)
	got, err := r.Render("nginxsite/prod.conf", ctx)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := `server {
    listen 8080;
    server_name example.com www.example.com;
    root /opt/confdeploy/www/prod;
    include includes/prod/proxy.conf;
}
`
	if got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}

	again, err := r.Render("nginxsite/prod.conf", ctx)
	if err != nil || again != got {
		t.Errorf("render must be deterministic: %v", err)
	}
}

func TestRender_UndefinedReference(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "site.conf", "listen {{ .port }};\n")
	writeTemplate(t, root, "nested.conf", "cert {{ .tls.cert }};\n")
	writeTemplate(t, root, "indexed.conf", "upstream {{ index . \"upstream\" }};\n")
	writeTemplate(t, root, "nested-index.conf", "cert {{ index .tls \"cert\" }};\n")
	writeTemplate(t, root, "list-index.conf", "include {{ index .includes 2 }};\n")

	tests := []struct {
		name string
		tmpl string
		ctx  map[string]any
	}{
		{"missing top-level key", "site.conf", map[string]any{"other": 1}},
		{"empty context", "site.conf", map[string]any{}},
		{"missing nested key", "nested.conf", map[string]any{"tls": map[string]any{"key": "x"}}},
		{"field on scalar", "nested.conf", map[string]any{"tls": "off"}},
		{"index of missing key", "indexed.conf", map[string]any{"port": 80}},
		{"index of missing nested key", "nested-index.conf", map[string]any{"tls": map[string]any{"key": "x"}}},
		{"index past end of list", "list-index.conf", map[string]any{"includes": []any{"a.conf"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(root).Render(tt.tmpl, tt.ctx)
			if !errors.Is(err, ErrUndefinedReference) {
				t.Fatalf("Render error = %v, want undefined reference", err)
			}
			var re *RenderError
			if !errors.As(err, &re) || re.Template != tt.tmpl {
				t.Errorf("error should be a *RenderError for %s, got %#v", tt.tmpl, err)
			}
		})
	}
}

func TestRender_Index(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "site.conf", `{{ index . "upstream" }} {{ index .tls "cert" }} {{ index .includes 1 }} {{ index .ports 0 }}`)
	ctx := map[string]any{
		"upstream": "127.0.0.1:9000",
		"tls":      map[string]any{"cert": "site.crt"},
		"includes": []any{"a.conf", "b.conf"},
		"ports":    []int64{8080},
	}

	got, err := New(root).Render("site.conf", ctx)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if want := "127.0.0.1:9000 site.crt b.conf 8080"; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRender_OtherFailures(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "broken.conf", "{{ .port ")

	tests := []struct {
		name string
		tmpl string
	}{
		{"missing template", "absent.conf"},
		{"parse error", "broken.conf"},
		{"escapes root", "../outside.conf"},
		{"absolute path", "/etc/passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(root).Render(tt.tmpl, map[string]any{"port": 1})
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrUndefinedReference) {
				t.Errorf("%s should not be reported as an undefined reference: %v", tt.name, err)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "site.conf")
	if err := os.WriteFile(dst, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := WriteFile(dst, "new", 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "new" {
		t.Fatalf("content = %q, %v", data, err)
	}
	st, _ := os.Stat(dst)
	if st.Mode().Perm() != 0o644 {
		t.Errorf("perm = %v, want 0644", st.Mode().Perm())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriteFile_MissingDir(t *testing.T) {
	if err := WriteFile(filepath.Join(t.TempDir(), "nope", "x.conf"), "x", 0o644); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}
