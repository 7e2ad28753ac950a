package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pushchain/confdeploy/internal/exitcodes"
)

type doctorReport struct {
	Checks   []checkResult `json:"checks"`
	Passed   int           `json:"passed"`
	Warnings int           `json:"warnings"`
	Failed   int           `json:"failed"`
}

func runDoctorJSON(t *testing.T, e *testEnv) (doctorReport, error) {
	t.Helper()
	e.out.Reset()
	e.setOutput("json")
	err := runDoctor(e.deps)
	var rep doctorReport
	if derr := json.Unmarshal(e.out.Bytes(), &rep); derr != nil {
		t.Fatalf("decode: %v\n%s", derr, e.out.String())
	}
	return rep, err
}

func findCheck(rep doctorReport, name string) checkResult {
	for _, c := range rep.Checks {
		if c.Name == name {
			return c
		}
	}
	return checkResult{}
}

func TestRunDoctor_Healthy(t *testing.T) {
	e := newTestEnv(t)
	if err := os.MkdirAll(e.cfg.TempDir, 0o755); err != nil {
		t.Fatal(err)
	}

	rep, err := runDoctorJSON(t, e)
	if err != nil {
		t.Fatalf("runDoctor failed: %v (%+v)", err, rep)
	}
	if rep.Failed != 0 || len(rep.Checks) != 5 {
		t.Errorf("report = %+v", rep)
	}
	for _, name := range []string{"Configuration", "Service descriptors", "Templates", "Hook commands"} {
		if c := findCheck(rep, name); c.Status != "pass" {
			t.Errorf("%s = %+v, want pass", name, c)
		}
	}
	if c := findCheck(rep, "Hook commands"); !strings.Contains(strings.Join(c.Details, "\n"), "validate: /usr/sbin/nginx") {
		t.Errorf("hook details = %v", c.Details)
	}
}

func TestRunDoctor_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, e *testEnv)
		check string
		want  string
	}{
		{
			name: "hook missing",
			setup: func(t *testing.T, e *testEnv) {
				e.deps.LookPath = func(string) (string, error) { return "", errors.New("not found") }
			},
			check: "Hook commands",
			want:  "fail",
		},
		{
			name: "malformed descriptor",
			setup: func(t *testing.T, e *testEnv) {
				writeTestFile(t, filepath.Join(e.cfg.ServicesDir, "broken.yaml"), "common: [\n")
			},
			check: "Service descriptors",
			want:  "fail",
		},
		{
			name: "invalid config",
			setup: func(t *testing.T, e *testEnv) {
				e.deps.Cfg.ValidateCmd = nil
			},
			check: "Configuration",
			want:  "fail",
		},
		{
			name: "templates missing for a service",
			setup: func(t *testing.T, e *testEnv) {
				writeTestFile(t, filepath.Join(e.cfg.ServicesDir, "haproxy.yaml"), "configs:\n  prod: {}\n")
			},
			check: "Templates",
			want:  "warn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			tt.setup(t, e)

			rep, err := runDoctorJSON(t, e)
			if c := findCheck(rep, tt.check); c.Status != tt.want {
				t.Errorf("%s = %+v, want %s", tt.check, c, tt.want)
			}
			wantCode := exitcodes.Success
			if tt.want == "fail" {
				wantCode = exitcodes.ValidationError
			}
			if got := exitcodes.CodeForError(err); got != wantCode {
				t.Errorf("exit code = %d (%v), want %d", got, err, wantCode)
			}
		})
	}
}

func TestRunDoctor_Text(t *testing.T) {
	e := newTestEnv(t)

	_ = runDoctor(e.deps)
	out := e.out.String()
	for _, want := range []string{"DEPLOYER HEALTH CHECK", "[OK] Configuration: Configuration is valid", "Summary", "passed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExistingParent(t *testing.T) {
	dir := t.TempDir()
	if got := existingParent(filepath.Join(dir, "a", "b", "c")); got != dir {
		t.Errorf("existingParent = %q, want %q", got, dir)
	}
	if got := existingParent(dir); got != dir {
		t.Errorf("existingParent(existing) = %q", got)
	}
}
