package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pushchain/confdeploy/internal/exitcodes"
	"github.com/pushchain/confdeploy/internal/render"
)

func TestHandleRender(t *testing.T) {
	e := newTestEnv(t)

	if err := handleRender(e.deps, "nginxsite", "staging", "includes/proxy.conf"); err != nil {
		t.Fatalf("handleRender failed: %v", err)
	}
	if got := e.out.String(); got != "proxy_pass http://10.0.0.2:9000;\n" {
		t.Errorf("output = %q", got)
	}
}

func TestHandleRender_JSON(t *testing.T) {
	e := newTestEnv(t)
	e.setOutput("json")

	if err := handleRender(e.deps, "nginxsite", "prod", "prod.conf"); err != nil {
		t.Fatalf("handleRender failed: %v", err)
	}
	var res renderResult
	if err := json.Unmarshal(e.out.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, e.out.String())
	}
	if res.Template != "nginxsite/prod.conf" || !strings.Contains(res.Content, "listen 8080;") {
		t.Errorf("result = %+v", res)
	}
}

func TestHandleRender_Errors(t *testing.T) {
	e := newTestEnv(t)

	err := handleRender(e.deps, "nginxsite", "prod", "broken.conf")
	if !errors.Is(err, render.ErrUndefinedReference) {
		t.Errorf("broken template: err = %v, want undefined reference", err)
	}

	err = handleRender(e.deps, "nginxsite", "prod", "../../services/nginxsite.yaml")
	if err == nil {
		t.Error("template outside the template root should be rejected")
	}

	err = handleRender(e.deps, "nginxsite", "qa", "prod.conf")
	if got := exitcodes.CodeForError(err); got != exitcodes.PreconditionFailed {
		t.Errorf("unknown config: exit code = %d (%v)", got, err)
	}
	if e.out.Len() != 0 {
		t.Errorf("failed renders printed output: %q", e.out.String())
	}
}

func TestHandleSettings(t *testing.T) {
	e := newTestEnv(t)
	e.setOutput("json")

	if err := handleSettings(e.deps, "nginxsite", "prod"); err != nil {
		t.Fatalf("handleSettings failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(e.out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, e.out.String())
	}
	want := map[string]any{
		"port":        float64(8080),
		"upstream":    "http://127.0.0.1:9000",
		"SERVICE":     "nginxsite",
		"CONFIG":      "prod",
		"HOME":        e.cfg.HomeDir,
		"RUNTIME_CMD": "/usr/local/bin/confdeploy",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	mkdirs, _ := got["mkdirs"].([]any)
	if len(mkdirs) != 1 || mkdirs[0] != "logs/nginxsite-prod" {
		t.Errorf("mkdirs = %v, want placeholders expanded", got["mkdirs"])
	}
}

func TestHandleSettings_Text(t *testing.T) {
	e := newTestEnv(t)

	if err := handleSettings(e.deps, "nginxsite", "staging"); err != nil {
		t.Fatalf("handleSettings failed: %v", err)
	}
	out := e.out.String()
	for _, want := range []string{"SETTINGS nginxsite/staging", "upstream", "http://10.0.0.2:9000", "RUNTIME_CMD"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
