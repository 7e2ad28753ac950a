package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults_AllFields(t *testing.T) {
	home, _ := os.UserHomeDir()
	cfg := Defaults()

	expectedHomeDir := filepath.Join(home, ".confdeploy")
	if cfg.HomeDir != expectedHomeDir {
		t.Errorf("Expected HomeDir to be '%s', got '%s'", expectedHomeDir, cfg.HomeDir)
	}
	if cfg.ServicesDir != filepath.Join(expectedHomeDir, "services") {
		t.Errorf("unexpected ServicesDir %q", cfg.ServicesDir)
	}
	if cfg.TemplateRoot != filepath.Join(expectedHomeDir, "templates") {
		t.Errorf("unexpected TemplateRoot %q", cfg.TemplateRoot)
	}
	if cfg.TargetRoot != "/etc/nginx" {
		t.Errorf("Expected TargetRoot '/etc/nginx', got '%s'", cfg.TargetRoot)
	}
	if cfg.MainConfig != "/etc/nginx/nginx.conf" {
		t.Errorf("Expected MainConfig '/etc/nginx/nginx.conf', got '%s'", cfg.MainConfig)
	}
	if strings.Join(cfg.ValidateCmd, " ") != "nginx -t" {
		t.Errorf("unexpected ValidateCmd %v", cfg.ValidateCmd)
	}
	if strings.Join(cfg.ActivateCmd, " ") != "nginx -s reload" {
		t.Errorf("unexpected ActivateCmd %v", cfg.ActivateCmd)
	}
	if cfg.RuntimeCmd == "" {
		t.Error("RuntimeCmd should default to the running executable")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFDEPLOY_HOME", "/opt/confdeploy")
	t.Setenv("CONFDEPLOY_TARGET_ROOT", "/srv/nginx")
	t.Setenv("CONFDEPLOY_TEMP_DIR", "/var/tmp")
	t.Setenv("CONFDEPLOY_VALIDATE_CMD", "openresty -t")
	t.Setenv("CONFDEPLOY_ACTIVATE_CMD", "systemctl reload openresty")

	cfg := Load()
	if cfg.HomeDir != "/opt/confdeploy" {
		t.Errorf("HomeDir = %q", cfg.HomeDir)
	}
	if cfg.ServicesDir != "/opt/confdeploy/services" {
		t.Errorf("ServicesDir = %q", cfg.ServicesDir)
	}
	if cfg.TargetRoot != "/srv/nginx" || cfg.MainConfig != "/srv/nginx/nginx.conf" {
		t.Errorf("TargetRoot/MainConfig = %q / %q", cfg.TargetRoot, cfg.MainConfig)
	}
	if cfg.TempDir != "/var/tmp" {
		t.Errorf("TempDir = %q", cfg.TempDir)
	}
	if got := strings.Join(cfg.ValidateCmd, " "); got != "openresty -t" {
		t.Errorf("ValidateCmd = %q", got)
	}
	if got := strings.Join(cfg.ActivateCmd, " "); got != "systemctl reload openresty" {
		t.Errorf("ActivateCmd = %q", got)
	}
}

func TestLoad_NoEnv(t *testing.T) {
	t.Setenv("CONFDEPLOY_HOME", "")
	cfg := Load()
	def := Defaults()
	if cfg.HomeDir != def.HomeDir {
		t.Errorf("Load() HomeDir = %q, want default %q", cfg.HomeDir, def.HomeDir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing home", func(c *Config) { c.HomeDir = "" }, "HomeDir"},
		{"missing target root", func(c *Config) { c.TargetRoot = "" }, "TargetRoot"},
		{"empty validate command", func(c *Config) { c.ValidateCmd = nil }, "ValidateCmd"},
		{"blank activate argv", func(c *Config) { c.ActivateCmd = []string{""} }, "ActivateCmd"},
		{"negative timeout", func(c *Config) { c.HookTimeout = -1 }, "HookTimeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults().WithHome(t.TempDir())
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}
