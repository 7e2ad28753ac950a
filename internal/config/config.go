package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the deployer's process-wide settings. It is constructed once
// at startup (defaults, then env, then flags) and passed by value to the
// resolver, renderer and adapters.
type Config struct {
	HomeDir      string        `validate:"required"` // install root, exposed to templates as HOME
	ServicesDir  string        `validate:"required"` // <service>.yaml descriptors
	TemplateRoot string        `validate:"required"` // <service>/... templates and static files
	TargetRoot   string        `validate:"required"` // daemon config root, e.g. /etc/nginx
	MainConfig   string        `validate:"required"` // shared daemon config file
	TempDir      string        // snapshot staging; empty means os.TempDir()
	RuntimeCmd   string        `validate:"required"` // exposed to templates as RUNTIME_CMD
	HistoryDir   string        // deployment journal; empty disables history
	MetricsFile  string        // node-exporter textfile; empty disables metrics export
	ValidateCmd  []string      `validate:"required,min=1,dive,required"`
	ActivateCmd  []string      `validate:"required,min=1,dive,required"`
	HookTimeout  time.Duration `validate:"gte=0"`
}

var validate = validator.New()

// Defaults returns the stock nginx-oriented configuration.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	runtime, err := os.Executable()
	if err != nil {
		runtime = "confdeploy"
	}
	cfg := Config{
		TargetRoot:  "/etc/nginx",
		MainConfig:  "/etc/nginx/nginx.conf",
		RuntimeCmd:  runtime,
		ValidateCmd: []string{"nginx", "-t"},
		ActivateCmd: []string{"nginx", "-s", "reload"},
		HookTimeout: 60 * time.Second,
	}
	return cfg.WithHome(filepath.Join(home, ".confdeploy"))
}

// WithHome re-roots every home-derived path (services, templates, history).
func (c Config) WithHome(home string) Config {
	c.HomeDir = home
	c.ServicesDir = filepath.Join(home, "services")
	c.TemplateRoot = filepath.Join(home, "templates")
	c.HistoryDir = filepath.Join(home, "history")
	return c
}

// WithTargetRoot moves the daemon root and the main config file beneath it.
func (c Config) WithTargetRoot(root string) Config {
	c.TargetRoot = root
	c.MainConfig = filepath.Join(root, "nginx.conf")
	return c
}

// Load returns default config with environment overrides applied.
// Use flags for other configuration options.
func Load() Config {
	cfg := Defaults()
	if v := os.Getenv("CONFDEPLOY_HOME"); v != "" {
		cfg = cfg.WithHome(v)
	}
	if v := os.Getenv("CONFDEPLOY_TARGET_ROOT"); v != "" {
		cfg = cfg.WithTargetRoot(v)
	}
	if v := os.Getenv("CONFDEPLOY_TEMP_DIR"); v != "" {
		cfg.TempDir = v
	}
	if v := os.Getenv("CONFDEPLOY_VALIDATE_CMD"); v != "" {
		cfg.ValidateCmd = strings.Fields(v)
	}
	if v := os.Getenv("CONFDEPLOY_ACTIVATE_CMD"); v != "" {
		cfg.ActivateCmd = strings.Fields(v)
	}
	return cfg
}

// Validate reports the first missing or invalid field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q check", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
