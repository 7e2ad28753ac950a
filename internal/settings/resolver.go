package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/pushchain/confdeploy/internal/config"
)

// Resolver turns service descriptors into Settings. It reads descriptors and
// nothing else.
type Resolver struct {
	cfg          config.Config
	buildVersion string
}

// NewResolver binds a resolver to the deployer configuration. buildVersion
// gates descriptors that declare min_version; non-semver builds (dev) skip
// the gate.
func NewResolver(cfg config.Config, buildVersion string) *Resolver {
	return &Resolver{cfg: cfg, buildVersion: buildVersion}
}

// Load reads and checks the descriptor for service.
func (r *Resolver) Load(service string) (*Descriptor, error) {
	if service == "" || strings.ContainsAny(service, `/\`) || service == "." || service == ".." {
		return nil, &ResolutionError{Kind: ErrDescriptorNotFound, Service: service, Err: fmt.Errorf("invalid service name")}
	}
	d, err := LoadDescriptor(r.cfg.ServicesDir, service)
	if err != nil {
		return nil, err
	}
	if err := r.checkVersion(d); err != nil {
		return nil, &ResolutionError{Kind: ErrDescriptorMalformed, Service: service, Err: err}
	}
	return d, nil
}

func (r *Resolver) checkVersion(d *Descriptor) error {
	if d.MinVersion == "" {
		return nil
	}
	want := d.MinVersion
	if !strings.HasPrefix(want, "v") {
		want = "v" + want
	}
	if !semver.IsValid(want) {
		return fmt.Errorf("min_version %q is not a semantic version", d.MinVersion)
	}
	if !semver.IsValid(r.buildVersion) {
		return nil
	}
	if semver.Compare(r.buildVersion, want) < 0 {
		return fmt.Errorf("descriptor requires confdeploy %s or newer (running %s)", want, r.buildVersion)
	}
	return nil
}

// Resolve merges the expanded common section with the raw profile and
// injects the reserved keys.
func (r *Resolver) Resolve(service, configName string) (Settings, error) {
	d, err := r.Load(service)
	if err != nil {
		return Settings{}, err
	}
	return r.ResolveDescriptor(d, configName)
}

// ResolveDescriptor is Resolve for an already loaded descriptor.
func (r *Resolver) ResolveDescriptor(d *Descriptor, configName string) (Settings, error) {
	profile, ok := d.Profile(configName)
	if !ok {
		return Settings{}, &ResolutionError{Kind: ErrConfigNotFound, Service: d.Service, Config: configName}
	}

	vars := map[string]string{"service": d.Service, "config": configName}
	common, err := d.Common.MapStrings(func(s string) (string, error) {
		return expandPlaceholders(s, vars)
	})
	if err != nil {
		return Settings{}, &ResolutionError{Kind: ErrDescriptorMalformed, Service: d.Service, Config: configName, Err: fmt.Errorf("common.%w", err)}
	}

	commonEntries, _ := common.Entries()
	profileEntries, _ := profile.Entries()
	values := make(map[string]Value, len(commonEntries)+len(profileEntries)+len(ReservedKeys))
	for k, v := range commonEntries {
		values[k] = v
	}
	for k, v := range profileEntries {
		values[k] = v
	}

	values[KeyService] = String(d.Service)
	values[KeyConfig] = String(configName)
	values[KeyHome] = String(r.cfg.HomeDir)
	values[KeyRuntimeCmd] = String(r.cfg.RuntimeCmd)
	return Settings{values: values}, nil
}

// Services lists descriptor names available in the services directory.
func (r *Resolver) Services() ([]string, error) {
	entries, err := os.ReadDir(r.cfg.ServicesDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}
