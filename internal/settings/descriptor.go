package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// document is the on-disk shape of <service>.yaml. Unknown keys are ignored.
type document struct {
	MinVersion string               `yaml:"min_version"`
	Common     yaml.Node            `yaml:"common"`
	Configs    map[string]yaml.Node `yaml:"configs" validate:"required"`
}

// Descriptor is a parsed service descriptor.
type Descriptor struct {
	Service    string
	MinVersion string
	Common     Value
	Configs    map[string]Value
}

// Profile returns the named profile; a null profile is an empty mapping.
func (d *Descriptor) Profile(name string) (Value, bool) {
	p, ok := d.Configs[name]
	if !ok {
		return Value{}, false
	}
	if p.IsNull() {
		return Map(nil), true
	}
	return p, true
}

// ConfigNames lists profile names in lexical order.
func (d *Descriptor) ConfigNames() []string { return sortedKeys(d.Configs) }

// LoadDescriptor reads and parses <dir>/<service>.yaml.
func LoadDescriptor(dir, service string) (*Descriptor, error) {
	path := filepath.Join(dir, service+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ResolutionError{Kind: ErrDescriptorNotFound, Service: service, Err: err}
		}
		return nil, &ResolutionError{Kind: ErrDescriptorMalformed, Service: service, Err: err}
	}
	d, err := ParseDescriptor(service, data)
	if err != nil {
		return nil, &ResolutionError{Kind: ErrDescriptorMalformed, Service: service, Err: err}
	}
	return d, nil
}

// ParseDescriptor decodes descriptor bytes. An empty document or a missing
// configs section is rejected.
func ParseDescriptor(service string, data []byte) (*Descriptor, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, errors.New("missing configs section")
	}

	common, err := FromNode(&doc.Common)
	if err != nil {
		return nil, fmt.Errorf("common: %w", err)
	}
	switch common.Kind() {
	case KindNull:
		common = Map(nil)
	case KindMap:
	default:
		return nil, fmt.Errorf("common: expected mapping, got %s", common.Kind())
	}

	d := &Descriptor{
		Service:    service,
		MinVersion: doc.MinVersion,
		Common:     common,
		Configs:    make(map[string]Value, len(doc.Configs)),
	}
	for name, node := range doc.Configs {
		v, err := FromNode(&node)
		if err != nil {
			return nil, fmt.Errorf("configs.%s: %w", name, err)
		}
		if k := v.Kind(); k != KindNull && k != KindMap {
			return nil, fmt.Errorf("configs.%s: expected mapping, got %s", name, k)
		}
		d.Configs[name] = v
	}
	return d, nil
}
