// Package presets holds the named countdown variants used across the
// storefront, so every surface shares one tick cadence and tier policy.
package presets

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hanko-field/promoclock/internal/countdown"
)

//go:embed presets.yaml
var defaultDocument []byte

// ErrPresetNotFound is returned by Get for unknown variant names.
var ErrPresetNotFound = errors.New("presets: variant not found")

// Preset is one named countdown variant.
type Preset struct {
	Name        string                    `yaml:"-"`
	Description string                    `yaml:"description"`
	IntervalMs  int64                     `yaml:"interval_ms"`
	Thresholds  countdown.ThresholdConfig `yaml:"thresholds"`
}

// Interval returns the tick interval.
func (p Preset) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// Policy returns the validated threshold policy of the preset.
func (p Preset) Policy() (countdown.ThresholdPolicy, error) {
	return countdown.NewThresholdPolicy(p.Thresholds)
}

type document struct {
	Default  string            `yaml:"default"`
	Variants map[string]Preset `yaml:"variants"`
}

// Catalog is an immutable set of presets with a default.
type Catalog struct {
	defaultName string
	presets     map[string]Preset
}

// Default returns the embedded catalog.
func Default() *Catalog {
	catalog, err := parse(defaultDocument, nil)
	if err != nil {
		panic(fmt.Sprintf("presets: embedded document invalid: %v", err))
	}
	return catalog
}

// Load returns the embedded catalog overlaid with the YAML file at path.
// Variants in the file replace embedded variants of the same name. An empty
// path yields the embedded catalog.
func Load(path string) (*Catalog, error) {
	base := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("presets: read %s: %w", path, err)
	}
	catalog, err := parse(raw, base)
	if err != nil {
		return nil, fmt.Errorf("presets: %s: %w", path, err)
	}
	return catalog, nil
}

func parse(raw []byte, base *Catalog) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	catalog := &Catalog{presets: make(map[string]Preset)}
	if base != nil {
		catalog.defaultName = base.defaultName
		for name, p := range base.presets {
			catalog.presets[name] = p
		}
	}
	for name, p := range doc.Variants {
		name = normalize(name)
		if name == "" {
			return nil, errors.New("variant name is required")
		}
		p.Name = name
		if p.IntervalMs <= 0 {
			return nil, fmt.Errorf("variant %s: interval_ms must be positive", name)
		}
		if _, err := p.Policy(); err != nil {
			return nil, fmt.Errorf("variant %s: %w", name, err)
		}
		catalog.presets[name] = p
	}
	if d := normalize(doc.Default); d != "" {
		catalog.defaultName = d
	}
	if _, ok := catalog.presets[catalog.defaultName]; !ok {
		return nil, fmt.Errorf("default variant %q is not defined", catalog.defaultName)
	}
	return catalog, nil
}

// Get returns the named preset or ErrPresetNotFound.
func (c *Catalog) Get(name string) (Preset, error) {
	p, ok := c.presets[normalize(name)]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return p, nil
}

// Lookup returns the named preset, falling back to the default variant for
// blank or unknown names. The boolean reports whether name matched.
func (c *Catalog) Lookup(name string) (Preset, bool) {
	if p, ok := c.presets[normalize(name)]; ok {
		return p, true
	}
	return c.presets[c.defaultName], false
}

// DefaultName returns the name of the default variant.
func (c *Catalog) DefaultName() string { return c.defaultName }

// Names lists the variant names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.presets))
	for name := range c.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, "-", "_")))
}
