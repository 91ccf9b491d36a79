package evaluation

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed labelmap_default.yaml
var defaultLabelMapYAML []byte

// ErrUnmappedLabel is returned (wrapped in *UnmappedLabelError) when a source label has no entry in the
// label map. It is a configuration defect, never a data defect.
var ErrUnmappedLabel = errors.New("unmapped label")

// UnmappedLabelError names the label that could not be generalized.
type UnmappedLabelError struct {
	Label string
}

func (e *UnmappedLabelError) Error() string {
	return fmt.Sprintf("unmapped label %q", e.Label)
}

func (e *UnmappedLabelError) Unwrap() error { return ErrUnmappedLabel }

// LabelMapConfig is the YAML form of a label map.
type LabelMapConfig struct {
	// Base names a table to start from. Only "default" (the embedded table) is supported.
	Base string `yaml:"base,omitempty"`

	Generalize        map[string]string `yaml:"generalize"`
	ExcludedAlways    []string          `yaml:"excluded_always"`
	ExcludedInPartial []string          `yaml:"excluded_in_partial"`
	SkipSegments      []string          `yaml:"skip_segments"`

	// NoiseTokens are exact tokens that start a metadata line (e.g. "(META"). The rest of the line is dropped.
	NoiseTokens []string `yaml:"noise_tokens"`
	// NoisePrefixes mark a line starting with a bare token like "http" as wrapped metadata. The line is dropped.
	NoisePrefixes []string `yaml:"noise_prefixes"`

	MalformedRootLabel string `yaml:"malformed_root_label"`
}

// LabelMap is an immutable mapping from source-schema labels to general-schema labels, plus the
// exclusion sets that control which general labels produce brackets. It is safe for concurrent use.
type LabelMap struct {
	generalize        map[string]string
	excludedAlways    map[string]struct{}
	excludedInPartial map[string]struct{}
	skipSegments      map[string]struct{}
	noiseTokens       map[string]struct{}
	noisePrefixes     []string
	malformedRoot     string
}

// NewLabelMap validates cfg and builds a LabelMap from it.
func NewLabelMap(cfg LabelMapConfig) (*LabelMap, error) {
	if len(cfg.Generalize) == 0 {
		return nil, errors.New("NewLabelMap: generalize table is empty")
	}
	m := &LabelMap{
		generalize:        make(map[string]string, len(cfg.Generalize)),
		excludedAlways:    toSet(cfg.ExcludedAlways),
		excludedInPartial: toSet(cfg.ExcludedInPartial),
		skipSegments:      toSet(cfg.SkipSegments),
		noiseTokens:       toSet(cfg.NoiseTokens),
		noisePrefixes:     append([]string(nil), cfg.NoisePrefixes...),
		malformedRoot:     strings.TrimSpace(cfg.MalformedRootLabel),
	}

	var bad []string
	for src, dst := range cfg.Generalize {
		src = norm.NFC.String(strings.TrimSpace(src))
		dst = norm.NFC.String(strings.TrimSpace(dst))
		if src == "" {
			return nil, errors.New("NewLabelMap: empty source label")
		}
		if !isBracketLabel(dst) {
			bad = append(bad, fmt.Sprintf("%s -> %q", src, dst))
			continue
		}
		m.generalize[src] = dst
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return nil, fmt.Errorf("NewLabelMap: illegal target labels: %s", strings.Join(bad, ", "))
	}
	return m, nil
}

var (
	defaultLabelMapOnce sync.Once
	defaultLabelMap     *LabelMap
	defaultLabelMapErr  error
)

// DefaultLabelMap returns the built-in Greynir/IceParser to general schema table.
func DefaultLabelMap() (*LabelMap, error) {
	defaultLabelMapOnce.Do(func() {
		cfg, err := defaultLabelMapConfig()
		if err != nil {
			defaultLabelMapErr = err
			return
		}
		defaultLabelMap, defaultLabelMapErr = NewLabelMap(cfg)
	})
	return defaultLabelMap, defaultLabelMapErr
}

func defaultLabelMapConfig() (LabelMapConfig, error) {
	var cfg LabelMapConfig
	if err := yaml.Unmarshal(defaultLabelMapYAML, &cfg); err != nil {
		return LabelMapConfig{}, fmt.Errorf("DefaultLabelMap: parse embedded table: %w", err)
	}
	return cfg, nil
}

// LoadLabelMap reads a YAML label map. With `base: default` the file is merged over the built-in table:
// generalize entries are added or replaced, and any list present in the file replaces the built-in list.
func LoadLabelMap(path string) (*LabelMap, error) {
	if path == "" {
		return nil, errors.New("LoadLabelMap: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadLabelMap: read file: %w", err)
	}
	var cfg LabelMapConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("LoadLabelMap: parse yaml: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Base)) {
	case "":
	case "default":
		base, err := defaultLabelMapConfig()
		if err != nil {
			return nil, err
		}
		cfg = mergeLabelMapConfig(base, cfg)
	default:
		return nil, fmt.Errorf("LoadLabelMap: unknown base %q", cfg.Base)
	}

	m, err := NewLabelMap(cfg)
	if err != nil {
		return nil, fmt.Errorf("LoadLabelMap: %s: %w", path, err)
	}
	return m, nil
}

func mergeLabelMapConfig(base, over LabelMapConfig) LabelMapConfig {
	out := base
	out.Base = ""
	out.Generalize = make(map[string]string, len(base.Generalize)+len(over.Generalize))
	for k, v := range base.Generalize {
		out.Generalize[k] = v
	}
	for k, v := range over.Generalize {
		out.Generalize[k] = v
	}
	if over.ExcludedAlways != nil {
		out.ExcludedAlways = over.ExcludedAlways
	}
	if over.ExcludedInPartial != nil {
		out.ExcludedInPartial = over.ExcludedInPartial
	}
	if over.SkipSegments != nil {
		out.SkipSegments = over.SkipSegments
	}
	if over.NoiseTokens != nil {
		out.NoiseTokens = over.NoiseTokens
	}
	if over.NoisePrefixes != nil {
		out.NoisePrefixes = over.NoisePrefixes
	}
	if over.MalformedRootLabel != "" {
		out.MalformedRootLabel = over.MalformedRootLabel
	}
	return out
}

// Lookup generalizes a source label. An empty result means "drop the node, keep its children".
func (m *LabelMap) Lookup(raw string) (string, error) {
	key := norm.NFC.String(raw)
	dst, ok := m.generalize[key]
	if !ok {
		return "", &UnmappedLabelError{Label: raw}
	}
	return dst, nil
}

// Sources returns every source label in the map, sorted.
func (m *LabelMap) Sources() []string {
	out := make([]string, 0, len(m.generalize))
	for k := range m.generalize {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m *LabelMap) IsExcludedAlways(label string) bool {
	_, ok := m.excludedAlways[label]
	return ok
}

func (m *LabelMap) IsExcludedInPartial(label string) bool {
	_, ok := m.excludedInPartial[label]
	return ok
}

func (m *LabelMap) IsSkipSegment(label string) bool {
	_, ok := m.skipSegments[label]
	return ok
}

// IsNoiseToken reports whether tok starts a metadata line.
func (m *LabelMap) IsNoiseToken(tok string) bool {
	_, ok := m.noiseTokens[tok]
	return ok
}

// HasNoisePrefix reports whether tok starts like wrapped metadata (e.g. a URL).
func (m *LabelMap) HasNoisePrefix(tok string) bool {
	for _, p := range m.noisePrefixes {
		if p != "" && strings.HasPrefix(tok, p) {
			return true
		}
	}
	return false
}

// MalformedRootLabel is the raw root label that marks sentences the annotators flagged as malformed.
func (m *LabelMap) MalformedRootLabel() string { return m.malformedRoot }

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, s := range items {
		s = norm.NFC.String(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		out[s] = struct{}{}
	}
	return out
}

// isBracketLabel accepts the empty label and any label without whitespace or parentheses.
func isBracketLabel(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) || r == '(' || r == ')' {
			return false
		}
	}
	return true
}
