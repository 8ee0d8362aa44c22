// Package catalog holds the static vendor preset table: one entry per
// supported AI vendor with its ordered model identifier list. The table is
// loaded once at startup and read-only afterwards; an optional YAML file can
// replace the built-in presets for deployments that need different model lists.
package catalog

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Vendor keys. The adapter set is statically keyed by these values.
const (
	VendorOpenAI   = "OPENAI"
	VendorDeepSeek = "DEEPSEEK"
	VendorGrok     = "GROK"
	VendorClaude   = "CLAUDE"
)

// DefaultModel is the last-resort model identifier when a preset has an empty
// model list. Should not occur for known vendors.
const DefaultModel = "gpt-4o-mini"

// PresetsFileEnv names the env var pointing at an optional YAML override file.
const PresetsFileEnv = "HUBBRIDGE_VENDOR_PRESETS_FILE"

// Preset describes one vendor: display name plus the ordered model list a
// ProviderConfig's SelectedModel indexes into.
type Preset struct {
	VendorKey   string   `yaml:"vendor_key" json:"vendor_key"`
	DisplayName string   `yaml:"display_name" json:"display_name"`
	Models      []string `yaml:"models" json:"models"`
}

type fileConfig struct {
	Presets []Preset `yaml:"presets"`
}

var builtinPresets = []Preset{
	{
		VendorKey:   VendorOpenAI,
		DisplayName: "chatgpt",
		Models:      []string{"gpt-4o", "gpt-4o-mini"},
	},
	{
		VendorKey:   VendorDeepSeek,
		DisplayName: "deepseek",
		Models:      []string{"deepseek-chat", "deepseek-reasoner"},
	},
	{
		VendorKey:   VendorGrok,
		DisplayName: "grok",
		Models:      []string{"grok-4", "grok-3", "grok-3-mini"},
	},
	{
		VendorKey:   VendorClaude,
		DisplayName: "claude",
		Models: []string{
			"claude-opus-4-1-20250805",
			"claude-opus-4-20250514",
			"claude-sonnet-4-20250514",
			"claude-3-7-sonnet-20250219",
			"claude-3-5-haiku-20241022",
			"claude-3-haiku-20240307",
		},
	},
}

var (
	stateMu     sync.RWMutex
	initialized bool
	presetByKey map[string]Preset
	presetOrder []string
)

// Init loads presets, replacing the built-ins with the YAML file named by
// PresetsFileEnv when set. Safe to call more than once.
func Init() error {
	presets := builtinPresets
	var loadErr error

	if path := os.Getenv(PresetsFileEnv); path != "" {
		loaded, err := loadPresetsFile(path)
		if err != nil {
			loadErr = err
		} else if len(loaded) > 0 {
			presets = loaded
		}
	}

	stateMu.Lock()
	defer stateMu.Unlock()

	presetByKey = make(map[string]Preset, len(presets))
	presetOrder = presetOrder[:0]
	for _, p := range presets {
		presetByKey[p.VendorKey] = p
		presetOrder = append(presetOrder, p.VendorKey)
	}
	initialized = true
	return loadErr
}

func loadPresetsFile(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse presets file: %w", err)
	}
	for _, p := range cfg.Presets {
		if p.VendorKey == "" {
			return nil, fmt.Errorf("presets file: entry missing vendor_key")
		}
	}
	return cfg.Presets, nil
}

func ensureInitialized() {
	stateMu.RLock()
	ok := initialized
	stateMu.RUnlock()
	if ok {
		return
	}
	_ = Init()
}

// ResetForTest clears in-memory state so tests can force a reload.
func ResetForTest() {
	stateMu.Lock()
	defer stateMu.Unlock()
	initialized = false
	presetByKey = nil
	presetOrder = nil
}

// Presets returns all presets in declaration order.
func Presets() []Preset {
	ensureInitialized()

	stateMu.RLock()
	defer stateMu.RUnlock()

	result := make([]Preset, 0, len(presetOrder))
	for _, key := range presetOrder {
		p, ok := presetByKey[key]
		if !ok {
			continue
		}
		p.Models = append([]string(nil), p.Models...)
		result = append(result, p)
	}
	return result
}

// Get returns the preset for a vendor key.
func Get(vendorKey string) (Preset, bool) {
	ensureInitialized()

	stateMu.RLock()
	defer stateMu.RUnlock()

	p, ok := presetByKey[vendorKey]
	if !ok {
		return Preset{}, false
	}
	p.Models = append([]string(nil), p.Models...)
	return p, true
}

// IsKnownVendor reports whether a vendor key has a preset.
func IsKnownVendor(vendorKey string) bool {
	_, ok := Get(vendorKey)
	return ok
}

// ResolveModel picks the model identifier at index from the vendor's preset,
// falling back to index 0 when index is out of range and to DefaultModel when
// the vendor is unknown or its model list is empty.
func ResolveModel(vendorKey string, index int) string {
	preset, ok := Get(vendorKey)
	if !ok || len(preset.Models) == 0 {
		return DefaultModel
	}
	if index < 0 || index >= len(preset.Models) {
		return preset.Models[0]
	}
	return preset.Models[index]
}
