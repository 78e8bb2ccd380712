package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/hierarchy"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadFrom(map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8090" || cfg.WorkerCount != 4 || cfg.MaxUploadBytes != 52428800 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.JobTTL != time.Hour || cfg.LLMTimeout != 60*time.Second {
		t.Errorf("durations = %v %v", cfg.JobTTL, cfg.LLMTimeout)
	}
	if !cfg.PDFFallbackPdftotext || cfg.LLMProvider != ProviderNone {
		t.Errorf("flags = %v %q", cfg.PDFFallbackPdftotext, cfg.LLMProvider)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if cfg.Method() != doctree.MethodStructural || len(cfg.Fallbacks()) != 0 {
		t.Errorf("chain = %s %v", cfg.Method(), cfg.Fallbacks())
	}
	cc := cfg.ChunkerConfig()
	if cc.MinChunkSize != 1000 || cc.MaxChunkSize != 1500 || cc.HardCeiling != 2000 || cc.MaxFooterRatio != 0.5 {
		t.Errorf("chunker config = %+v", cc)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := loadFrom(map[string]string{
		"CHUNKING_METHOD":    "llm_assisted",
		"CHUNKING_FALLBACKS": "structural,langextract_like",
		"LLM_PROVIDER":       "openai",
		"LLM_TIMEOUT":        "5s",
		"MIN_CHUNK_SIZE":     "400",
		"MAX_CHUNK_SIZE":     "800",
		"HARD_CEILING":       "900",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	want := []doctree.Method{doctree.MethodStructural, doctree.MethodLangExtractLike}
	if cfg.Method() != doctree.MethodLLMAssisted || !reflect.DeepEqual(cfg.Fallbacks(), want) {
		t.Errorf("chain = %s %v", cfg.Method(), cfg.Fallbacks())
	}
	if cfg.LLMTimeout != 5*time.Second || cfg.ChunkerConfig().HardCeiling != 900 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	if _, err := loadFrom(map[string]string{"WORKER_COUNT": "many"}); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	base, err := loadFrom(map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown method", func(c *Config) { c.ChunkingMethod = "semantic" }, "CHUNKING_METHOD"},
		{"too many fallbacks", func(c *Config) {
			c.ChunkingFallbacks = []string{"structural", "llm_assisted", "langextract_like"}
		}, "at most 2"},
		{"bad fallback", func(c *Config) { c.ChunkingFallbacks = []string{"magic"} }, "CHUNKING_FALLBACKS"},
		{"sizes", func(c *Config) { c.MaxChunkSize = 500 }, "chunk sizes"},
		{"footer ratio", func(c *Config) { c.FooterRatio = 1.5 }, "FOOTER_RATIO"},
		{"claude without key", func(c *Config) { c.LLMProvider = ProviderClaude }, "ANTHROPIC_API_KEY"},
		{"unknown provider", func(c *Config) { c.LLMProvider = "gemini" }, "LLM_PROVIDER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestValidateServer(t *testing.T) {
	cfg, err := loadFrom(map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.ValidateServer(); err == nil || !strings.Contains(err.Error(), "PATHSTORE_API_KEY") {
		t.Errorf("ValidateServer() = %v", err)
	}
	cfg.PathstoreAPIKey = "ps"
	if err := cfg.ValidateServer(); err == nil || !strings.Contains(err.Error(), "DOCCHUNK_API_KEY") {
		t.Errorf("ValidateServer() = %v", err)
	}
	cfg.APIKey = "k"
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("ValidateServer() = %v", err)
	}
}

func TestLoadPolicyEmptyPath(t *testing.T) {
	p, err := LoadPolicy("")
	if err != nil {
		t.Fatal(err)
	}
	opts, err := p.EngineOptions()
	if err != nil || len(opts) != 3 {
		t.Fatalf("EngineOptions() = %d, %v", len(opts), err)
	}
	table, _ := p.Table()
	if !reflect.DeepEqual(table, hierarchy.RomanBeforeUpper()) {
		t.Errorf("default table = %v", table)
	}
}

func TestLoadPolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	data := `marker_families: [numeric, alpha_lower, bullet]
custom_markers: ['^Art\.\s*(?P<value>\d+)(?P<rest>.*)$']
roman_max: 30
level_table: upper_before_roman
footer_patterns: ['(?i)^acme corp proprietary$']
allow_bare_markers: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.RomanMax != 30 || p.AllowBareMarkers == nil || *p.AllowBareMarkers {
		t.Errorf("policy = %+v", p)
	}

	c, err := p.Classifier()
	if err != nil {
		t.Fatal(err)
	}
	if m, ok := c.Classify(doctree.RawLine{Text: "Art. 7 Termination"}); !ok || m.Type != doctree.MarkerCustom || m.Value != "7" {
		t.Errorf("custom marker = %+v %v", m, ok)
	}
	if _, ok := c.Classify(doctree.RawLine{Text: "IV. Remedies"}); ok {
		t.Error("roman_upper should be disabled")
	}
	if _, ok := c.Classify(doctree.RawLine{Text: "1."}); ok {
		t.Error("bare markers should be rejected")
	}

	table, err := p.Table()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(table, hierarchy.UpperBeforeRoman()) {
		t.Errorf("table = %v", table)
	}

	f, err := p.Footers()
	if err != nil {
		t.Fatal(err)
	}
	if !f.Matches("ACME Corp Proprietary") || !f.Matches("Page 3 of 9") {
		t.Error("footer set should hold default and custom patterns")
	}
}

func TestPolicyExplicitLevels(t *testing.T) {
	p, err := ParsePolicy([]byte("levels: {numeric: 1, alpha_upper: 2, alpha_lower: 3}\n"))
	if err != nil {
		t.Fatal(err)
	}
	table, err := p.Table()
	if err != nil {
		t.Fatal(err)
	}
	want := hierarchy.LevelTable{doctree.MarkerNumeric: 1, doctree.MarkerAlphaUpper: 2, doctree.MarkerAlphaLower: 3}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("table = %v", table)
	}
}

func TestPolicyErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		use  func(*Policy) error
	}{
		{"unknown key", "colour: blue\n", nil},
		{"bad family", "marker_families: [greek]\n", func(p *Policy) error { _, err := p.Classifier(); return err }},
		{"no value group", "custom_markers: ['^§(\\d+)']\n", func(p *Policy) error { _, err := p.Classifier(); return err }},
		{"bullet level", "levels: {bullet: 1}\n", func(p *Policy) error { _, err := p.Table(); return err }},
		{"bad preset", "level_table: sideways\n", func(p *Policy) error { _, err := p.Table(); return err }},
		{"bad footer", "footer_patterns: ['(']\n", func(p *Policy) error { _, err := p.Footers(); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePolicy([]byte(tt.yaml))
			if tt.use == nil {
				if err == nil {
					t.Error("expected decode error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tt.use(p) == nil {
				t.Error("expected error")
			}
		})
	}
}
