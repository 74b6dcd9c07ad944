package security

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

//go:embed blocklists.yaml
var defaultBlocklistYAML []byte

// blocklistFile is the on-disk shape of the blocklist configuration.
// Lists are data, not logic: they can be swapped without redeploying
// the decision pipeline.
type blocklistFile struct {
	DisposableDomains []string            `yaml:"disposable_domains"`
	SpamKeywords      []string            `yaml:"spam_keywords"`
	GenericNames      []string            `yaml:"generic_names"`
	BlockedCountries  []string            `yaml:"blocked_countries"`
	SuspectIPPrefixes map[string][]string `yaml:"suspect_ip_prefixes"`
	ThreatScoreLimit  int                 `yaml:"threat_score_limit"`
}

// Ruleset is a compiled, immutable view of the blocklists used by the
// checks. Loaded once (or on reload); never mutated in place.
type Ruleset struct {
	disposableDomains map[string]bool
	spamKeywords      []string
	genericNames      map[string]bool
	blockedCountries  map[string]bool
	suspectPrefixes   map[string]string // first octet -> region label
	threatScoreLimit  int
}

func compile(f *blocklistFile) *Ruleset {
	rs := &Ruleset{
		disposableDomains: make(map[string]bool, len(f.DisposableDomains)),
		spamKeywords:      make([]string, 0, len(f.SpamKeywords)),
		genericNames:      make(map[string]bool, len(f.GenericNames)),
		blockedCountries:  make(map[string]bool, len(f.BlockedCountries)),
		suspectPrefixes:   make(map[string]string),
		threatScoreLimit:  f.ThreatScoreLimit,
	}
	if rs.threatScoreLimit <= 0 {
		rs.threatScoreLimit = 50
	}
	for _, d := range f.DisposableDomains {
		rs.disposableDomains[strings.ToLower(strings.TrimSpace(d))] = true
	}
	for _, k := range f.SpamKeywords {
		if kw := strings.ToLower(strings.TrimSpace(k)); kw != "" {
			rs.spamKeywords = append(rs.spamKeywords, kw)
		}
	}
	for _, n := range f.GenericNames {
		rs.genericNames[strings.ToLower(strings.TrimSpace(n))] = true
	}
	for _, c := range f.BlockedCountries {
		rs.blockedCountries[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	for region, octets := range f.SuspectIPPrefixes {
		for _, o := range octets {
			rs.suspectPrefixes[strings.TrimSpace(o)] = region
		}
	}
	return rs
}

func parseBlocklists(data []byte) (*Ruleset, error) {
	var f blocklistFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("security: parse blocklists: %w", err)
	}
	return compile(&f), nil
}

// DefaultRuleset compiles the blocklists shipped with the binary.
func DefaultRuleset() *Ruleset {
	rs, err := parseBlocklists(defaultBlocklistYAML)
	if err != nil {
		// The embedded file is part of the build; failing to parse it is
		// a programming error.
		panic(err)
	}
	return rs
}

// LoadRuleset reads and compiles a blocklist file from disk.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("security: read blocklists: %w", err)
	}
	return parseBlocklists(data)
}

// BlocklistStore holds the active ruleset and allows atomic swaps on reload.
type BlocklistStore struct {
	current atomic.Pointer[Ruleset]
}

// NewBlocklistStore creates a store seeded with the given ruleset.
func NewBlocklistStore(rs *Ruleset) *BlocklistStore {
	s := &BlocklistStore{}
	if rs == nil {
		rs = DefaultRuleset()
	}
	s.current.Store(rs)
	return s
}

// Ruleset returns the active ruleset.
func (s *BlocklistStore) Ruleset() *Ruleset {
	return s.current.Load()
}

// Replace swaps in a new ruleset. In-flight requests keep the one they
// already loaded.
func (s *BlocklistStore) Replace(rs *Ruleset) {
	if rs != nil {
		s.current.Store(rs)
	}
}
