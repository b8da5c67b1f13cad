// Package registry loads the read-only network registry: participant
// endpoints and per-domain policy. It is loaded once per process and never
// mutated by the pipeline.
package registry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tag is a policy-declared search tag a domain supports.
type Tag struct {
	Code        string `yaml:"code" json:"code"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// DomainPolicy describes one network domain: its wire identifiers, the
// counterparty endpoint, and composition constraints.
type DomainPolicy struct {
	Key           string   `yaml:"key" json:"key"`
	Domain        string   `yaml:"domain" json:"domain"`
	Version       string   `yaml:"version" json:"version"`
	Endpoint      string   `yaml:"endpoint" json:"endpoint"`
	BppID         string   `yaml:"bpp_id,omitempty" json:"bpp_id,omitempty"`
	BppURI        string   `yaml:"bpp_uri,omitempty" json:"bpp_uri,omitempty"`
	Keywords      []string `yaml:"keywords" json:"keywords"`
	SupportedTags []Tag    `yaml:"supported_tags,omitempty" json:"supported_tags,omitempty"`
}

// Registry is the full registry document.
type Registry struct {
	Domains []DomainPolicy `yaml:"domains"`
}

// Load reads the registry from a YAML file.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if len(reg.Domains) == 0 {
		return nil, fmt.Errorf("registry has no domains")
	}
	for _, d := range reg.Domains {
		if d.Key == "" || d.Domain == "" || d.Endpoint == "" {
			return nil, fmt.Errorf("registry domain %q is missing key, domain or endpoint", d.Key)
		}
	}
	return &reg, nil
}

// Match resolves the domain an instruction refers to by keyword match.
// Exactly one domain must match; zero or several is a resolution failure,
// never a guess.
func (r *Registry) Match(instruction string) (*DomainPolicy, error) {
	text := strings.ToLower(instruction)

	var matched []*DomainPolicy
	for i := range r.Domains {
		d := &r.Domains[i]
		for _, kw := range d.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				matched = append(matched, d)
				break
			}
		}
	}

	switch len(matched) {
	case 1:
		return matched[0], nil
	case 0:
		return nil, fmt.Errorf("no registry domain matches the instruction")
	default:
		keys := make([]string, len(matched))
		for i, d := range matched {
			keys[i] = d.Key
		}
		return nil, fmt.Errorf("instruction is ambiguous across domains: %s", strings.Join(keys, ", "))
	}
}

// ByKey returns the policy for a known domain key, or nil.
func (r *Registry) ByKey(key string) *DomainPolicy {
	for i := range r.Domains {
		if r.Domains[i].Key == key {
			return &r.Domains[i]
		}
	}
	return nil
}
