package narrow

import (
	"crypto/sha256"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jward/narrow/internal/decl"
)

// Config enumerates the visibility policy Prune applies. The tool does not
// decide what counts as public; every rule here is supplied by the caller.
type Config struct {
	// HiddenPrefix marks members excluded by naming convention. An empty
	// prefix disables the convention.
	HiddenPrefix string `yaml:"hidden_prefix"`

	// HideTag is the documentation tag that narrows a constructor.
	HideTag string `yaml:"hide_tag"`
	// HiddenVisibility is given to a constructor carrying HideTag.
	HiddenVisibility decl.Visibility `yaml:"hidden_visibility"`
	// AltVisibility is used instead when the tag payload equals AltMarker.
	AltVisibility decl.Visibility `yaml:"alt_visibility"`
	AltMarker     string          `yaml:"alt_marker"`

	// FailOnUnresolved turns unresolved references into a Prune error.
	FailOnUnresolved bool `yaml:"fail_on_unresolved"`

	// PolicyScript is a Risor script consulted per member by the Engine.
	PolicyScript string `yaml:"policy_script,omitempty"`

	// PromoteAncestors replaces an edge to a hidden type with edges to that
	// type's public ancestors. When false, ancestors declared in the tree
	// are flattened into the subtype and external ones are dropped.
	PromoteAncestors bool `yaml:"promote_ancestors"`

	// Policy hides additional members. Set by the Engine from PolicyScript.
	Policy decl.MemberPolicy `yaml:"-"`
}

// DefaultConfig returns the conventional policy: underscore-prefixed members
// are hidden, @hideconstructor makes a constructor private (protected with
// the "protected" payload), unresolved references are only reported.
func DefaultConfig() Config {
	return Config{
		HiddenPrefix:     "_",
		HideTag:          "hideconstructor",
		HiddenVisibility: decl.VisibilityPrivate,
		AltVisibility:    decl.VisibilityProtected,
		AltMarker:        "protected",
		PromoteAncestors: true,
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("narrow: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("narrow: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configs Prune cannot apply.
func (c Config) Validate() error {
	if c.HideTag == "" {
		return fmt.Errorf("narrow: config: hide_tag must not be empty")
	}
	for _, v := range []decl.Visibility{c.HiddenVisibility, c.AltVisibility} {
		if v == decl.VisibilityNone || !v.Valid() {
			return fmt.Errorf("narrow: config: invalid constructor visibility %q (valid: public, protected, private)", v)
		}
	}
	return nil
}

// Hash identifies the policy for run caching. Policy itself is not
// hashable; the Engine folds the policy script contents in separately.
func (c Config) Hash() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
