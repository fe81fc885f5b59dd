package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultAliases maps the header spellings seen in supplier spreadsheets to
// canonical field names. Keys are compared after normalisation.
func DefaultAliases() map[string]string {
	return map[string]string{
		"ic channel":       FieldOriginalChannel,
		"ic cot":           FieldOriginalTradeClass,
		"original channel": FieldOriginalChannel,
		"original cot":     FieldOriginalTradeClass,
		"new channel":      FieldNewChannel,
		"new cot":          FieldNewTradeClass,
		"new trade class":  FieldNewTradeClass,
		"notes":            FieldNotes,
		"comments":         FieldNotes,
	}
}

type aliasRules struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliases merges alias rules from an optional YAML file over the
// defaults. Each rule maps a header spelling to one of the canonical field
// names; anything else is rejected.
func LoadAliases(path string) (map[string]string, error) {
	aliases := DefaultAliases()
	if path == "" {
		return aliases, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alias rules: %w", err)
	}

	var rules aliasRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing alias rules: %w", err)
	}

	for raw, canonical := range rules.Aliases {
		if !isCanonicalField(canonical) {
			return nil, fmt.Errorf("alias %q targets unknown field %q", raw, canonical)
		}
		aliases[normalizeHeader(raw)] = canonical
	}
	return aliases, nil
}
