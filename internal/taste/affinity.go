package taste

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AffinityTable maps a genre to semantically adjacent genres. Keys and values
// are lower-case. Tables are built once and treated as immutable; the scorer
// receives its table by injection so tests can substitute alternates.
type AffinityTable map[string][]string

// DefaultAffinityTable returns the built-in genre adjacency table.
func DefaultAffinityTable() AffinityTable {
	return AffinityTable{
		"rock":        {"alternative", "indie", "punk", "metal", "grunge"},
		"alternative": {"rock", "indie", "grunge", "shoegaze"},
		"indie":       {"alternative", "rock", "folk", "dream pop", "lo-fi"},
		"pop":         {"dance", "synth", "indie pop", "r&b", "electropop"},
		"hip hop":     {"rap", "trap", "r&b", "drill", "grime"},
		"rap":         {"hip hop", "trap", "drill", "grime"},
		"r&b":         {"soul", "funk", "hip hop", "neo soul"},
		"soul":        {"r&b", "funk", "gospel", "motown"},
		"electronic":  {"house", "techno", "edm", "ambient", "drum and bass"},
		"house":       {"electronic", "techno", "disco", "deep house"},
		"techno":      {"electronic", "house", "industrial", "minimal"},
		"jazz":        {"blues", "soul", "fusion", "bebop", "swing"},
		"blues":       {"jazz", "soul", "rock", "folk"},
		"folk":        {"indie", "acoustic", "americana", "country", "singer-songwriter"},
		"country":     {"folk", "americana", "bluegrass", "southern rock"},
		"metal":       {"rock", "hardcore", "punk", "doom", "thrash"},
		"punk":        {"rock", "hardcore", "ska", "garage"},
		"classical":   {"orchestral", "opera", "chamber", "baroque"},
		"latin":       {"reggaeton", "salsa", "cumbia", "bachata"},
		"reggae":      {"ska", "dub", "dancehall"},
		"ambient":     {"electronic", "downtempo", "drone", "new age"},
		"psych rock":  {"psychedelic", "rock", "garage", "krautrock"},
		"psychedelic": {"psych rock", "rock", "shoegaze", "krautrock"},
	}
}

// LoadAffinityFile reads a genre adjacency table from a YAML file of the form
// `genre: [adjacent, genres]`. Keys and values are lower-cased on load.
// A missing file is not an error; it yields a nil table so callers fall back
// to the default.
func LoadAffinityFile(path string) (AffinityTable, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from trusted config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading affinity file: %w", err)
	}

	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing affinity file: %w", err)
	}

	table := make(AffinityTable, len(raw))
	for genre, adjacent := range raw {
		key := strings.ToLower(strings.TrimSpace(genre))
		if key == "" {
			continue
		}
		values := make([]string, 0, len(adjacent))
		for _, a := range adjacent {
			a = strings.ToLower(strings.TrimSpace(a))
			if a != "" {
				values = append(values, a)
			}
		}
		table[key] = values
	}
	return table, nil
}

// Related returns the adjacent genres for a genre, or nil if none are known.
// Lookup is case-insensitive.
func (t AffinityTable) Related(genre string) []string {
	if t == nil {
		return nil
	}
	return t[strings.ToLower(strings.TrimSpace(genre))]
}
