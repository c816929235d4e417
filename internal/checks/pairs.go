package checks

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed data/tillaeg_pairs.yaml
var defaultPairsYAML []byte

// AllowancePair states that two allowance numbers must co-occur on an
// employment with the given contract type.
type AllowancePair struct {
	ContractType int       `yaml:"ovk"`
	Numbers      [2]int    `yaml:"pair"`
	Names        [2]string `yaml:"pair_names"`
}

// Other returns the partner of number within the pair.
func (p AllowancePair) Other(number int) (int, string, bool) {
	switch number {
	case p.Numbers[0]:
		return p.Numbers[1], p.Names[1], true
	case p.Numbers[1]:
		return p.Numbers[0], p.Names[0], true
	default:
		return 0, "", false
	}
}

// Contains reports whether number is one of the two codes.
func (p AllowancePair) Contains(number int) bool {
	return number == p.Numbers[0] || number == p.Numbers[1]
}

// PairTable is the immutable list of allowance pair definitions.
type PairTable []AllowancePair

// FindPartner returns the partner of number among the pairs of contractType.
// A contractType of 0 searches every pair. The lookup fails when number has
// no partner or more than one distinct partner in scope.
func (t PairTable) FindPartner(contractType, number int) (int, string, bool) {
	var (
		partner     int
		partnerName string
		found       bool
	)
	for _, p := range t {
		if contractType != 0 && p.ContractType != contractType {
			continue
		}
		other, name, ok := p.Other(number)
		if !ok {
			continue
		}
		if found && other != partner {
			return 0, "", false
		}
		partner, partnerName, found = other, name, true
	}
	return partner, partnerName, found
}

// sidePattern matches the side letter right before the last hyphen, e.g. the
// A in "Souschef tillæg A-A".
var sidePattern = regexp.MustCompile(`([AB])-[^-]*$`)

// AllowanceSide extracts the A/B side marker from an allowance name.
func AllowanceSide(name string) (string, bool) {
	m := sidePattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParsePairTable decodes and validates a YAML pair table.
func ParsePairTable(data []byte) (PairTable, error) {
	var table PairTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode pair table: %w", err)
	}
	for i, p := range table {
		if p.ContractType <= 0 {
			return nil, fmt.Errorf("pair %d: missing contract type", i)
		}
		if p.Numbers[0] <= 0 || p.Numbers[1] <= 0 || p.Numbers[0] == p.Numbers[1] {
			return nil, fmt.Errorf("pair %d: needs two distinct allowance numbers", i)
		}
		for _, name := range p.Names {
			if _, ok := AllowanceSide(name); !ok {
				return nil, fmt.Errorf("pair %d: name %q has no A/B side marker", i, name)
			}
		}
	}
	return table, nil
}

// DefaultPairTable returns the embedded pair table. The embedded file is
// validated by tests, so a failure here is a build defect.
func DefaultPairTable() PairTable {
	table, err := ParsePairTable(defaultPairsYAML)
	if err != nil {
		panic(err)
	}
	return table
}
