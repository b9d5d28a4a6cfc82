// Package tiers answers subscription feature questions for a club's tier.
// The catalog ships embedded in the binary and is schema-validated at
// construction, so a malformed catalog is a startup failure rather than a
// runtime denial.
package tiers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed tiers.json
var catalogJSON []byte

//go:embed catalog_schema.json
var catalogSchemaJSON string

// Feature names the boolean flags a tier can carry. The set is closed; asking
// for a name outside it is a programming error, not a "false".
type Feature string

const (
	FeatureSEPA       Feature = "sepaEnabled"
	FeatureReports    Feature = "reportsEnabled"
	FeatureBankImport Feature = "bankImportEnabled"
)

var (
	// ErrUnknownTier indicates a club references a tier id missing from the catalog.
	ErrUnknownTier = errors.New("tiers: unknown tier")
	// ErrUnknownFeature indicates a feature name outside the closed flag set.
	ErrUnknownFeature = errors.New("tiers: unknown feature")
)

type tierFeatures struct {
	SEPAEnabled       bool `json:"sepaEnabled"`
	ReportsEnabled    bool `json:"reportsEnabled"`
	BankImportEnabled bool `json:"bankImportEnabled"`
}

// Tier is one subscription plan with its feature flags.
type Tier struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Features tierFeatures `json:"features"`
}

type catalogDoc struct {
	Tiers []Tier `json:"tiers"`
}

// Gate resolves feature enablement for a tier id.
type Gate struct {
	tiers map[string]Tier
}

// NewGate loads and validates the embedded catalog.
func NewGate() (*Gate, error) {
	return newGateFrom(catalogJSON)
}

func newGateFrom(raw []byte) (*Gate, error) {
	schema, err := jsonschema.CompileString("catalog_schema.json", catalogSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile tier catalog schema: %w", err)
	}

	var doc interface{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode tier catalog: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate tier catalog: %w", err)
	}

	var parsed catalogDoc
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal tier catalog: %w", err)
	}

	tiers := make(map[string]Tier, len(parsed.Tiers))
	for _, tier := range parsed.Tiers {
		if _, exists := tiers[tier.ID]; exists {
			return nil, fmt.Errorf("tier catalog: duplicate tier id %q", tier.ID)
		}
		tiers[tier.ID] = tier
	}

	return &Gate{tiers: tiers}, nil
}

// Enabled reports whether the named feature is switched on for the tier.
func (g *Gate) Enabled(tierID string, feature Feature) (bool, error) {
	tier, ok := g.tiers[tierID]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownTier, tierID)
	}

	switch feature {
	case FeatureSEPA:
		return tier.Features.SEPAEnabled, nil
	case FeatureReports:
		return tier.Features.ReportsEnabled, nil
	case FeatureBankImport:
		return tier.Features.BankImportEnabled, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}
}

// Tier returns the catalog entry for the id.
func (g *Gate) Tier(tierID string) (Tier, bool) {
	tier, ok := g.tiers[tierID]
	return tier, ok
}

// DefaultTierID is assigned to newly created clubs.
const DefaultTierID = "free"
