package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKnownPricingModel(t *testing.T) {
	for _, m := range []string{"free", "Freemium", " SUBSCRIPTION ", "usage_based", "one_time", "enterprise"} {
		assert.True(t, IsKnownPricingModel(m), m)
	}
	for _, m := range []string{"", "donationware", "pay_what_you_want"} {
		assert.False(t, IsKnownPricingModel(m), m)
	}
}

func TestIntegrationKey(t *testing.T) {
	assert.Equal(t, "ide/VS Code", Integration{Type: "ide", Name: "VS Code"}.Key())
	assert.Equal(t, "Zapier", Integration{Name: "Zapier"}.Key())
}

func TestDocumentValidate(t *testing.T) {
	valid := &Document{
		Pricing:      &Pricing{Tiers: []PricingTier{{Name: "Pro", Price: 20}}},
		Features:     []Feature{{Name: "Autocomplete"}},
		Integrations: []Integration{{Name: "VS Code"}},
	}
	assert.NoError(t, valid.Validate())

	// Unkeyed records cannot participate in set comparison.
	unnamedTier := &Document{Pricing: &Pricing{Tiers: []PricingTier{{Price: 20}}}}
	err := unnamedTier.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier")

	unnamedFeature := &Document{Features: []Feature{{Description: "something"}}}
	assert.Error(t, unnamedFeature.Validate())

	unnamedIntegration := &Document{Integrations: []Integration{{Type: "ide"}}}
	assert.Error(t, unnamedIntegration.Validate())

	// Scoring concerns are not structural errors.
	weird := &Document{Pricing: &Pricing{Model: "donationware", Tiers: []PricingTier{{Name: "Pro", Price: -5}}}}
	assert.NoError(t, weird.Validate())
}
