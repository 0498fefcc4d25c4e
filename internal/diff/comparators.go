package diff

import (
	"reflect"
	"sort"
	"strings"

	"github.com/sells-group/tooltrack-cli/internal/model"
)

// Each comparator below is pure and total: nil sections on either side mean
// the section is absent, every present leaf on the other side surfaces as
// an addition or removal (nil on the absent side), and inputs are never
// mutated. Outputs are deterministic — set differences are emitted in
// sorted key order.

// compareVersion emits a change when the current version string differs and
// the new snapshot actually carries one. A version disappearing from a
// snapshot is treated as collection noise, not a release event.
func compareVersion(oldV, newV *model.VersionInfo, t Tuning) []model.DataChange {
	oldCur := ""
	if oldV != nil {
		oldCur = strings.TrimSpace(oldV.Current)
	}
	newCur := ""
	if newV != nil {
		newCur = strings.TrimSpace(newV.Current)
	}

	if newCur == "" || newCur == oldCur {
		return nil
	}

	return []model.DataChange{{
		Type:        model.VersionChange,
		FieldName:   "version_current",
		OldValue:    scalarOrNil(oldCur),
		NewValue:    newCur,
		Confidence:  t.VersionConfidence,
		ImpactScore: t.VersionImpact,
	}}
}

// comparePricing emits a change for a pricing-model shift, one change per
// added or removed tier name, and one change per surviving tier whose price
// moved.
func comparePricing(oldP, newP *model.Pricing, t Tuning) []model.DataChange {
	var changes []model.DataChange

	oldModel := pricingModel(oldP)
	newModel := pricingModel(newP)
	if oldModel != newModel {
		changes = append(changes, model.DataChange{
			Type:        model.PriceChange,
			FieldName:   "pricing_model",
			OldValue:    scalarOrNil(oldModel),
			NewValue:    scalarOrNil(newModel),
			Confidence:  t.PricingModelConfidence,
			ImpactScore: t.PricingModelImpact,
		})
	}

	oldTiers := tiersByKey(oldP)
	newTiers := tiersByKey(newP)

	for _, key := range sortedKeys(newTiers) {
		if _, ok := oldTiers[key]; !ok {
			changes = append(changes, model.DataChange{
				Type:        model.PriceChange,
				FieldName:   "pricing_tier_added",
				OldValue:    nil,
				NewValue:    newTiers[key].Name,
				Confidence:  t.PricingTierConfidence,
				ImpactScore: t.PricingTierImpact,
			})
		}
	}
	for _, key := range sortedKeys(oldTiers) {
		if _, ok := newTiers[key]; !ok {
			changes = append(changes, model.DataChange{
				Type:        model.PriceChange,
				FieldName:   "pricing_tier_removed",
				OldValue:    oldTiers[key].Name,
				NewValue:    nil,
				Confidence:  t.PricingTierConfidence,
				ImpactScore: t.PricingTierImpact,
			})
		}
	}
	for _, key := range sortedKeys(newTiers) {
		oldTier, ok := oldTiers[key]
		if !ok {
			continue
		}
		newTier := newTiers[key]
		if oldTier.Price != newTier.Price {
			changes = append(changes, model.DataChange{
				Type:        model.PriceChange,
				FieldName:   "pricing_tier_price:" + newTier.Name,
				OldValue:    oldTier.Price,
				NewValue:    newTier.Price,
				Confidence:  t.PricingTierConfidence,
				ImpactScore: t.PricingTierImpact,
			})
		}
	}

	return changes
}

// compareFeatures performs a set difference over feature names, plus a
// modification check on the description of features present on both sides.
func compareFeatures(oldFeats, newFeats []model.Feature, t Tuning) []model.DataChange {
	oldByKey := featuresByKey(oldFeats)
	newByKey := featuresByKey(newFeats)

	var changes []model.DataChange

	for _, key := range sortedKeys(newByKey) {
		if _, ok := oldByKey[key]; !ok {
			changes = append(changes, model.DataChange{
				Type:        model.FeatureChange,
				FieldName:   "feature_added",
				OldValue:    nil,
				NewValue:    newByKey[key].Name,
				Confidence:  t.FeatureConfidence,
				ImpactScore: t.FeatureImpact,
			})
		}
	}
	for _, key := range sortedKeys(oldByKey) {
		if _, ok := newByKey[key]; !ok {
			changes = append(changes, model.DataChange{
				Type:        model.FeatureChange,
				FieldName:   "feature_removed",
				OldValue:    oldByKey[key].Name,
				NewValue:    nil,
				Confidence:  t.FeatureConfidence,
				ImpactScore: t.FeatureImpact,
			})
		}
	}
	for _, key := range sortedKeys(newByKey) {
		oldFeat, ok := oldByKey[key]
		if !ok {
			continue
		}
		newFeat := newByKey[key]
		if strings.TrimSpace(oldFeat.Description) != strings.TrimSpace(newFeat.Description) {
			changes = append(changes, model.DataChange{
				Type:        model.FeatureChange,
				FieldName:   "feature_modified",
				OldValue:    oldFeat,
				NewValue:    newFeat,
				Confidence:  t.FeatureModifiedConfidence,
				ImpactScore: t.FeatureModifiedImpact,
			})
		}
	}

	return changes
}

// compareIntegrations performs a set difference keyed by (type, name).
func compareIntegrations(oldInts, newInts []model.Integration, t Tuning) []model.DataChange {
	oldByKey := integrationsByKey(oldInts)
	newByKey := integrationsByKey(newInts)

	var changes []model.DataChange

	for _, key := range sortedKeys(newByKey) {
		if _, ok := oldByKey[key]; !ok {
			changes = append(changes, model.DataChange{
				Type:        model.IntegrationChange,
				FieldName:   "integration_added",
				OldValue:    nil,
				NewValue:    newByKey[key].Key(),
				Confidence:  t.IntegrationConfidence,
				ImpactScore: t.IntegrationImpact,
			})
		}
	}
	for _, key := range sortedKeys(oldByKey) {
		if _, ok := newByKey[key]; !ok {
			changes = append(changes, model.DataChange{
				Type:        model.IntegrationChange,
				FieldName:   "integration_removed",
				OldValue:    oldByKey[key].Key(),
				NewValue:    nil,
				Confidence:  t.IntegrationConfidence,
				ImpactScore: t.IntegrationImpact,
			})
		}
	}

	return changes
}

// compareCompany checks scalar company attributes field by field.
func compareCompany(oldC, newC *model.CompanyInfo, t Tuning) []model.DataChange {
	if oldC == nil {
		oldC = &model.CompanyInfo{}
	}
	if newC == nil {
		newC = &model.CompanyInfo{}
	}

	var changes []model.DataChange
	emit := func(field string, oldVal, newVal any) {
		changes = append(changes, model.DataChange{
			Type:        model.CompanyChange,
			FieldName:   field,
			OldValue:    oldVal,
			NewValue:    newVal,
			Confidence:  t.CompanyConfidence,
			ImpactScore: t.CompanyImpact,
		})
	}

	if oldC.Name != newC.Name {
		emit("company_name", scalarOrNil(oldC.Name), scalarOrNil(newC.Name))
	}
	if !intPtrEqual(oldC.FoundedYear, newC.FoundedYear) {
		emit("company_founded_year", intPtrOrNil(oldC.FoundedYear), intPtrOrNil(newC.FoundedYear))
	}
	if !intPtrEqual(oldC.EmployeeCount, newC.EmployeeCount) {
		emit("company_employee_count", intPtrOrNil(oldC.EmployeeCount), intPtrOrNil(newC.EmployeeCount))
	}
	if oldC.Headquarters != newC.Headquarters {
		emit("company_headquarters", scalarOrNil(oldC.Headquarters), scalarOrNil(newC.Headquarters))
	}

	return changes
}

// compareMetadata is the catch-all equality check over the remaining
// top-level scalars plus the free-form metadata map. Lowest priority by
// design — a safety net rather than a primary signal.
func compareMetadata(oldDoc, newDoc *model.Document, t Tuning) []model.DataChange {
	if oldDoc == nil {
		oldDoc = &model.Document{}
	}

	var changes []model.DataChange
	emit := func(field string, oldVal, newVal any) {
		changes = append(changes, model.DataChange{
			Type:        model.MetadataChange,
			FieldName:   field,
			OldValue:    oldVal,
			NewValue:    newVal,
			Confidence:  t.MetadataConfidence,
			ImpactScore: t.MetadataImpact,
		})
	}

	if oldDoc.Description != newDoc.Description {
		emit("description", scalarOrNil(oldDoc.Description), scalarOrNil(newDoc.Description))
	}
	if oldDoc.WebsiteURL != newDoc.WebsiteURL {
		emit("website_url", scalarOrNil(oldDoc.WebsiteURL), scalarOrNil(newDoc.WebsiteURL))
	}
	if oldDoc.DocsURL != newDoc.DocsURL {
		emit("docs_url", scalarOrNil(oldDoc.DocsURL), scalarOrNil(newDoc.DocsURL))
	}
	if oldDoc.LicenseType != newDoc.LicenseType {
		emit("license_type", scalarOrNil(oldDoc.LicenseType), scalarOrNil(newDoc.LicenseType))
	}
	if !boolPtrEqual(oldDoc.IsOpenSource, newDoc.IsOpenSource) {
		emit("is_open_source", boolPtrOrNil(oldDoc.IsOpenSource), boolPtrOrNil(newDoc.IsOpenSource))
	}

	for _, key := range unionKeys(oldDoc.Metadata, newDoc.Metadata) {
		oldVal, oldOK := oldDoc.Metadata[key]
		newVal, newOK := newDoc.Metadata[key]
		// Decoded JSON carries arrays and objects here, not just scalars;
		// == would panic on those.
		if oldOK && newOK && reflect.DeepEqual(oldVal, newVal) {
			continue
		}
		if !oldOK && !newOK {
			continue
		}
		var o, n any
		if oldOK {
			o = oldVal
		}
		if newOK {
			n = newVal
		}
		emit("metadata."+key, o, n)
	}

	return changes
}

func pricingModel(p *model.Pricing) string {
	if p == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(p.Model))
}

func tiersByKey(p *model.Pricing) map[string]model.PricingTier {
	out := make(map[string]model.PricingTier)
	if p == nil {
		return out
	}
	for _, tier := range p.Tiers {
		out[canonicalKey(tier.Name)] = tier
	}
	return out
}

func featuresByKey(feats []model.Feature) map[string]model.Feature {
	out := make(map[string]model.Feature, len(feats))
	for _, f := range feats {
		out[canonicalKey(f.Name)] = f
	}
	return out
}

func integrationsByKey(ints []model.Integration) map[string]model.Integration {
	out := make(map[string]model.Integration, len(ints))
	for _, i := range ints {
		out[canonicalKey(i.Key())] = i
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for k := range a {
		seen[k] = true
	}
	for k := range b {
		seen[k] = true
	}
	return sortedKeys(seen)
}

// scalarOrNil maps the empty string to nil so absent-vs-present transitions
// carry nil on the absent side.
func scalarOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intPtrOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func boolPtrOrNil(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
