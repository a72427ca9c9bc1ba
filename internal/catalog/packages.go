// Package catalog holds the static reference data for the product: the
// credit packages customers can purchase and the tools they can spend
// credits on. Neither catalog is persisted; keys are referenced from
// purchase and usage log rows.
package catalog

// Tier identifies the audience a credit package is sold to.
const (
	TierIndividual = "individual"
	TierBusiness   = "business"
)

// CreditPackage describes a purchasable credit bundle.
type CreditPackage struct {
	Key        string
	Name       string
	Credits    int64
	PriceLabel string
	Tier       string
}

var individualPackages = []CreditPackage{
	{Key: "ind_starter", Name: "Starter", Credits: 100, PriceLabel: "$9", Tier: TierIndividual},
	{Key: "ind_plus", Name: "Plus", Credits: 300, PriceLabel: "$19", Tier: TierIndividual},
	{Key: "ind_pro", Name: "Pro", Credits: 800, PriceLabel: "$39", Tier: TierIndividual},
}

var businessPackages = []CreditPackage{
	{Key: "biz_team", Name: "Team", Credits: 5000, PriceLabel: "$149", Tier: TierBusiness},
	{Key: "biz_growth", Name: "Growth", Credits: 12000, PriceLabel: "$299", Tier: TierBusiness},
	{Key: "biz_scale", Name: "Scale", Credits: 30000, PriceLabel: "$599", Tier: TierBusiness},
}

var packagesByKey = buildPackageIndex()

func buildPackageIndex() map[string]CreditPackage {
	index := make(map[string]CreditPackage)
	for _, p := range individualPackages {
		index[p.Key] = p
	}
	for _, p := range businessPackages {
		index[p.Key] = p
	}
	return index
}

// PackageByKey looks up a credit package by its key.
func PackageByKey(key string) (CreditPackage, bool) {
	p, ok := packagesByKey[key]
	return p, ok
}

// Packages returns the packages offered to a tier, or all packages when
// tier is empty.
func Packages(tier string) []CreditPackage {
	switch tier {
	case TierIndividual:
		return append([]CreditPackage(nil), individualPackages...)
	case TierBusiness:
		return append([]CreditPackage(nil), businessPackages...)
	default:
		all := append([]CreditPackage(nil), individualPackages...)
		return append(all, businessPackages...)
	}
}
