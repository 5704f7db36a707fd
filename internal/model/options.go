package model

import "github.com/rotisserie/eris"

// Strategy selects the field recovery rule set.
type Strategy string

const (
	// StrategySmart derives missing values from price, quantity and total
	// and infers items from category and price.
	StrategySmart Strategy = "smart"
	// StrategySimple fills gaps with medians and "Unknown" placeholders.
	StrategySimple Strategy = "simple"
)

// ParseStrategy converts a config string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySmart, StrategySimple:
		return Strategy(s), nil
	case "":
		return StrategySmart, nil
	default:
		return "", eris.Errorf("unknown recovery strategy: %q (valid: smart, simple)", s)
	}
}

// ItemIdentity decides which fields make two items the same.
type ItemIdentity string

const (
	// ItemByNameCategoryPrice treats every observed unit price as its own item.
	ItemByNameCategoryPrice ItemIdentity = "name_category_price"
	// ItemByNameCategory keeps one item per name and category, priced at its
	// first observed unit price.
	ItemByNameCategory ItemIdentity = "name_category"
)

// ParseItemIdentity converts a config string into an ItemIdentity.
func ParseItemIdentity(s string) (ItemIdentity, error) {
	switch ItemIdentity(s) {
	case ItemByNameCategoryPrice, ItemByNameCategory:
		return ItemIdentity(s), nil
	case "":
		return ItemByNameCategoryPrice, nil
	default:
		return "", eris.Errorf("unknown item identity: %q (valid: name_category_price, name_category)", s)
	}
}

// EnumOrder decides how dimension surrogate keys are enumerated.
type EnumOrder string

const (
	OrderFirstSeen EnumOrder = "first_seen"
	OrderSorted    EnumOrder = "sorted"
)

// ParseEnumOrder converts a config string into an EnumOrder.
func ParseEnumOrder(s string) (EnumOrder, error) {
	switch EnumOrder(s) {
	case OrderFirstSeen, OrderSorted:
		return EnumOrder(s), nil
	case "":
		return OrderFirstSeen, nil
	default:
		return "", eris.Errorf("unknown enum order: %q (valid: first_seen, sorted)", s)
	}
}

// FKPolicy decides what happens to fact rows whose foreign keys do not resolve.
type FKPolicy string

const (
	// FKReport excludes the row from the fact table and reports it as unresolved.
	FKReport FKPolicy = "report"
	// FKFail aborts normalization on the first unresolved row.
	FKFail FKPolicy = "fail"
)

// ParseFKPolicy converts a config string into an FKPolicy.
func ParseFKPolicy(s string) (FKPolicy, error) {
	switch FKPolicy(s) {
	case FKReport, FKFail:
		return FKPolicy(s), nil
	case "":
		return FKReport, nil
	default:
		return "", eris.Errorf("unknown fk policy: %q (valid: report, fail)", s)
	}
}
