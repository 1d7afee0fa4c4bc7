package models

import "net/url"

// FilterKey identifies one search filter dimension. The set is closed:
// unknown keys in client input are ignored rather than rejected.
type FilterKey string

// Filter keys understood by the entries store.
const (
	FilterHub        FilterKey = "hub"
	FilterType       FilterKey = "type"
	FilterSection    FilterKey = "section"
	FilterChannel    FilterKey = "channel"
	FilterCapability FilterKey = "capability"
	FilterIndustry   FilterKey = "industry"
	FilterAudience   FilterKey = "audience"
	FilterProduct    FilterKey = "product"
	FilterProofType  FilterKey = "proofType"
	FilterPermission FilterKey = "permission"
)

// FilterKeys lists every valid filter key in a stable order.
var FilterKeys = []FilterKey{
	FilterHub, FilterType, FilterSection, FilterChannel, FilterCapability,
	FilterIndustry, FilterAudience, FilterProduct, FilterProofType, FilterPermission,
}

// Valid reports whether k is one of the closed filter key set.
func (k FilterKey) Valid() bool {
	for _, known := range FilterKeys {
		if k == known {
			return true
		}
	}

	return false
}

// TaxonomyDimension returns the taxonomy dimension this key filters on,
// or "" for column-backed keys (hub, type).
func (k FilterKey) TaxonomyDimension() TaxonomyDimension {
	switch k {
	case FilterSection:
		return DimensionSection
	case FilterChannel:
		return DimensionChannel
	case FilterCapability:
		return DimensionCapability
	case FilterIndustry:
		return DimensionIndustry
	case FilterAudience:
		return DimensionAudience
	case FilterProduct:
		return DimensionProduct
	case FilterProofType:
		return DimensionProofType
	case FilterPermission:
		return DimensionPermission
	case FilterHub, FilterType:
		return ""
	default:
		return ""
	}
}

// SearchFilters is a set of optional filter constraints keyed by the closed
// FilterKey set. A missing key means "no constraint".
type SearchFilters map[FilterKey]string

// FiltersFromValues builds SearchFilters from URL query parameters.
// Unknown keys and empty values are ignored.
func FiltersFromValues(values url.Values) SearchFilters {
	filters := SearchFilters{}

	for _, key := range FilterKeys {
		if v := values.Get(string(key)); v != "" {
			filters[key] = v
		}
	}

	return filters
}

// Values serializes the filters back to URL query parameters, inverse of
// FiltersFromValues for the closed key set.
func (f SearchFilters) Values() url.Values {
	values := url.Values{}

	for _, key := range FilterKeys {
		if v, ok := f[key]; ok && v != "" {
			values.Set(string(key), v)
		}
	}

	return values
}

// Clone returns an independent copy so callers can treat filters as immutable.
func (f SearchFilters) Clone() SearchFilters {
	out := make(SearchFilters, len(f))
	for k, v := range f {
		out[k] = v
	}

	return out
}

// SortMode selects the result ordering for entry searches.
type SortMode string

// Supported sort modes. Priority is the default: priority descending with
// most-recently-updated as tiebreak.
const (
	SortPriority SortMode = "priority"
	SortUpdated  SortMode = "updated"
	SortCreated  SortMode = "created"
	SortTitle    SortMode = "title"
	SortCustomer SortMode = "customer"
)

// ParseSortMode returns the sort mode for s, defaulting to SortPriority for
// empty or unknown input.
func ParseSortMode(s string) SortMode {
	switch SortMode(s) {
	case SortUpdated, SortCreated, SortTitle, SortCustomer:
		return SortMode(s)
	default:
		return SortPriority
	}
}
