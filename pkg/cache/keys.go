package cache

import "fmt"

// Key names a cached response.
type Key string

const (
	KeyDashboardWidgets Key = "DASHBOARD_WIDGETS"
	KeyAnalyticsData    Key = "ANALYTICS_DATA"
	KeyAnalyticsStatus  Key = "ANALYTICS_STATUS"
	KeyProductsList     Key = "PRODUCTS_LIST"
	KeyOrdersList       Key = "ORDERS_LIST"
	KeyExpensesList     Key = "EXPENSES_LIST"
)

const storageKeyPrefix = "cache_"

// persistableKeys is the fixed allow-list mirrored into the persistent store.
var persistableKeys = []Key{
	KeyDashboardWidgets,
	KeyAnalyticsData,
	KeyAnalyticsStatus,
	KeyProductsList,
	KeyOrdersList,
	KeyExpensesList,
}

// PersistableKeys returns the allow-listed keys.
func PersistableKeys() []Key {
	out := make([]Key, len(persistableKeys))
	copy(out, persistableKeys)
	return out
}

// Persistable reports whether k may be mirrored into persistent storage.
func (k Key) Persistable() bool {
	for _, candidate := range persistableKeys {
		if candidate == k {
			return true
		}
	}
	return false
}

// StorageKey is the namespaced name used in the persistent store.
func (k Key) StorageKey() string {
	return storageKeyPrefix + string(k)
}

// ParseKey accepts only allow-listed keys.
func ParseKey(value string) (Key, error) {
	key := Key(value)
	if !key.Persistable() {
		return "", fmt.Errorf("unknown cache key %q", value)
	}
	return key, nil
}

// ChangeType is the mutation category passed to InvalidateOnDataChange.
type ChangeType string

const (
	ChangeProduct   ChangeType = "product"
	ChangeOrder     ChangeType = "order"
	ChangeExpense   ChangeType = "expense"
	ChangeAnalytics ChangeType = "analytics"
)

var invalidationTable = map[ChangeType][]Key{
	ChangeProduct:   {KeyProductsList, KeyDashboardWidgets},
	ChangeOrder:     {KeyOrdersList, KeyDashboardWidgets, KeyAnalyticsData},
	ChangeExpense:   {KeyExpensesList, KeyDashboardWidgets, KeyAnalyticsData},
	ChangeAnalytics: {KeyAnalyticsData, KeyAnalyticsStatus},
}

// AffectedKeys lists the keys dropped when data of this type changes.
func (c ChangeType) AffectedKeys() []Key {
	keys := invalidationTable[c]
	out := make([]Key, len(keys))
	copy(out, keys)
	return out
}

// ParseChangeType converts raw input into a ChangeType.
func ParseChangeType(value string) (ChangeType, error) {
	change := ChangeType(value)
	if _, ok := invalidationTable[change]; !ok {
		return "", fmt.Errorf("invalid change type %q", value)
	}
	return change, nil
}

// LoadKind distinguishes a fresh start from a soft navigation.
type LoadKind int

const (
	LoadNavigate LoadKind = iota
	LoadReload
)

// Source reports which layer an entry was found in.
type Source string

const (
	SourceMemory     Source = "memory"
	SourcePersistent Source = "persistent"
)
