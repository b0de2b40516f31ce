package management

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/cachestats/pkg/cache"
)

// Attribute enumerates the fixed statistics surface of a View.
type Attribute int

// Attributes in canonical order.
const (
	CachePuts Attribute = iota
	CacheGets
	CacheHits
	CacheMisses
	CacheRemovals
	CacheEvictions
	CacheHitPercentage
	CacheMissPercentage

	attributeCount
)

// Kind is the value type of an attribute.
type Kind string

// Attribute kinds.
const (
	KindInteger  Kind = "integer"
	KindFloating Kind = "floating"
)

type attributeSpec struct {
	name      string
	kind      Kind
	help      string
	metric    string
	valueType prometheus.ValueType
	read      func(cache.Snapshot) any
}

// attributeTable is sized by attributeCount, so adding an Attribute without an entry
// leaves a zero row that TestAttributeTableComplete rejects, and an entry for an
// unknown index does not compile.
var attributeTable = [attributeCount]attributeSpec{
	CachePuts: {
		name: "CachePuts", kind: KindInteger, help: "Total puts recorded",
		metric: "puts_total", valueType: prometheus.CounterValue,
		read: func(s cache.Snapshot) any { return s.Puts },
	},
	CacheGets: {
		name: "CacheGets", kind: KindInteger, help: "Total get-style accesses",
		metric: "gets_total", valueType: prometheus.CounterValue,
		read: func(s cache.Snapshot) any { return s.Gets },
	},
	CacheHits: {
		name: "CacheHits", kind: KindInteger, help: "Gets resolved to a resident matching entry",
		metric: "hits_total", valueType: prometheus.CounterValue,
		read: func(s cache.Snapshot) any { return s.Hits },
	},
	CacheMisses: {
		name: "CacheMisses", kind: KindInteger, help: "Gets that found nothing or a mismatched value",
		metric: "misses_total", valueType: prometheus.CounterValue,
		read: func(s cache.Snapshot) any { return s.Misses },
	},
	CacheRemovals: {
		name: "CacheRemovals", kind: KindInteger, help: "Removals of resident entries",
		metric: "removals_total", valueType: prometheus.CounterValue,
		read: func(s cache.Snapshot) any { return s.Removals },
	},
	CacheEvictions: {
		name: "CacheEvictions", kind: KindInteger, help: "Entries removed to enforce capacity",
		metric: "evictions_total", valueType: prometheus.CounterValue,
		read: func(s cache.Snapshot) any { return s.Evictions },
	},
	CacheHitPercentage: {
		name: "CacheHitPercentage", kind: KindFloating, help: "Hits per hundred gets",
		metric: "hit_percentage", valueType: prometheus.GaugeValue,
		read: func(s cache.Snapshot) any { return s.HitPercentage },
	},
	CacheMissPercentage: {
		name: "CacheMissPercentage", kind: KindFloating, help: "Misses per hundred gets",
		metric: "miss_percentage", valueType: prometheus.GaugeValue,
		read: func(s cache.Snapshot) any { return s.MissPercentage },
	},
}

var attributesByName = func() map[string]Attribute {
	byName := make(map[string]Attribute, attributeCount)
	for i := Attribute(0); i < attributeCount; i++ {
		byName[attributeTable[i].name] = i
	}
	return byName
}()

// String returns the attribute name as seen by monitoring consumers.
func (a Attribute) String() string {
	if a < 0 || a >= attributeCount {
		return "unknown"
	}
	return attributeTable[a].name
}

// Kind returns the value type of the attribute.
func (a Attribute) Kind() Kind {
	if a < 0 || a >= attributeCount {
		return ""
	}
	return attributeTable[a].kind
}

// ParseAttribute resolves a consumer-supplied attribute name.
func ParseAttribute(name string) (Attribute, bool) {
	a, ok := attributesByName[name]
	return a, ok
}

// AllAttributes returns every attribute in canonical order.
func AllAttributes() []Attribute {
	all := make([]Attribute, attributeCount)
	for i := range all {
		all[i] = Attribute(i)
	}
	return all
}

// AttributeNames returns every attribute name in canonical order.
func AttributeNames() []string {
	names := make([]string, attributeCount)
	for i := range names {
		names[i] = attributeTable[i].name
	}
	return names
}

func (a Attribute) value(s cache.Snapshot) any {
	return attributeTable[a].read(s)
}
