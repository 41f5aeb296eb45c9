// Package codex holds the domain types shared by the gateway, store and router:
// data types, records and filter sets.
package codex

import (
	"github.com/KirkDiggler/rpg-codex/internal/errors"
)

// DataType names one of the record collections served by a data source.
type DataType string

// Known data types. The set is closed; every store bucket is keyed by one.
const (
	DataTypeCreatures   DataType = "creatures"
	DataTypeItems       DataType = "items"
	DataTypeStructures  DataType = "structures"
	DataTypeResources   DataType = "resources"
	DataTypeBosses      DataType = "bosses"
	DataTypeProgression DataType = "progression"
)

var allDataTypes = []DataType{
	DataTypeCreatures,
	DataTypeItems,
	DataTypeStructures,
	DataTypeResources,
	DataTypeBosses,
	DataTypeProgression,
}

// AllDataTypes returns the known data types in canonical order.
func AllDataTypes() []DataType {
	out := make([]DataType, len(allDataTypes))
	copy(out, allDataTypes)
	return out
}

// String returns the string representation of the data type
func (t DataType) String() string {
	return string(t)
}

// Valid reports whether t is one of the known data types.
func (t DataType) Valid() bool {
	for _, known := range allDataTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Singular returns the display noun for one record of this type.
func (t DataType) Singular() string {
	switch t {
	case DataTypeCreatures:
		return "creature"
	case DataTypeItems:
		return "item"
	case DataTypeStructures:
		return "structure"
	case DataTypeResources:
		return "resource"
	case DataTypeBosses:
		return "boss"
	case DataTypeProgression:
		return "progression tier"
	default:
		return string(t)
	}
}

// ParseDataType converts a string to a known DataType.
func ParseDataType(s string) (DataType, error) {
	t := DataType(s)
	if !t.Valid() {
		return "", errors.InvalidArgumentf("unknown data type %q", s)
	}
	return t, nil
}
