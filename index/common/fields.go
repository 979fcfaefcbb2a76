// Package common holds the field names shared by every index implementation
// for the record ID they store alongside each indexed value.
package common

const (
	// BlockField names the field holding the block number half of a data
	// record's ID.
	BlockField = "block"

	// IDField names the field holding the slot number half of a data
	// record's ID.
	IDField = "id"

	// DataValueField names the field holding the indexed value itself.
	DataValueField = "data_value"
)
