package utils

import "runtime"

// IntSize provides the size of int on this architecture. record.Layout uses
// it to size and align Integer fields, so a schema built on one architecture
// is not portable to a database directory read on another.
var IntSize = 8

func init() {
	if runtime.GOARCH == "386" || runtime.GOARCH == "arm" {
		IntSize = 4
	}
}
