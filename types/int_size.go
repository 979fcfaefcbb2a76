package types

import "github.com/emberdb/emberdb/utils"

// IntSize is the byte width the record and log layers reserve for a single
// integer-sized field, matching the platform int width used to pack pages.
var IntSize = utils.IntSize
