package narrative

import "github.com/xraph/narrative/id"

// ID is the handle type for every narrative storage slot.
type ID = id.ID

// Prefix identifies the slot kind encoded in a handle.
type Prefix = id.Prefix
