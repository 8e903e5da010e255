package memory

import "errors"

var errDuplicateAccessID = errors.New("access id already in use")
