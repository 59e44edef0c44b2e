package common

import (
	"ecloudframes/status"
)

// MT: Constant after initialization; thread-safe
var Log status.Logger = status.Default()
