package sqlite

import "strings"

// IsUniqueConstraintError reports whether the error came from a UNIQUE
// constraint violation. The driver exposes no typed error for this, so the
// message text is the contract.
func IsUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
