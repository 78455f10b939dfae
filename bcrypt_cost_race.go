//go:build race

package motors

import "golang.org/x/crypto/bcrypt"

func init() {
	// Reduce cost for race-enabled builds so test suites can run with strict timeouts.
	HashCost = bcrypt.DefaultCost
}
