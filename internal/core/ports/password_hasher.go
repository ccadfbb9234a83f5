package ports

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns (false, nil) on mismatch and an error only for a malformed hash.
	Verify(password, hash string) (bool, error)
	// NeedsUpgrade reports whether hash was produced by an older scheme.
	NeedsUpgrade(hash string) bool
}
