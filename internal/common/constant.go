package common

// Config keys used in the vault's config table.
const (
	MasterPasswordHashKey = "master_password_hash"
	KeyCheckKey           = "key_check"
	VaultIDKey            = "vault_id"
)

// DefaultIdentity is the throttle identity used by the single-user desktop vault.
const DefaultIdentity = "default"
