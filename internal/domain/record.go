package domain

import "regexp"

// HeaderOffset is the sheet row number of the first data row.
// Row 1 is the header, so record row positions start at 2.
const HeaderOffset = 2

// WalletRecord represents one member's wallet submission.
// Corresponds to one data row of the Wallets sheet.
type WalletRecord struct {
	MemberID      string // platform-assigned member ID, unique key
	DisplayName   string // cosmetic, non-unique
	WalletAddress string // 0x-prefixed 40-hex-digit EVM address
	RoleLabel     string // highest-priority role label, or empty
	Row           int    // 1-based sheet row position; 0 when not from a listing
}

// evmAddressRe matches a 0x-prefixed 40-hex-digit address.
// No checksum verification, matching the submission-time contract.
var evmAddressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ValidWalletAddress reports whether s looks like an EVM address.
// This is the only validation ever applied to an address; stored
// addresses are never re-validated.
func ValidWalletAddress(s string) bool {
	return evmAddressRe.MatchString(s)
}

// UpsertAction indicates whether an upsert inserted or updated a record.
type UpsertAction string

const (
	UpsertInserted UpsertAction = "inserted"
	UpsertUpdated  UpsertAction = "updated"
)

// RoleUpdate addresses a single role-cell mutation. Row targets
// row-positional backends; MemberID targets key-based backends.
type RoleUpdate struct {
	Row       int
	MemberID  string
	RoleLabel string
}

// RecordRef identifies a record for deletion, by row position and key.
type RecordRef struct {
	Row      int
	MemberID string
}
