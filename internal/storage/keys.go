package storage

// Typed key builders. The original storage layout is a sum type of keyed
// variants; here each variant becomes a kind prefix joined with its composite
// key parts. Principals and hex identifiers never contain '/', so the
// encoding is unambiguous.

const (
	// Singleton keys.
	KeyCircleAdmin       = "meta/circle/admin"
	KeyCircleCount       = "meta/circle/count"
	KeyCreditAdmin       = "meta/credit/admin"
	KeyCreditUserCount   = "meta/credit/users"
	KeyAuthorizedCallers = "meta/credit/callers"
	KeyIdentityAdmin     = "meta/identity/admin"
	KeyBindingCount      = "meta/identity/bindings"
)

// CircleKey addresses a circle record by its hex ID.
func CircleKey(circleID string) string { return "circle/" + circleID }

// MemberKey addresses a member record by circle and principal.
func MemberKey(circleID, principal string) string {
	return "member/" + circleID + "/" + principal
}

// InviteKey maps a hex invite code to its circle ID.
func InviteKey(code string) string { return "invite/" + code }

// CreditKey addresses a credit profile by unique identity ID.
func CreditKey(uniqueID string) string { return "credit/" + uniqueID }

// HistoryKey addresses a payment history ring by unique identity ID.
func HistoryKey(uniqueID string) string { return "history/" + uniqueID }

// BalanceKey addresses a ledger account balance.
func BalanceKey(account string) string { return "balance/" + account }

// IDToWalletKey maps a unique identity ID to its bound principal.
func IDToWalletKey(uniqueID string) string { return "idwallet/" + uniqueID }

// WalletToIDKey maps a principal to its bound unique identity ID.
func WalletToIDKey(principal string) string { return "walletid/" + principal }

// UserByEmailKey addresses an account record by login email.
func UserByEmailKey(email string) string { return "user/" + email }

// UserByIDKey maps a user ID back to the login email.
func UserByIDKey(id string) string { return "userid/" + id }
