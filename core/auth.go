package core

import (
	"context"
	"strings"
	"time"
)

// MessagePrefix is the canonical text a wallet signs to prove ownership
const MessagePrefix = "Sign this message to authenticate: "

// NonceRecord is the server-side state of an issued challenge
type NonceRecord struct {
	Address  string    // Lower-cased wallet address
	Nonce    string    // Printable random token
	IssuedAt time.Time // When the nonce was issued
	Consumed bool      // Set once a signature over the nonce was accepted
}

// Expired reports whether the record is older than window at now
func (r NonceRecord) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(r.IssuedAt) > window
}

// Challenge is what the client receives from the nonce endpoint
type Challenge struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

// ChallengeMessage renders the message embedding nonce
func ChallengeMessage(nonce string) string {
	return MessagePrefix + nonce
}

// SignedMessage is the client's proof of ownership
type SignedMessage struct {
	Address   string // Claimed wallet address
	PublicKey string // Hex public key, may be empty for recoverable schemes
	Signature string // Hex signature
	Message   string // Signed text, must contain the issued nonce
	Chain     string // Signature scheme name, empty for the default
}

// Session represents an authenticated wallet session
type Session struct {
	ID            string    // Unique token identifier
	WalletAddress string    // Verified wallet address
	IssuedAt      time.Time // When the session was created
	ExpiresAt     time.Time // Hard expiry
}

// Credential is a minted session together with its encoded token
type Credential struct {
	Session
	Token string
}

// Identity is attached to a request once the session guard accepts it
type Identity struct {
	WalletAddress string
	SessionID     string
	ExpiresAt     time.Time
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom extracts the verified identity from ctx
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// NormalizeAddress lower-cases and trims an address for use as a store key
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
