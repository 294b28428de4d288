// Package identity resolves request-carried credentials to a ledger
// identity. Resolution is pure and fails closed: a request that carries
// nothing usable gets no identity, never a default one.
package identity

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/avelikov/echogate/internal/domain"
)

// Credentials are the raw values the HTTP layer extracts from a request.
// Either may be empty.
type Credentials struct {
	SessionID string // opaque anonymous session id
	AuthToken string // base64 "email:timestamp" registration token
}

// ErrNoIdentity is returned when no usable credential is present.
var ErrNoIdentity = fmt.Errorf("no identity credentials")

// Resolve maps credentials to an identity. A valid auth token wins over a
// session id; a malformed auth token does not fall through to the session.
func Resolve(creds Credentials) (domain.Identity, error) {
	if creds.AuthToken != "" {
		email, err := DecodeToken(creds.AuthToken)
		if err != nil {
			return domain.None, err
		}
		return domain.Identity(email), nil
	}

	if creds.SessionID != "" {
		return domain.Identity(creds.SessionID), nil
	}

	return domain.None, ErrNoIdentity
}

// DecodeToken extracts the email from a base64 "email:timestamp" token.
func DecodeToken(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("malformed auth token: %w", err)
	}

	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("malformed auth token: missing email or timestamp")
	}
	if !strings.Contains(parts[0], "@") {
		return "", fmt.Errorf("malformed auth token: %q is not an email", parts[0])
	}
	return parts[0], nil
}

// EncodeToken builds the auth token for an email. timestamp is unix
// milliseconds at issue time.
func EncodeToken(email string, timestamp int64) string {
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%d", email, timestamp)))
}

// NewSessionID issues an opaque anonymous session id.
func NewSessionID() string {
	return uuid.New().String()
}

// ValidEmail is the minimal check applied at registration: a non-empty
// local part and domain around a single "@".
func ValidEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	local, dom := email[:at], email[at+1:]
	return local != "" && dom != "" && strings.Contains(dom, ".")
}
