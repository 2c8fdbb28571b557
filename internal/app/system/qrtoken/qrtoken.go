// internal/app/system/qrtoken/qrtoken.go
package qrtoken

import (
	"errors"

	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// tokenName is the securecookie "name" the payload is authenticated
// against; it keeps QR tokens from being replayed as anything else signed
// with the same keys.
const tokenName = "gatehub-qr"

// ErrInvalidToken is returned for tokens that fail authentication or do not
// carry an invitation id.
var ErrInvalidToken = errors.New("invalid qr token")

// Codec signs and encrypts QR payloads. The token embeds only the
// invitation id; everything else is looked up server-side, so a captured QR
// image leaks nothing about the visitor or the community.
type Codec struct {
	sc *securecookie.SecureCookie
}

// New creates a Codec from the configured hash and block keys. Tokens carry
// no expiry of their own; validity windows live on the invitation record.
func New(hashKey, blockKey []byte) *Codec {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(0)
	return &Codec{sc: sc}
}

// Encode produces the opaque token for an invitation id.
func (c *Codec) Encode(invitationID primitive.ObjectID) (string, error) {
	return c.sc.Encode(tokenName, invitationID.Hex())
}

// Decode recovers the invitation id from a token. Any failure, tampering
// included, comes back as ErrInvalidToken.
func (c *Codec) Decode(token string) (primitive.ObjectID, error) {
	var hex string
	if err := c.sc.Decode(tokenName, token, &hex); err != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidToken
	}
	return id, nil
}
