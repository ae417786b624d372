package sip

import (
	"fmt"

	"github.com/icholy/digest"
)

// Challenge is the {realm, nonce} pair extracted from a 401/407
// WWW-Authenticate header by the message codec.
type Challenge struct {
	Realm string
	Nonce string
}

// Credentials holds everything needed to render an Authorization header
// for a retried request.
type Credentials struct {
	Username  string
	Realm     string
	Nonce     string
	URI       string
	Response  string
	Algorithm string
}

// ErrUnsupportedQOP names a challenge that demands qop=auth; this module
// only supports the plain RFC 2617 MD5 digest without qop. Challenge
// carries no qop field, and ComputeResponse never returns this error.
var ErrUnsupportedQOP = fmt.Errorf("sip: qop=auth challenges are not supported")

// ComputeResponse derives the MD5 digest response for the given method
// and request URI against a challenge, per RFC 2617:
//
//	HA1 = MD5(username:realm:password)
//	HA2 = MD5(method:uri)
//	response = MD5(HA1:nonce:HA2)
//
// The hashing itself is delegated to github.com/icholy/digest instead of
// hand-rolling MD5 arithmetic.
func ComputeResponse(ch Challenge, username, password, method, uri string) (Credentials, error) {
	chal := &digest.Challenge{
		Realm:     ch.Realm,
		Nonce:     ch.Nonce,
		Algorithm: "MD5",
	}
	creds, err := digest.Digest(chal, digest.Options{
		Username: username,
		Password: password,
		Method:   method,
		URI:      uri,
		Count:    1,
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("sip: compute digest response: %w", err)
	}
	return Credentials{
		Username:  username,
		Realm:     ch.Realm,
		Nonce:     ch.Nonce,
		URI:       uri,
		Response:  creds.Response,
		Algorithm: "MD5",
	}, nil
}

// Header renders the Authorization header value in the fixed field
// order this module's peers expect: username, realm, nonce, uri,
// response, algorithm.
func (c Credentials) Header() string {
	return fmt.Sprintf(
		`Digest username="%s",realm="%s",nonce="%s",uri="%s",response="%s",algorithm=%s`,
		c.Username, c.Realm, c.Nonce, c.URI, c.Response, c.Algorithm,
	)
}
