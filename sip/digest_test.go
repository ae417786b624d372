package sip

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
)

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestComputeResponseMatchesRFC2617Formula(t *testing.T) {
	ch := Challenge{Realm: "asterisk", Nonce: "abc123"}
	username, password := "1000", "secret"
	method, uri := "REGISTER", "sip:example.net"

	creds, err := ComputeResponse(ch, username, password, method, uri)
	if err != nil {
		t.Fatalf("ComputeResponse: %v", err)
	}

	ha1 := md5hex(username + ":" + ch.Realm + ":" + password)
	ha2 := md5hex(method + ":" + uri)
	want := md5hex(ha1 + ":" + ch.Nonce + ":" + ha2)

	if creds.Response != want {
		t.Fatalf("response mismatch: got %s want %s", creds.Response, want)
	}
	if creds.Algorithm != "MD5" {
		t.Fatalf("expected MD5 algorithm, got %q", creds.Algorithm)
	}
}

func TestCredentialsHeaderFieldOrder(t *testing.T) {
	c := Credentials{
		Username:  "1000",
		Realm:     "asterisk",
		Nonce:     "abc123",
		URI:       "sip:example.net",
		Response:  "deadbeef",
		Algorithm: "MD5",
	}
	got := c.Header()
	want := `Digest username="1000",realm="asterisk",nonce="abc123",uri="sip:example.net",response="deadbeef",algorithm=MD5`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
