package client

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/sebas/gophone/sip"
)

// fakeServer is a minimal scripted UDP peer standing in for a
// registrar/proxy, used to drive the client through multi-exchange
// flows without a real SIP server.
type fakeServer struct {
	conn *net.UDPConn
	port int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return &fakeServer{conn: conn, port: conn.LocalAddr().(*net.UDPAddr).Port}
}

func (f *fakeServer) close() { _ = f.conn.Close() }

func (f *fakeServer) recv(t *testing.T) (*sip.Message, *net.UDPAddr) {
	t.Helper()
	buf := make([]byte, 65535)
	_ = f.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, from, err := f.conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("fake server recv: %v", err)
	}
	msg, err := sip.Parse(buf[:n])
	if err != nil {
		t.Fatalf("fake server parse: %v", err)
	}
	return msg, from
}

func (f *fakeServer) reply(t *testing.T, to *net.UDPAddr, raw string) {
	t.Helper()
	if _, err := f.conn.WriteToUDP([]byte(raw), to); err != nil {
		t.Fatalf("fake server reply: %v", err)
	}
}

func testConfig(serverPort int) Config {
	cfg := DefaultConfig()
	cfg.Server = "127.0.0.1"
	cfg.Port = serverPort
	cfg.LocalIP = "127.0.0.1"
	cfg.LocalPort = 0
	cfg.Username = "alice"
	cfg.Password = "secret"
	cfg.RegisterTimeout = 2 * time.Second
	cfg.InviteTimeout = 2 * time.Second
	cfg.MaxRetryAttempts = 1
	return cfg
}

// TestRegisterDigestChallenge drives the scenario 1 exchange: a 401
// challenge followed by a 200 OK carrying received/rport, and checks
// the client learns its public address and schedules a refresh.
func TestRegisterDigestChallenge(t *testing.T) {
	srv := newFakeServer(t)
	defer srv.close()

	c := New(testConfig(srv.port), nil)
	done := make(chan error, 1)
	go func() { done <- c.Start() }()

	req, from := srv.recv(t)
	if req.Method != "REGISTER" {
		t.Fatalf("expected REGISTER, got %s", req.Method)
	}
	challenge := "SIP/2.0 401 Unauthorized\r\n" +
		"Via: " + sip.Version + "/UDP " + viaBack(req) + "\r\n" +
		"From: <" + req.Headers.From.URI + ">;tag=" + req.Headers.From.Tag + "\r\n" +
		"To: <" + req.Headers.To.URI + ">;tag=srvtag\r\n" +
		"Call-ID: " + req.Headers.CallID + "\r\n" +
		"CSeq: " + strconv.Itoa(int(req.Headers.CSeq.Number)) + " REGISTER\r\n" +
		"WWW-Authenticate: Digest realm=\"asterisk\",nonce=\"abc123\"\r\n" +
		"Content-Length: 0\r\n\r\n"
	srv.reply(t, from, challenge)

	req2, from2 := srv.recv(t)
	if req2.Headers.Authorization == nil {
		t.Fatalf("expected retransmit with Authorization")
	}
	if req2.Headers.Authorization["realm"] != "asterisk" || req2.Headers.Authorization["nonce"] != "abc123" {
		t.Fatalf("unexpected auth params: %+v", req2.Headers.Authorization)
	}

	ok := "SIP/2.0 200 OK\r\n" +
		"Via: " + sip.Version + "/UDP " + viaBack(req2) + ";received=203.0.113.5;rport=40001\r\n" +
		"From: <" + req2.Headers.From.URI + ">;tag=" + req2.Headers.From.Tag + "\r\n" +
		"To: <" + req2.Headers.To.URI + ">;tag=srvtag\r\n" +
		"Call-ID: " + req2.Headers.CallID + "\r\n" +
		"CSeq: " + strconv.Itoa(int(req2.Headers.CSeq.Number)) + " REGISTER\r\n" +
		"Content-Length: 0\r\n\r\n"
	srv.reply(t, from2, ok)

	if err := <-done; err != nil {
		t.Fatalf("Start: %v", err)
	}

	ip, port := c.PublicAddress()
	if ip != "203.0.113.5" || port != "40001" {
		t.Fatalf("got public %s:%s", ip, port)
	}
	if c.State() != StateRegistered {
		t.Fatalf("expected Registered, got %v", c.State())
	}

	stopped := make(chan error, 1)
	go func() { stopped <- c.Stop() }()
	dereg, from3 := srv.recv(t)
	if dereg.Method != "REGISTER" || dereg.Headers.Expires != 0 {
		t.Fatalf("expected Expires:0 deregister, got %+v", dereg.Headers)
	}
	srv.reply(t, from3, "SIP/2.0 200 OK\r\n"+
		"Via: "+sip.Version+"/UDP "+viaBack(dereg)+"\r\n"+
		"From: <"+dereg.Headers.From.URI+">;tag="+dereg.Headers.From.Tag+"\r\n"+
		"To: <"+dereg.Headers.To.URI+">;tag=srvtag\r\n"+
		"Call-ID: "+dereg.Headers.CallID+"\r\n"+
		"CSeq: "+strconv.Itoa(int(dereg.Headers.CSeq.Number))+" REGISTER\r\n"+
		"Content-Length: 0\r\n\r\n")
	if err := <-stopped; err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func viaBack(req *sip.Message) string {
	v := req.Headers.Via[0]
	return v.Host + ";branch=" + v.Branch()
}
