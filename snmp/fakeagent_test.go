package snmp

import (
	"net"
	"testing"
	"time"
)

// This file provides a minimal in-process SNMP agent simulator used by the
// integration-style tests below, grounded on the teacher's server.go
// receive-loop pattern (readMessage/processMessage over a net.PacketConn),
// generalized here to play the agent's half of a request/response exchange
// instead of the trap/inform receiver the teacher implements. It builds
// response datagrams with a small hand-rolled BER encoder rather than
// reusing the production codec, since the codec only needs to encode
// requests and decode responses; the fake agent needs the opposite.

// --- minimal BER TLV construction for the response values used in tests ---

func berLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var b []byte
	for v := n; v > 0; v >>= 8 {
		b = append([]byte{byte(v & 0xff)}, b...)
	}
	return append([]byte{byte(0x80 | len(b))}, b...)
}

func berTLV(tag byte, content []byte) []byte {
	out := append([]byte{tag}, berLength(len(content))...)
	return append(out, content...)
}

func berUintContent(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	var b []byte
	for v > 0 {
		b = append([]byte{byte(v & 0xff)}, b...)
		v >>= 8
	}
	if b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return b
}

func berInt(v int64) []byte {
	if v < 0 {
		panic("berInt: fake agent fixtures never encode negative integers")
	}
	return berTLV(0x02, berUintContent(uint64(v)))
}

func berOctetString(b []byte) []byte { return berTLV(0x04, b) }

func berOID(o OID) []byte {
	n := o.Normalize()
	content := []byte{byte(40*n[0] + n[1])}
	for _, v := range n[2:] {
		content = append(content, base128(v)...)
	}
	return berTLV(0x06, content)
}

func base128(v int) []byte {
	if v == 0 {
		return []byte{0}
	}
	var out []byte
	for v > 0 {
		out = append([]byte{byte(v & 0x7f)}, out...)
		v >>= 7
	}
	for i := 0; i < len(out)-1; i++ {
		out[i] |= 0x80
	}
	return out
}

func berValue(tv TypedValue) []byte {
	switch tv.Type {
	case Integer:
		return berInt(tv.Value.(int64))
	case OctetString:
		return berOctetString(tv.Value.([]byte))
	case ObjectIdentifier:
		return berOID(tv.Value.(OID))
	case Counter32:
		return berTLV(0x41, berUintContent(uint64(tv.Value.(uint32))))
	case Gauge32:
		return berTLV(0x42, berUintContent(uint64(tv.Value.(uint32))))
	case TimeTicks:
		return berTLV(0x43, berUintContent(uint64(tv.Value.(uint32))))
	case IPAddress:
		return berTLV(0x40, tv.Value.([]byte))
	case Opaque:
		return berTLV(0x44, tv.Value.([]byte))
	case Counter64:
		return berTLV(0x46, berUintContent(tv.Value.(uint64)))
	case NoSuchObject:
		return berTLV(0x80, nil)
	case NoSuchInstance:
		return berTLV(0x81, nil)
	case EndOfMIBView:
		return berTLV(0x82, nil)
	default:
		return berTLV(0x05, nil)
	}
}

// buildResponse constructs a full GetResponse datagram carrying requestID
// and varbinds, version/community matching target.
func buildResponse(target Target, requestID int32, errorStatus, errorIndex int, varbinds []Varbind) []byte {
	var vbList []byte
	for _, vb := range varbinds {
		entry := append(berOID(vb.OID), berValue(vb.TypedValue)...)
		vbList = append(vbList, berTLV(0x30, entry)...)
	}
	pduContent := berInt(int64(requestID))
	pduContent = append(pduContent, berInt(int64(errorStatus))...)
	pduContent = append(pduContent, berInt(int64(errorIndex))...)
	pduContent = append(pduContent, berTLV(0x30, vbList)...)
	pdu := berTLV(0xA2, pduContent)

	wireVersion := int64(0)
	if target.Version == V2c {
		wireVersion = 1
	}
	content := berInt(wireVersion)
	content = append(content, berOctetString([]byte(target.Community))...)
	content = append(content, pdu...)
	return berTLV(0x30, content)
}

// fakeAgent is a single-socket stand-in for a remote SNMP agent: it decodes
// inbound requests with the production codec (request/response share the
// same envelope shape) and lets the test script decide how to reply.
type fakeAgent struct {
	t    *testing.T
	conn *net.UDPConn
}

func newFakeAgent(t *testing.T) *fakeAgent {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	return &fakeAgent{t: t, conn: conn}
}

func (f *fakeAgent) addr() string { return f.conn.LocalAddr().String() }

func (f *fakeAgent) port() int { return f.conn.LocalAddr().(*net.UDPAddr).Port }

func (f *fakeAgent) close() { f.conn.Close() }

// script runs handle once per inbound datagram until the test closes the
// agent. handle receives the decoded request; every reply is encoded as
// v2c with community "public" and sent to the packet's source address.
// Returning respond=false drops the request on the floor, simulating
// packet loss / a non-responding agent.
func (f *fakeAgent) script(handle func(req *DecodedPDU) (varbinds []Varbind, errorStatus, errorIndex int, respond bool)) {
	go func() {
		codec := berCodec{}
		buf := make([]byte, maxDatagramBuffer)
		for {
			n, from, err := f.conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			req, err := codec.Decode(data)
			if err != nil {
				continue
			}
			vbs, es, ei, respond := handle(req)
			if !respond {
				continue
			}
			target := Target{Version: V2c, Community: "public"}
			resp := buildResponse(target, req.RequestID, es, ei, vbs)
			_, _ = f.conn.WriteToUDP(resp, from)
		}
	}()
}

// waitClosed is a small helper so tests can bound how long they wait for a
// Manager to finish its receive goroutine on Close, without adding a real
// synchronization point to production code.
func waitClosed(d time.Duration) { time.Sleep(d) }
