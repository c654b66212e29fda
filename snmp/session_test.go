package snmp

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, func()) {
	t.Helper()
	cfg := buildConfig(nil)
	transport, err := NewTransport("127.0.0.1", 0, 0, cfg.trace)
	require.NoError(t, err)
	corr := NewCorrelator(cfg.codec, cfg.trace, cfg.metrics)
	go transport.Serve(corr.HandleDatagram)
	sess := newSession(transport, corr, newAllocator(), cfg)
	return sess, func() { transport.Close() }
}

func TestSessionGetSuccess(t *testing.T) {
	sess, cleanup := newTestSession(t)
	defer cleanup()

	agent := newFakeAgent(t)
	defer agent.close()
	agent.script(func(req *DecodedPDU) ([]Varbind, int, int, bool) {
		vb := Varbind{OID: req.Varbinds[0].OID, TypedValue: TypedValue{Type: OctetString, Value: []byte("Test Device")}}
		return []Varbind{vb}, 0, 0, true
	})

	target := Target{Host: "127.0.0.1", Port: agent.port(), Community: "public", Version: V2c}
	pdu, err := sess.Get(context.Background(), target, []string{"1.3.6.1.2.1.1.1.0"}, Opts{Timeout: 2 * time.Second})
	require.NoError(t, err)
	require.Len(t, pdu.Varbinds, 1)
	assert.Equal(t, OctetString, pdu.Varbinds[0].TypedValue.Type)
	assert.Equal(t, "Test Device", string(pdu.Varbinds[0].TypedValue.Value.([]byte)))
}

func TestSessionGetBulkRequiresV2c(t *testing.T) {
	sess, cleanup := newTestSession(t)
	defer cleanup()

	target := Target{Host: "127.0.0.1", Port: 1161, Community: "public", Version: V1}
	_, err := sess.GetBulk(context.Background(), target, []string{"1.3.6.1.2.1.2"}, Opts{Timeout: time.Second})
	require.Error(t, err)
	assert.Equal(t, ErrGetBulkRequiresV2c, Kind(err))
}

func TestSessionRetriesThenSucceeds(t *testing.T) {
	sess, cleanup := newTestSession(t)
	defer cleanup()

	agent := newFakeAgent(t)
	defer agent.close()
	var attempts int64
	agent.script(func(req *DecodedPDU) ([]Varbind, int, int, bool) {
		n := atomic.AddInt64(&attempts, 1)
		if n < 3 {
			return nil, 0, 0, false // drop, simulating no reply
		}
		vb := Varbind{OID: req.Varbinds[0].OID, TypedValue: TypedValue{Type: Integer, Value: int64(42)}}
		return []Varbind{vb}, 0, 0, true
	})

	target := Target{Host: "127.0.0.1", Port: agent.port(), Community: "public", Version: V2c}
	pdu, err := sess.Get(context.Background(), target, []string{"1.3.6.1.2.1.1.3.0"}, Opts{Timeout: 200 * time.Millisecond, Retries: 2})
	require.NoError(t, err)
	require.Len(t, pdu.Varbinds, 1)
	assert.EqualValues(t, 3, atomic.LoadInt64(&attempts))
}

func TestSessionTimeoutExhaustsRetries(t *testing.T) {
	sess, cleanup := newTestSession(t)
	defer cleanup()

	agent := newFakeAgent(t)
	defer agent.close()
	agent.script(func(req *DecodedPDU) ([]Varbind, int, int, bool) {
		return nil, 0, 0, false
	})

	target := Target{Host: "127.0.0.1", Port: agent.port(), Community: "public", Version: V2c}
	_, err := sess.Get(context.Background(), target, []string{"1.3.6.1.2.1.1.3.0"}, Opts{Timeout: 50 * time.Millisecond, Retries: 1})
	require.Error(t, err)
	assert.Equal(t, ErrTimeout, Kind(err))
}

func TestSessionTypeInformationLost(t *testing.T) {
	sess, cleanup := newTestSession(t)
	defer cleanup()

	agent := newFakeAgent(t)
	defer agent.close()
	agent.script(func(req *DecodedPDU) ([]Varbind, int, int, bool) {
		// A Null value (wire type Null, zero Go value) is legitimate; a
		// decoded varbind with DataType zero-value AND a nil Value is what
		// toPDU treats as missing type information. We can't construct
		// that case through the wire codec (every wire tag maps to a real
		// DataType), so this test checks that a Null varbind passes over
		// the wire, then exercises the guard directly through toPDU.
		return []Varbind{{OID: req.Varbinds[0].OID, TypedValue: TypedValue{Type: Null}}}, 0, 0, true
	})

	target := Target{Host: "127.0.0.1", Port: agent.port(), Community: "public", Version: V2c}
	pdu, err := sess.Get(context.Background(), target, []string{"1.3.6.1.2.1.1.3.0"}, Opts{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, Null, pdu.Varbinds[0].TypedValue.Type)

	_, err = sess.toPDU(&DecodedPDU{Varbinds: []Varbind{{OID: OID{1, 3, 6, 1, 2, 1, 1, 3, 0}}}})
	require.Error(t, err)
	assert.Equal(t, ErrTypeInformationLost, Kind(err))
}
