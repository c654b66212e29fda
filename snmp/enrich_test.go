package snmp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkEnrichedReturnsNilWhenNeitherOptionSet(t *testing.T) {
	w, cleanup := newTestWalkEngine(t)
	defer cleanup()

	agent := newFakeAgent(t)
	defer agent.close()
	agent.script(func(req *DecodedPDU) ([]Varbind, int, int, bool) {
		return []Varbind{
			intVarbind("1.3.6.1.2.1.1.1.0", 1),
			{OID: OID{1, 3, 6, 1, 2, 1, 1, 2, 0}, TypedValue: TypedValue{Type: EndOfMIBView}},
		}, 0, 0, true
	})

	target := Target{Host: "127.0.0.1", Port: agent.port(), Community: "public", Version: V2c}
	vbs, enriched, err := w.WalkEnriched(context.Background(), target, "1.3.6.1.2.1.1", Opts{Timeout: time.Second})
	require.NoError(t, err)
	assert.Len(t, vbs, 1)
	assert.Nil(t, enriched)
}

func TestWalkEnrichedFormatsWhenIncludeFormatSet(t *testing.T) {
	w, cleanup := newTestWalkEngine(t)
	defer cleanup()

	agent := newFakeAgent(t)
	defer agent.close()
	agent.script(func(req *DecodedPDU) ([]Varbind, int, int, bool) {
		return []Varbind{
			{OID: OID{1, 3, 6, 1, 2, 1, 1, 1, 0}, TypedValue: TypedValue{Type: OctetString, Value: []byte("router-1")}},
			{OID: OID{1, 3, 6, 1, 2, 1, 1, 2, 0}, TypedValue: TypedValue{Type: EndOfMIBView}},
		}, 0, 0, true
	})

	target := Target{Host: "127.0.0.1", Port: agent.port(), Community: "public", Version: V2c}
	vbs, enriched, err := w.WalkEnriched(context.Background(), target, "1.3.6.1.2.1.1", Opts{Timeout: time.Second, IncludeFormat: true})
	require.NoError(t, err)
	require.Len(t, vbs, 1)
	require.Len(t, enriched, 1)
	assert.Equal(t, "router-1", enriched[0].Formatted)
	assert.Equal(t, vbs[0].OID.String(), enriched[0].OIDString)
}

func TestWalkEnrichedPropagatesWalkError(t *testing.T) {
	w, cleanup := newTestWalkEngine(t)
	defer cleanup()

	agent := newFakeAgent(t)
	agent.close() // closed before any request arrives: GetBulk times out

	target := Target{Host: "127.0.0.1", Port: agent.port(), Community: "public", Version: V2c}
	vbs, enriched, err := w.WalkEnriched(context.Background(), target, "1.3.6.1.2.1.1", Opts{Timeout: 50 * time.Millisecond, Retries: 0, IncludeNames: true})
	assert.Error(t, err)
	assert.Nil(t, vbs)
	assert.Nil(t, enriched)
}

func TestEnrichAgainIsIdempotent(t *testing.T) {
	vb := Varbind{OID: OID{1, 3, 6, 1, 2, 1, 1, 1, 0}, TypedValue: TypedValue{Type: OctetString, Value: []byte("x")}}
	first := defaultEnricher{}.Enrich(vb, false, true, noopMIBRegistry{})
	second := EnrichAgain(first, true, true, noopMIBRegistry{})
	assert.Equal(t, first, second)
}
