// Package snmp implements the client-side wire protocol engine for an
// SNMPv1/v2c manager: a shared-socket request/response correlator, GETNEXT
// and GETBULK walk state machines, an adaptive bulk-size tuner, and a
// bounded-concurrency orchestrator for batches of requests against many
// targets.
//
// ASN.1/BER encoding, OID parsing and the MIB name registry are treated as
// external collaborators and consumed through the interfaces in codec.go,
// oid.go and mib.go; this package ships default implementations of each so
// it is usable standalone, but every one of them can be swapped with
// Option.
package snmp
