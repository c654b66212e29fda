package snmp

import (
	"encoding/hex"
	"log"
	"time"
)

// Trace defines the hook set invoked at points of interest across the
// engine. Any field left nil is a no-op; buildConfig merges a
// caller-supplied Trace over NoOpTrace field-by-field with
// github.com/imdario/mergo, the same way the teacher's ManagerFactory
// merges trace hooks, so a partially specified Trace never panics on a
// nil field.
type Trace struct {
	// ConnectStart/ConnectDone bracket opening the shared UDP socket. No
	// code path in this package invokes them.
	ConnectStart func(target Target)
	ConnectDone  func(target Target, err error, d time.Duration)

	// WriteDone/ReadDone bracket a single datagram send/receive. Transport
	// invokes WriteDone after each send; nothing invokes ReadDone.
	WriteDone func(target Target, b []byte, err error, d time.Duration)
	ReadDone  func(from Target, b []byte, err error, d time.Duration)

	// Error is called after any error condition is detected, tagged with
	// the component that detected it.
	Error func(location string, target Target, err error)

	// RequestRegistered/ResponseMatched/RequestTimedOut trace the
	// correlator's in-flight table transitions (§4.3).
	RequestRegistered func(requestID int32, op Op)
	ResponseMatched   func(requestID int32, d time.Duration)
	RequestTimedOut   func(requestID int32)
	UnknownResponse   func(requestID int32)

	// WalkStep is called once per PDU cycle of a walk (§4.5).
	WalkStep func(target Target, root OID, cursor OID, accepted int)

	// TunerAdjusted is called whenever the adaptive tuner changes
	// max-repetitions in flight (§4.6).
	TunerAdjusted func(target Target, oldSize, newSize int, reason string)

	// BatchComplete is called once per orchestrator batch item (§4.7).
	BatchComplete func(target Target, op Op, err error, d time.Duration)
}

// DefaultTrace logs only errors, via the standard library logger, matching
// the teacher's DefaultLoggingHooks.
var DefaultTrace = &Trace{
	Error: func(location string, target Target, err error) {
		log.Printf("snmp-error context:%s target:%s:%d err:%v", location, target.Host, target.Port, err)
	},
}

// MetricTrace additionally logs durations for connect/write/read.
var MetricTrace = &Trace{
	Error: DefaultTrace.Error,
	ConnectDone: func(target Target, err error, d time.Duration) {
		log.Printf("snmp-connect-done target:%s:%d err:%v took:%s", target.Host, target.Port, err, d)
	},
	WriteDone: func(target Target, b []byte, err error, d time.Duration) {
		log.Printf("snmp-write-done target:%s:%d err:%v took:%s", target.Host, target.Port, err, d)
	},
	ReadDone: func(target Target, b []byte, err error, d time.Duration) {
		log.Printf("snmp-read-done target:%s:%d err:%v took:%s", target.Host, target.Port, err, d)
	},
}

// DiagnosticTrace logs everything MetricTrace does plus hex dumps of the
// wire bytes, matching the teacher's DiagnosticLoggingHooks.
var DiagnosticTrace = &Trace{
	Error:       DefaultTrace.Error,
	ConnectDone: MetricTrace.ConnectDone,
	ConnectStart: func(target Target) {
		log.Printf("snmp-connect-start target:%s:%d", target.Host, target.Port)
	},
	WriteDone: func(target Target, b []byte, err error, d time.Duration) {
		log.Printf("snmp-write-done target:%s:%d err:%v took:%s data:%s", target.Host, target.Port, err, d, hex.EncodeToString(b))
	},
	ReadDone: func(from Target, b []byte, err error, d time.Duration) {
		log.Printf("snmp-read-done target:%s:%d err:%v took:%s data:%s", from.Host, from.Port, err, d, hex.EncodeToString(b))
	},
}

// NoOpTrace discards every hook. It is the base that mergo.Merge fills
// caller-supplied hooks over.
var NoOpTrace = &Trace{
	ConnectStart:      func(Target) {},
	ConnectDone:       func(Target, error, time.Duration) {},
	WriteDone:         func(Target, []byte, error, time.Duration) {},
	ReadDone:          func(Target, []byte, error, time.Duration) {},
	Error:             func(string, Target, error) {},
	RequestRegistered: func(int32, Op) {},
	ResponseMatched:   func(int32, time.Duration) {},
	RequestTimedOut:   func(int32) {},
	UnknownResponse:   func(int32) {},
	WalkStep:          func(Target, OID, OID, int) {},
	TunerAdjusted:     func(Target, int, int, string) {},
	BatchComplete:     func(Target, Op, error, time.Duration) {},
}
