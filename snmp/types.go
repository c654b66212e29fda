package snmp

import (
	"strconv"
	"strings"
	"time"
)

// DataType tags the wire type carried by a Varbind. The core never infers
// or drops this information: a decoded varbind with no type fails with
// ErrTypeInformationLost, and the bundled codec rejects an unrecognised
// wire tag with ErrDecodeFailed.
type DataType int

const (
	Integer DataType = iota
	OctetString
	ObjectIdentifier
	Counter32
	Counter64
	Gauge32
	TimeTicks
	IPAddress
	Opaque
	Null

	// Exception markers, delivered as the value of a varbind rather than
	// as a protocol error (§3, §7).
	NoSuchObject
	NoSuchInstance
	EndOfMIBView
)

// IsException reports whether the data type is one of the three SNMPv2c
// exception markers.
func (d DataType) IsException() bool {
	return d == NoSuchObject || d == NoSuchInstance || d == EndOfMIBView
}

func (d DataType) String() string {
	switch d {
	case Integer:
		return "integer"
	case OctetString:
		return "octet_string"
	case ObjectIdentifier:
		return "object_identifier"
	case Counter32:
		return "counter32"
	case Counter64:
		return "counter64"
	case Gauge32:
		return "gauge32"
	case TimeTicks:
		return "timeticks"
	case IPAddress:
		return "ip_address"
	case Opaque:
		return "opaque"
	case Null:
		return "null"
	case NoSuchObject:
		return "no_such_object"
	case NoSuchInstance:
		return "no_such_instance"
	case EndOfMIBView:
		return "end_of_mib_view"
	default:
		return "unknown"
	}
}

// OID is an ordered sequence of non-negative integers, the authoritative
// in-core form of an object identifier (§3). String form is used only at
// boundaries (codec, logging, caller-supplied targets).
type OID []int

// normalizedRoot is what an empty or single-element OID is normalized to
// before transmission (§3, §8 boundary behaviors).
var normalizedRoot = OID{1, 3}

// Normalize applies the core's empty/degenerate-OID policy. It never
// mutates the receiver.
func (o OID) Normalize() OID {
	if len(o) == 0 || len(o) == 1 {
		return append(OID(nil), normalizedRoot...)
	}
	return o
}

// String renders the dotted form, e.g. "1.3.6.1.2.1.1.1.0".
func (o OID) String() string {
	parts := make([]string, len(o))
	for i, v := range o {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ".")
}

// Equal reports whether two OIDs have identical components.
func (o OID) Equal(other OID) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a defensive copy.
func (o OID) Clone() OID {
	c := make(OID, len(o))
	copy(c, o)
	return c
}

// IsDescendantOf implements the core's scope test (§4.5): X is a
// descendant of R iff the first len(R) elements of X equal R and
// len(X) > len(R), or X equals R exactly (the root object itself is
// accepted). The empty root accepts everything.
func (o OID) IsDescendantOf(root OID) bool {
	if len(root) == 0 {
		return true
	}
	if len(o) < len(root) {
		return false
	}
	for i := range root {
		if o[i] != root[i] {
			return false
		}
	}
	return true
}

// Compare returns -1, 0 or 1 using lexicographic ordering over the integer
// components, matching SNMP's notion of OID ordering for walk progress
// checks.
func (o OID) Compare(other OID) int {
	n := len(o)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if o[i] != other[i] {
			if o[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(o) < len(other):
		return -1
	case len(o) > len(other):
		return 1
	default:
		return 0
	}
}

// ParseOID converts dotted-string form into the authoritative integer-list
// form. Leading/trailing dots are tolerated. Returns ErrInvalidOID on any
// non-numeric or empty component.
func ParseOID(s string) (OID, error) {
	s = strings.Trim(s, ".")
	if s == "" {
		return OID{}, nil
	}
	parts := strings.Split(s, ".")
	out := make(OID, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return nil, wrapKind(ErrInvalidOID, "parse oid %q", s)
		}
		out[i] = v
	}
	return out, nil
}

// TypedValue pairs an SNMP data type with its decoded payload. Value's Go
// type depends on Type: []byte for OctetString/Opaque/IPAddress, int64 for
// Integer, uint32 for Counter32/Gauge32/TimeTicks, uint64 for Counter64,
// OID for ObjectIdentifier, nil for Null and the exception markers.
type TypedValue struct {
	Type  DataType
	Value interface{}
}

// Varbind is the (oid, type, value) triple that flows through every
// operation in the core (§3).
type Varbind struct {
	OID        OID
	TypedValue TypedValue
}

// Version identifies the SNMP protocol version used for a request.
type Version int

const (
	// VersionUnspecified means "use the engine/target default"; it is
	// the zero value so a bare Opts{} never silently forces v1.
	VersionUnspecified Version = iota
	V1
	V2c
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2c:
		return "v2c"
	default:
		return "unspecified"
	}
}

// Target identifies the device an operation is addressed to (§3).
type Target struct {
	Host      string
	Port      int
	Community string
	Version   Version
}

// DefaultPort is the well-known SNMP agent port.
const DefaultPort = 161

// ParseTarget accepts either a bare host or "host:port" and fills in the
// community/version/port defaults. Port defaults to DefaultPort; an
// explicit invalid port fails with ErrInvalidPort.
func ParseTarget(s string, community string, version Version) (Target, error) {
	host, port := s, DefaultPort
	if i := strings.LastIndex(s, ":"); i >= 0 {
		host = s[:i]
		p, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return Target{}, wrapKind(ErrInvalidPort, "parse target %q", s)
		}
		port = p
	}
	if err := validatePort(port); err != nil {
		return Target{}, err
	}
	if community == "" {
		community = "public"
	}
	if version == VersionUnspecified {
		version = V2c
	}
	return Target{Host: host, Port: port, Community: community, Version: version}, nil
}

func validatePort(port int) error {
	if port == 0 || (port >= 1 && port <= 65535) {
		return nil
	}
	return wrapKind(ErrInvalidPort, "port %d out of range", port)
}

// Op enumerates the request kinds a Request/batch item may carry (§3).
type Op int

const (
	OpGet Op = iota
	OpGetNext
	OpGetBulk
	OpSet
	OpWalk
	OpWalkTable
)

// Opts carries the per-request knobs referenced throughout §3/§4.
type Opts struct {
	Timeout        time.Duration
	Retries        int
	MaxRepetitions int
	NonRepeaters   int
	Community      string
	Version        Version
	MaxEntries     int // walk budget; 0 means "use the engine's default budget"
	IncludeNames   bool
	IncludeFormat  bool
}
