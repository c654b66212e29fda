package snmp

import (
	"encoding/asn1"
	"strconv"

	"github.com/geoffgarside/ber"
	"github.com/pkg/errors"
)

// PDUCodec is the §6.1 external collaborator: building/encoding GET,
// GETNEXT, GETBULK, SET PDUs for v1/v2c, and decoding a received datagram
// into a DecodedPDU. It is authoritative for the wire format; the core
// treats it as a black box.
type PDUCodec interface {
	// Encode builds the wire bytes for a request carrying requestID.
	Encode(target Target, requestID int32, pduType PDUType, nonRepeaters, maxRepetitions int, oids []OID, setValues []TypedValue) ([]byte, error)

	// Decode parses a received datagram into its request ID, error
	// status/index and typed varbind list.
	Decode(data []byte) (*DecodedPDU, error)
}

// PDUType enumerates the SNMP message types the codec must be able to
// build (§6).
type PDUType byte

const (
	PDUGet      PDUType = 0xA0
	PDUGetNext  PDUType = 0xA1
	PDUResponse PDUType = 0xA2
	PDUSet      PDUType = 0xA3
	PDUTrap     PDUType = 0xA4
	PDUGetBulk  PDUType = 0xA5
	PDUInform   PDUType = 0xA6
	PDUTrapV2   PDUType = 0xA7
)

// DecodedPDU is the §6.1 decode result: {request_id, error_status,
// error_index, varbinds}, each varbind carrying its type tag.
type DecodedPDU struct {
	RequestID   int32
	ErrorStatus int
	ErrorIndex  int
	Varbinds    []Varbind
}

// --- bundled BER implementation, grounded on the teacher's
// snmp/session.go (buildPacket/parseResponse) and snmp/types.go
// (unmarshalVariable family). ---

type berCodec struct{}

func newBERCodec() PDUCodec { return berCodec{} }

// rawPDU/rawVarbind/packet mirror the teacher's wire structs exactly: BER
// unmarshalling is done in stages because geoffgarside/ber is unaware of
// the SNMP message-type tags and per-type application tags.
type rawPDU struct {
	RequestID   int32
	ErrorStatus int
	ErrorIndex  int
	VarbindList []rawVarbind
}

type rawVarbind struct {
	OID   asn1.ObjectIdentifier
	Value asn1.RawValue
}

type wirePacket struct {
	Version   int
	Community []byte
	RawPdu    asn1.RawValue
}

func (berCodec) Encode(target Target, requestID int32, pduType PDUType, nonRepeaters, maxRepetitions int, oids []OID, setValues []TypedValue) ([]byte, error) {
	vbl := make([]rawVarbind, len(oids))
	for i, o := range oids {
		vbl[i].OID = asn1.ObjectIdentifier(o)
		if pduType == PDUSet && i < len(setValues) {
			raw, err := marshalVariable(setValues[i])
			if err != nil {
				return nil, wrapErr(ErrInvalidData, err, "marshal set value")
			}
			vbl[i].Value = raw
		} else {
			vbl[i].Value = asn1.NullRawValue
		}
	}

	pdu := rawPDU{RequestID: requestID, VarbindList: vbl}
	if pduType == PDUGetBulk {
		pdu.ErrorStatus = nonRepeaters
		pdu.ErrorIndex = maxRepetitions
	}

	b, err := ber.Marshal(pdu)
	if err != nil {
		return nil, errors.Wrap(err, "marshal pdu")
	}
	b[0] = byte(pduType)

	wireVersion := 0
	if target.Version == V2c {
		wireVersion = 1
	}
	p := wirePacket{
		Version:   wireVersion,
		Community: []byte(target.Community),
		RawPdu:    asn1.RawValue{FullBytes: b},
	}

	out, err := ber.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "marshal packet")
	}
	return out, nil
}

func (berCodec) Decode(data []byte) (*DecodedPDU, error) {
	pkt := &wirePacket{}
	if _, err := ber.Unmarshal(data, pkt); err != nil {
		return nil, wrapErr(ErrDecodeFailed, err, "unmarshal packet")
	}
	if len(pkt.RawPdu.FullBytes) == 0 {
		return nil, wrapKind(ErrDecodeFailed, "empty pdu in packet")
	}

	// Replace the SNMP message-type tag with the generic ASN1 SEQUENCE
	// tag so the BER library can unmarshal the PDU structure.
	pkt.RawPdu.FullBytes[0] = 0x30

	raw := &rawPDU{}
	if _, err := ber.Unmarshal(pkt.RawPdu.FullBytes, raw); err != nil {
		return nil, wrapErr(ErrDecodeFailed, err, "unmarshal pdu")
	}

	out := &DecodedPDU{
		RequestID:   raw.RequestID,
		ErrorStatus: raw.ErrorStatus,
		ErrorIndex:  raw.ErrorIndex,
		Varbinds:    make([]Varbind, len(raw.VarbindList)),
	}
	for i := range raw.VarbindList {
		tv, err := unmarshalVariable(&raw.VarbindList[i].Value)
		if err != nil {
			return nil, wrapErr(ErrDecodeFailed, err, "unmarshal varbind value")
		}
		out.Varbinds[i] = Varbind{
			OID:        OID(raw.VarbindList[i].OID),
			TypedValue: *tv,
		}
	}
	return out, nil
}

// ASN.1/BER application-class tags for SNMP data types (RFC 1155 §3.2.5,
// RFC 1905 exception markers), masked to the tag-number bits as the
// teacher's types.go does.
const tagMask = 0x1f

const (
	ipTag        = 0x40 & tagMask
	counter32Tag = 0x41 & tagMask
	gauge32Tag   = 0x42 & tagMask
	timeTag      = 0x43 & tagMask
	opaqueTag    = 0x44 & tagMask
	counter64Tag = 0x46 & tagMask

	noSuchObjectTag   = 0x80 & tagMask
	noSuchInstanceTag = 0x81 & tagMask
	endOfMibTag       = 0x82 & tagMask
)

func unmarshalVariable(raw *asn1.RawValue) (*TypedValue, error) {
	switch raw.Class {
	case asn1.ClassUniversal:
		switch raw.Tag {
		case asn1.TagInteger:
			return unmarshalInteger(raw, Integer)
		case asn1.TagOctetString:
			return unmarshalOctetString(raw, OctetString)
		case asn1.TagOID:
			return unmarshalOIDValue(raw)
		case asn1.TagNull:
			return &TypedValue{Type: Null}, nil
		}
	case asn1.ClassApplication:
		switch raw.Tag {
		case ipTag:
			return unmarshalOctetString(raw, IPAddress)
		case counter32Tag:
			return unmarshalInteger(raw, Counter32)
		case counter64Tag:
			return unmarshalInteger(raw, Counter64)
		case gauge32Tag:
			return unmarshalInteger(raw, Gauge32)
		case timeTag:
			return unmarshalInteger(raw, TimeTicks)
		case opaqueTag:
			return unmarshalOctetString(raw, Opaque)
		}
	case asn1.ClassContextSpecific:
		switch raw.Tag {
		case endOfMibTag:
			return &TypedValue{Type: EndOfMIBView}, nil
		case noSuchInstanceTag:
			return &TypedValue{Type: NoSuchInstance}, nil
		case noSuchObjectTag:
			return &TypedValue{Type: NoSuchObject}, nil
		}
	}
	return nil, errors.Errorf("unsupported class %d tag %d", raw.Class, raw.Tag)
}

func unmarshalInteger(raw *asn1.RawValue, dataType DataType) (*TypedValue, error) {
	var value int64
	raw.FullBytes[0] = asn1.TagInteger
	if _, err := ber.Unmarshal(raw.FullBytes, &value); err != nil {
		return nil, err
	}
	return &TypedValue{Type: dataType, Value: integerValue(value, dataType)}, nil
}

func integerValue(v int64, dataType DataType) interface{} {
	switch dataType {
	case Counter32, Gauge32, TimeTicks:
		return uint32(v)
	case Counter64:
		return uint64(v)
	default:
		return v
	}
}

func unmarshalOctetString(raw *asn1.RawValue, dataType DataType) (*TypedValue, error) {
	value := &TypedValue{Type: dataType, Value: []byte{}}
	raw.FullBytes[0] = asn1.TagOctetString
	if _, err := ber.Unmarshal(raw.FullBytes, &value.Value); err != nil {
		return nil, err
	}
	return value, nil
}

func unmarshalOIDValue(raw *asn1.RawValue) (*TypedValue, error) {
	var value interface{}
	if _, err := ber.Unmarshal(raw.FullBytes, &value); err != nil {
		return nil, err
	}
	ints, ok := value.([]int)
	if !ok {
		return nil, errors.New("oid value not a int list")
	}
	return &TypedValue{Type: ObjectIdentifier, Value: OID(ints)}, nil
}

func marshalVariable(tv TypedValue) (asn1.RawValue, error) {
	switch tv.Type {
	case Integer:
		b, err := ber.Marshal(tv.Value)
		if err != nil {
			return asn1.RawValue{}, err
		}
		return asn1.RawValue{FullBytes: b}, nil
	case OctetString:
		b, err := ber.Marshal(tv.Value)
		if err != nil {
			return asn1.RawValue{}, err
		}
		return asn1.RawValue{FullBytes: b}, nil
	case ObjectIdentifier:
		oid, _ := tv.Value.(OID)
		b, err := ber.Marshal(asn1.ObjectIdentifier(oid))
		if err != nil {
			return asn1.RawValue{}, err
		}
		return asn1.RawValue{FullBytes: b}, nil
	case Null:
		return asn1.NullRawValue, nil
	default:
		return asn1.RawValue{}, errors.Errorf("unsupported set value type %q", strconv.Itoa(int(tv.Type)))
	}
}
