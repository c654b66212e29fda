package snmp

// Enriched is the standardized map shape produced by the §6.4
// enrichment formatter.
type Enriched struct {
	Name      string
	OIDString string
	OIDList   OID
	Type      DataType
	Value     interface{}
	Formatted string

	enriched bool // internal idempotence marker; never serialized
}

// Enricher is the §6.4 external collaborator. It must be idempotent:
// applying it twice to the same value must equal applying it once (§8).
type Enricher interface {
	Enrich(vb Varbind, includeNames, includeFormatted bool, mib MIBRegistry) Enriched
}

// defaultEnricher is the bundled implementation. It applies the
// includeNames/includeFormatted flags it is given; WalkEnriched passes
// Opts.IncludeNames/IncludeFormat, which are both off in a zero Opts, and
// does not enrich at all when both are off.
type defaultEnricher struct{}

func (defaultEnricher) Enrich(vb Varbind, includeNames, includeFormatted bool, mib MIBRegistry) Enriched {
	e := Enriched{
		OIDString: vb.OID.String(),
		OIDList:   vb.OID.Clone(),
		Type:      vb.TypedValue.Type,
		Value:     vb.TypedValue.Value,
		enriched:  true,
	}
	if includeNames {
		if name, ok := mib.ReverseLookup(vb.OID); ok {
			e.Name = name
		}
	}
	if includeFormatted {
		e.Formatted = formatTypedValue(vb.TypedValue)
	}
	return e
}

// EnrichAgain is idempotent: an already-enriched value is returned
// unchanged (§6.4, §8). Re-running the formatter on its own output is a
// caller convenience for layered enrichment.
func EnrichAgain(e Enriched, includeNames, includeFormatted bool, mib MIBRegistry) Enriched {
	if e.enriched {
		return e
	}
	return defaultEnricher{}.Enrich(Varbind{OID: e.OIDList, TypedValue: TypedValue{Type: e.Type, Value: e.Value}}, includeNames, includeFormatted, mib)
}

func formatTypedValue(tv TypedValue) string {
	switch tv.Type {
	case OctetString, Opaque:
		if b, ok := tv.Value.([]byte); ok {
			return string(b)
		}
	case ObjectIdentifier:
		if o, ok := tv.Value.(OID); ok {
			return o.String()
		}
	}
	return ""
}
