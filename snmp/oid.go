package snmp

// OIDUtil is the §6.2 external collaborator: string<->list conversion,
// validity checking and prefix testing. The core's empty-OID policy
// (Normalize, on OID itself) is not delegated here; it is the core's own
// responsibility per §6.
type OIDUtil interface {
	Parse(s string) (OID, error)
	Format(o OID) string
	IsDescendant(o, root OID) bool
}

// defaultOIDUtil is the bundled implementation, backed by the OID methods
// in types.go.
type defaultOIDUtil struct{}

func (defaultOIDUtil) Parse(s string) (OID, error)   { return ParseOID(s) }
func (defaultOIDUtil) Format(o OID) string            { return o.String() }
func (defaultOIDUtil) IsDescendant(o, root OID) bool { return o.IsDescendantOf(root) }
