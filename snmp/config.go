package snmp

import (
	"time"

	"github.com/imdario/mergo"
)

// config holds the engine-wide defaults applied to every request unless a
// batch item overrides them (§4.7).
type config struct {
	network   string
	community string
	version   Version

	timeoutSingle time.Duration
	timeoutWalk   time.Duration
	timeoutTable  time.Duration
	retries       int

	maxRepetitions int
	nonRepeaters   int

	maxConcurrent int
	walkTaskCap   time.Duration

	bindAddr string
	bindPort int
	recvBuf  int

	trace *Trace

	codec    PDUCodec
	oidutil  OIDUtil
	mibDB    MIBRegistry
	enricher Enricher

	metrics *metricsCollector
}

// Option configures an Engine at construction time, the same functional
// options shape as the teacher's ManagerOption/SessionOption.
type Option func(*config)

// Timeout sets the per-PDU timeout used for single-value operations.
// Default: 10s (§4.7).
func Timeout(d time.Duration) Option {
	return func(c *config) { c.timeoutSingle = d }
}

// WalkTimeout sets the per-PDU timeout used while walking. Default: 30s.
func WalkTimeout(d time.Duration) Option {
	return func(c *config) { c.timeoutWalk = d }
}

// TableWalkTimeout sets the per-PDU timeout used while walking a table.
// Default: 50s.
func TableWalkTimeout(d time.Duration) Option {
	return func(c *config) { c.timeoutTable = d }
}

// WalkTaskCap bounds the total wall-clock time of a single walk,
// regardless of per-PDU timeouts. Default: 20 minutes (§4.7).
func WalkTaskCap(d time.Duration) Option {
	return func(c *config) { c.walkTaskCap = d }
}

// Retries sets the default retry count for timed-out requests. Default: 0.
func Retries(n int) Option {
	return func(c *config) { c.retries = n }
}

// Community sets the community string resolveOpts copies into an unset
// Opts.Community. Default: "public". Requests are encoded with
// Target.Community, which this option does not change.
func Community(s string) Option {
	return func(c *config) { c.community = s }
}

// WithVersion sets the version resolveOpts copies into an unset
// Opts.Version. Default: V2c. Requests are encoded and dispatched by
// Target.Version, which this option does not change.
func WithVersion(v Version) Option {
	return func(c *config) { c.version = v }
}

// MaxRepetitions sets the default GETBULK max-repetitions. Default: 10.
func MaxRepetitions(n int) Option {
	return func(c *config) { c.maxRepetitions = n }
}

// MaxConcurrent bounds the orchestrator's concurrent in-flight operations.
// Default: 10 (§4.7).
func MaxConcurrent(n int) Option {
	return func(c *config) { c.maxConcurrent = n }
}

// BindAddress sets the local address/port the shared socket binds to.
// Port 0 (the default) means an ephemeral port.
func BindAddress(addr string, port int) Option {
	return func(c *config) { c.bindAddr = addr; c.bindPort = port }
}

// ReceiveBufferSize overrides the UDP receive buffer size. Default: 4 MiB
// (§4.1, §5).
func ReceiveBufferSize(bytes int) Option {
	return func(c *config) { c.recvBuf = bytes }
}

// LoggingHooks installs a Trace. Any nil field falls back to a no-op via
// mergo.Merge, exactly as the teacher's factories do. Default:
// DefaultTrace.
func LoggingHooks(t *Trace) Option {
	return func(c *config) { c.trace = t }
}

// WithCodec overrides the PDU codec external collaborator (§6.1). Default:
// the bundled BER codec.
func WithCodec(codec PDUCodec) Option {
	return func(c *config) { c.codec = codec }
}

// WithOIDUtil overrides the OID utility external collaborator (§6.2).
func WithOIDUtil(u OIDUtil) Option {
	return func(c *config) { c.oidutil = u }
}

// WithMIBRegistry overrides the MIB name registry external collaborator
// (§6.3). Default: a registry that always misses, falling back to numeric
// parsing.
func WithMIBRegistry(r MIBRegistry) Option {
	return func(c *config) { c.mibDB = r }
}

// WithEnricher overrides the enrichment formatter external collaborator
// (§6.4). Default: the bundled enricher. It runs only for walks whose Opts
// set IncludeNames or IncludeFormat; both are off in a zero Opts.
func WithEnricher(e Enricher) Option {
	return func(c *config) { c.enricher = e }
}

func defaultConfig() config {
	return config{
		network:        "udp",
		community:      "public",
		version:        V2c,
		timeoutSingle:  10 * time.Second,
		timeoutWalk:    30 * time.Second,
		timeoutTable:   50 * time.Second,
		retries:        0,
		maxRepetitions: 10,
		nonRepeaters:   0,
		maxConcurrent:  10,
		walkTaskCap:    20 * time.Minute,
		bindPort:       0,
		recvBuf:        4 * 1024 * 1024,
		trace:          DefaultTrace,
		codec:          newBERCodec(),
		oidutil:        defaultOIDUtil{},
		mibDB:          noopMIBRegistry{},
		enricher:       defaultEnricher{},
		metrics:        newMetricsCollector(),
	}
}

func buildConfig(opts []Option) *config {
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	merged := &Trace{}
	*merged = *c.trace
	_ = mergo.Merge(merged, NoOpTrace)
	c.trace = merged
	return &c
}

// timeoutFor resolves the per-PDU timeout for an operation kind, applying
// the §4.7 defaults unless Opts overrides it.
func (c *config) timeoutFor(op Op, o Opts) time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	switch op {
	case OpWalkTable:
		return c.timeoutTable
	case OpWalk:
		return c.timeoutWalk
	default:
		return c.timeoutSingle
	}
}

func (c *config) resolveOpts(o Opts) Opts {
	if o.Retries == 0 {
		o.Retries = c.retries
	}
	if o.MaxRepetitions == 0 {
		o.MaxRepetitions = c.maxRepetitions
	}
	if o.Community == "" {
		o.Community = c.community
	}
	if o.Version == VersionUnspecified {
		o.Version = c.version
	}
	if o.MaxEntries == 0 {
		o.MaxEntries = defaultWalkBudget
	}
	return o
}
