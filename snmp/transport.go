package snmp

import (
	"context"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DatagramHandler receives a decoded-free raw datagram from the socket's
// receive loop. The Correlator registers one of these to learn about
// inbound responses (§4.1, §4.3).
type DatagramHandler func(from *net.UDPAddr, data []byte)

// Transport owns one shared UDP socket, sending encoded PDUs and
// dispatching received datagrams to a handler (C1, §4.1). It never
// retries; retries are the PDU Session's responsibility.
type Transport struct {
	conn    *net.UDPConn
	trace   *Trace
	closing chan struct{}
	closed  bool
}

// recommendedMaxPayload is the suggested maximum SNMP datagram size
// (§4.1); larger payloads are accepted but logged.
const recommendedMaxPayload = 1472

// maxDatagramBuffer is sized generously above recommendedMaxPayload so
// oversized agent responses are still read in full rather than
// truncated.
const maxDatagramBuffer = 65535

// NewTransport opens the shared socket used for every request issued
// through an Engine. bindAddr/bindPort of ("", 0) binds an ephemeral
// client socket. recvBuf requests the OS receive buffer size; if setting
// it fails, the error is traced via Trace.Error and the transport proceeds
// rather than failing startup (§9 buffer sizing policy). The size the
// kernel actually grants is not read back, so a silently reduced buffer is
// not reported.
func NewTransport(bindAddr string, bindPort int, recvBuf int, trace *Trace) (*Transport, error) {
	if bindPort != 0 {
		if err := validatePort(bindPort); err != nil {
			return nil, err
		}
	}
	conn, err := listenUDPReusable(bindAddr, bindPort)
	if err != nil {
		return nil, wrapErr(ErrSocketOpenFailed, err, "listen udp")
	}
	if recvBuf <= 0 {
		recvBuf = 4 * 1024 * 1024
	}
	if err := conn.SetReadBuffer(recvBuf); err != nil {
		trace.Error("transport.SetReadBuffer", Target{}, err)
	}
	return &Transport{conn: conn, trace: trace, closing: make(chan struct{})}, nil
}

// LocalAddr returns the address the shared socket is bound to.
func (t *Transport) LocalAddr() net.Addr { return t.conn.LocalAddr() }

// Send writes bytes to (host, port). port must be in 1..65535; data must
// be non-empty.
func (t *Transport) Send(host string, port int, data []byte) error {
	if port == 0 {
		return wrapKind(ErrInvalidPort, "port %d out of range", port)
	}
	if err := validatePort(port); err != nil {
		return err
	}
	if len(data) == 0 {
		return wrapKind(ErrInvalidData, "empty payload")
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return wrapErr(ErrHostnameResolutionFailed, err, "resolve "+host)
	}
	begin := time.Now()
	_, err = t.conn.WriteToUDP(data, addr)
	t.trace.WriteDone(Target{Host: host, Port: port}, data, err, time.Since(begin))
	return err
}

// Serve runs the receive loop, dispatching each datagram to handle. It
// blocks until the transport is closed; callers run it in its own
// goroutine, mirroring the receiver-goroutine pattern used for UDP
// servers elsewhere in the pack.
func (t *Transport) Serve(handle DatagramHandler) {
	buf := make([]byte, maxDatagramBuffer)
	for {
		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.closing:
				return
			default:
			}
			if isClosedConnErr(err) {
				return
			}
			t.trace.Error("transport.Serve", Target{}, err)
			continue
		}
		if n > recommendedMaxPayload {
			t.trace.Error("transport.Serve", Target{Host: from.IP.String(), Port: from.Port},
				errors.Errorf("oversized datagram: %d bytes", n))
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		handle(from, payload)
	}
}

// Close releases the shared socket. Safe to call once; subsequent calls
// are no-ops.
func (t *Transport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.closing)
	return t.conn.Close()
}

// SendAndWait is the one-shot convenience path used for discovery-style
// exchanges outside the correlator (§4.1): it opens an ephemeral client
// socket, sends once, waits up to timeout for a single reply, and always
// closes the socket.
func SendAndWait(host string, port int, data []byte, timeout time.Duration) ([]byte, error) {
	if err := validatePort(port); err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout("udp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return nil, wrapErr(ErrHostnameResolutionFailed, err, "dial "+host)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	if _, err := conn.Write(data); err != nil {
		return nil, err
	}
	buf := make([]byte, maxDatagramBuffer)
	n, err := conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, wrapKind(ErrTimeout, "send_and_wait to %s:%d", host, port)
		}
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

func isClosedConnErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// listenUDPReusable opens the shared socket with SO_REUSEPORT set, so a
// fixed client bind port can be reopened quickly after a restart instead
// of failing with "address already in use" while the old socket lingers
// in TIME_WAIT.
func listenUDPReusable(bindAddr string, bindPort int) (*net.UDPConn, error) {
	addr := net.JoinHostPort(bindAddr, strconv.Itoa(bindPort))
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp", addr)
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}

