package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Pre-flight errors.
var (
	// ErrTargetUnreachable is returned when the target does not answer the
	// reachability probe.
	ErrTargetUnreachable = errors.New("failed to establish a new connection to target")

	// ErrProxyUnreachable is returned when a configured proxy does not answer.
	ErrProxyUnreachable = errors.New("proxy server is not responding")
)

// ErrorKind classifies a transport failure.
type ErrorKind int

const (
	// KindOther is any failure not covered by a more specific kind.
	KindOther ErrorKind = iota
	// KindTimeout is a connect, TLS handshake or response timeout.
	KindTimeout
	// KindRefused means the remote host refused the connection.
	KindRefused
	// KindDNS means the host name could not be resolved.
	KindDNS
	// KindTLS is a certificate or handshake failure.
	KindTLS
	// KindProxy means the proxy could not be reached or rejected the request.
	KindProxy
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRefused:
		return "connection refused"
	case KindDNS:
		return "dns"
	case KindTLS:
		return "tls"
	case KindProxy:
		return "proxy"
	default:
		return "transport"
	}
}

// TransportError is a request that produced no HTTP response.
type TransportError struct {
	Kind   ErrorKind
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s error: %v", e.Method, e.URL, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a timeout.
func (e *TransportError) Timeout() bool {
	return e.Kind == KindTimeout
}

// classify maps an error returned by http.Client.Do to a kind.
func classify(err error) ErrorKind {
	var (
		opErr       *net.OpError
		dnsErr      *net.DNSError
		netErr      net.Error
		certErr     *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		authErr     x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
	)

	switch {
	case errors.As(err, &opErr) && opErr.Op == "proxyconnect":
		return KindProxy
	case errors.As(err, &dnsErr):
		return KindDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		return KindRefused
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.As(err, &certErr), errors.As(err, &recordErr),
		errors.As(err, &authErr), errors.As(err, &hostnameErr):
		return KindTLS
	default:
		return KindOther
	}
}
