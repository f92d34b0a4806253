// Package neterr classifies network errors.
package neterr

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// IsRetryableError reports whether err is a temporary network error,
// establishing a new connection might succeed.
func IsRetryableError(err error) bool {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, net.ErrClosed):
		return true
	}

	// name resolution fails temporarily while the network comes up
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
