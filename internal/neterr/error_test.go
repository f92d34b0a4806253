package neterr

import (
	"errors"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/fho/imapcodec/internal/testutils/assert"
)

func TestIsRetryableError_ConnectionRefused(t *testing.T) {
	_, err := net.Dial("tcp", "localhost:59123") // port where nothing is listening
	t.Logf("error: %v", err)
	assert.Error(t, err)
	assert.Equal(t, true, IsRetryableError(err))
}

func TestIsRetryableError_ClosedConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err)
	defer ln.Close()

	conn, err := net.Dial("tcp", ln.Addr().String())
	assert.NoError(t, err)

	conn.Close()

	_, err = conn.Write([]byte("test"))
	t.Logf("error: %v", err)
	assert.Error(t, err)
	assert.Equal(t, true, IsRetryableError(err))
}

func TestIsRetryableError_Timeout(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	assert.NoError(t, c1.SetReadDeadline(time.Now().Add(-time.Second)))

	_, err := c1.Read(make([]byte, 1))
	t.Logf("error: %v", err)
	assert.Error(t, err)
	assert.Equal(t, true, IsRetryableError(err))
}

func TestIsRetryableError_DNS(t *testing.T) {
	temporary := &net.DNSError{Err: "server misbehaving", Name: "imap.example.com", IsTemporary: true}
	assert.Equal(t, true, IsRetryableError(fmt.Errorf("dial: %w", temporary)))

	notFound := &net.DNSError{Err: "no such host", Name: "imap.example.invalid", IsNotFound: true}
	assert.Equal(t, false, IsRetryableError(notFound))
}

func TestIsRetryableError_NotRetryable(t *testing.T) {
	assert.Equal(t, false, IsRetryableError(errors.New("server does not support STARTTLS")))
	assert.Equal(t, false, IsRetryableError(io.EOF))
}
