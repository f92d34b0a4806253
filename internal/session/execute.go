package session

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fho/imapcodec/internal/command"
	"github.com/fho/imapcodec/internal/wire"
)

// continuationFunc answers a continuation request of the server that is not
// caused by a synchronizing literal, e.g. a SASL challenge. The returned
// data is sent as is.
type continuationFunc func(*wire.Response) ([]byte, error)

// Execute encodes cmd for the capabilities of the server, sends it and
// returns all response lines that were received until and including the
// tagged completion. cmd is released afterwards.
//
// When the server completes the command with NO or BAD, the lines are
// returned together with a *CommandError. On network errors and when ctx is
// done before the completion was received the connection is closed.
func (c *Client) Execute(ctx context.Context, cmd command.Command) ([]*wire.Response, error) {
	defer cmd.Release()

	b, err := cmd.Encode(c.Capabilities().CapSet())
	if err != nil {
		return nil, err
	}

	return c.run(ctx, cmd.Name(), b, nil)
}

func (c *Client) run(ctx context.Context, name string, b []byte, onContinue continuationFunc) ([]*wire.Response, error) {
	start := time.Now()
	status := statusError
	defer func() {
		metricCommands.WithLabelValues(name, status).Inc()
		metricCommandDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	stop := c.watch(ctx)
	defer stop()

	tag := c.nextTag()
	logger := c.logger.With("tag", tag, "command", name)

	parts := splitSyncLiterals(b)
	if err := c.write([]byte(tag+" "), parts[0]); err != nil {
		return nil, c.ioError(ctx, "sending command failed", err)
	}
	parts = parts[1:]

	var lines []*wire.Response
	var contErr error

	for {
		l, err := c.readResponse()
		if err != nil {
			return lines, c.ioError(ctx, "reading response failed", err)
		}

		if l.IsContinuation() {
			var data []byte

			switch {
			case len(parts) > 0:
				data, parts = parts[0], parts[1:]
			case onContinue != nil && contErr == nil:
				data, contErr = onContinue(l)
				if contErr != nil {
					// aborts the exchange, the server answers with BAD
					data = []byte("*\r\n")
				}
			default:
				c.closeLocked()
				return lines, fmt.Errorf("unexpected continuation request: %q", l)
			}

			if err := c.write(data); err != nil {
				return lines, c.ioError(ctx, "sending command data failed", err)
			}

			continue
		}

		lines = append(lines, l)

		if l.Tag() != tag {
			if l.IsBYE() {
				logger.Warn("server is closing the connection", "text", l.Text())
			}
			continue
		}

		status = string(l.Status())
		logger.Debug("command completed", "status", status, "lines", len(lines))

		if contErr != nil {
			return lines, contErr
		}

		switch l.Status() {
		case wire.StatusOK:
			return lines, nil
		case wire.StatusNO, wire.StatusBAD:
			return lines, newCommandError(l)
		default:
			status = statusError
			return lines, fmt.Errorf("invalid command completion: %q", l)
		}
	}
}

// watch interrupts pending reads and writes when ctx is done.
func (c *Client) watch(ctx context.Context) (stop func()) {
	conn := c.conn

	_ = conn.SetDeadline(time.Time{})

	stopAfter := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})

	return func() { stopAfter() }
}

// ioError closes the connection, after a failed read or write the
// protocol state is unknown.
func (c *Client) ioError(ctx context.Context, msg string, err error) error {
	c.closeLocked()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w: %w", msg, ctxErr, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}

func (c *Client) closeLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) nextTag() string {
	c.tagSeq++
	return fmt.Sprintf("A%04d", c.tagSeq)
}

func (c *Client) write(data ...[]byte) error {
	for _, d := range data {
		if _, err := c.bw.Write(d); err != nil {
			return err
		}
	}

	return c.bw.Flush()
}

func (c *Client) readResponse() (*wire.Response, error) {
	b, err := wire.ReadLine(c.br)
	if err != nil {
		return nil, err
	}

	return wire.ParseResponse(b)
}

// splitSyncLiterals splits an encoded command behind every synchronizing
// literal announcement ("{n}\r\n"). Each part except the first may only be
// sent after the server requested it with a continuation. Literal data is
// skipped, it is never interpreted as an announcement.
func splitSyncLiterals(b []byte) [][]byte {
	var parts [][]byte

	start := 0
	for i := 0; i < len(b); {
		if b[i] != '{' {
			i++
			continue
		}

		size, hdrLen, sync, ok := literalHeader(b[i:])
		if !ok {
			i++
			continue
		}

		end := i + hdrLen
		if sync {
			parts = append(parts, b[start:end])
			start = end
		}

		i = min(end+size, len(b))
	}

	return append(parts, b[start:])
}

// literalHeader parses "{n}\r\n" or "{n+}\r\n" at the start of b.
func literalHeader(b []byte) (size, hdrLen int, sync, ok bool) {
	j := 1
	for j < len(b) && b[j] >= '0' && b[j] <= '9' {
		j++
	}
	if j == 1 {
		return 0, 0, false, false
	}

	size, err := strconv.Atoi(string(b[1:j]))
	if err != nil {
		return 0, 0, false, false
	}

	sync = true
	if j < len(b) && b[j] == '+' {
		sync = false
		j++
	}

	if !bytes.HasPrefix(b[j:], []byte("}\r\n")) {
		return 0, 0, false, false
	}

	return size, j + 3, sync, true
}
