package session

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/emersion/go-sasl"

	"github.com/fho/imapcodec/internal/command"
	"github.com/fho/imapcodec/internal/wire"
)

const (
	capLoginDisabled = "LOGINDISABLED"
	capSASLIR        = "SASL-IR"
)

// Login authenticates with the PLAIN SASL mechanism when the server
// announces it and falls back to the LOGIN command otherwise. The
// capabilities are refreshed afterwards.
func (c *Client) Login(ctx context.Context, user, password string) error {
	caps := c.Capabilities()

	if caps.HasValue("AUTH", sasl.Plain) {
		lines, err := c.Authenticate(ctx, sasl.NewPlainClient("", user, password))
		if err != nil {
			return err
		}

		return c.refreshCapabilities(ctx, lines)
	}

	if caps.Has(capLoginDisabled) {
		return ErrLoginDisabled
	}

	cmd, err := command.NewGeneric("LOGIN", wire.NewArgs().AString(user).AString(password))
	if err != nil {
		return err
	}

	lines, err := c.Execute(ctx, cmd)
	if err != nil {
		return err
	}

	return c.refreshCapabilities(ctx, lines)
}

// Authenticate runs the AUTHENTICATE command with saslClient. The initial
// response is sent with the command when the server supports SASL-IR.
func (c *Client) Authenticate(ctx context.Context, saslClient sasl.Client) ([]*wire.Response, error) {
	mech, ir, err := saslClient.Start()
	if err != nil {
		return nil, fmt.Errorf("starting sasl %s authentication failed: %w", mech, err)
	}

	args := wire.NewArgs().Atom(mech)
	if ir != nil && c.Capabilities().Has(capSASLIR) {
		args.Atom(encodeSASL(ir))
		ir = nil
	}

	cmd, err := command.NewGeneric("AUTHENTICATE", args)
	if err != nil {
		return nil, err
	}
	defer cmd.Release()

	b, err := cmd.Encode(nil)
	if err != nil {
		return nil, err
	}

	return c.run(ctx, cmd.Name(), b, func(l *wire.Response) ([]byte, error) {
		var resp []byte

		if ir != nil {
			resp, ir = ir, nil
		} else {
			challenge, err := base64.StdEncoding.DecodeString(l.Text())
			if err != nil {
				return nil, fmt.Errorf("malformed sasl challenge: %w", err)
			}

			resp, err = saslClient.Next(challenge)
			if err != nil {
				return nil, err
			}
		}

		return []byte(encodeSASL(resp) + "\r\n"), nil
	})
}

func encodeSASL(b []byte) string {
	if len(b) == 0 {
		return "="
	}
	return base64.StdEncoding.EncodeToString(b)
}
