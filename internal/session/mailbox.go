package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/fho/imapcodec/internal/command"
	"github.com/fho/imapcodec/internal/response"
	"github.com/fho/imapcodec/internal/wire"
)

type SelectOptions struct {
	// ReadOnly sends EXAMINE instead of SELECT.
	ReadOnly bool
	// CondStore enables CONDSTORE for the mailbox.
	CondStore bool
}

// Select opens mailbox and returns its state. With CONDSTORE the highest
// mod-sequence is part of the result.
func (c *Client) Select(ctx context.Context, mailbox string, opts *SelectOptions) (*response.ExtensionMailboxInfo, error) {
	if opts == nil {
		opts = &SelectOptions{}
	}

	name := "SELECT"
	if opts.ReadOnly {
		name = "EXAMINE"
	}

	args := wire.NewArgs().Mailbox(mailbox)
	if opts.CondStore {
		args.List(wire.NewArgs().Atom("CONDSTORE"))
	}

	cmd, err := command.NewGeneric(name, args)
	if err != nil {
		return nil, err
	}

	lines, err := c.Execute(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("selecting mailbox %q failed: %w", mailbox, err)
	}

	info, err := response.DecodeExtensionMailboxInfo(lines)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("selected mailbox",
		"mailbox", mailbox,
		"exists", info.Exists,
		"uidvalidity", info.UIDValidity,
		"mode", info.Mode,
	)

	return info, nil
}

// Logout ends the session and closes the connection.
func (c *Client) Logout(ctx context.Context) error {
	cmd, err := command.NewGeneric("LOGOUT", nil)
	if err != nil {
		return err
	}

	_, err = c.Execute(ctx, cmd)

	return errors.Join(err, c.Close())
}
