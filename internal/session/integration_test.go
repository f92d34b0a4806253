package session

import (
	"slices"
	"testing"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/command"
	"github.com/fho/imapcodec/internal/log"
	"github.com/fho/imapcodec/internal/response"
	"github.com/fho/imapcodec/internal/search"
	"github.com/fho/imapcodec/internal/seqset"
	"github.com/fho/imapcodec/internal/testutils/assert"
	"github.com/fho/imapcodec/internal/testutils/imapserver"
	"github.com/fho/imapcodec/internal/testutils/mail"
	"github.com/fho/imapcodec/internal/wire"
)

func connectTestClient(t *testing.T, srv *imapserver.Server) *Client {
	clt := NewClient(&Config{
		Address:       srv.ListenAddr,
		User:          srv.UserName,
		Password:      srv.UserPasswd,
		AllowInsecure: true,
		Logger:        log.SlogTestLogger(t),
		LogIMAPData:   true,
	})

	assert.NoError(t, clt.Connect(t.Context()))
	t.Cleanup(func() { _ = clt.Close() })

	return clt
}

func seedInbox(t *testing.T, srv *imapserver.Server) {
	for _, subject := range []string{"first", "second", "third"} {
		var flags []imap.Flag
		if subject == "second" {
			flags = append(flags, imap.FlagFlagged)
		}

		msg := mail.New(t, &mail.Message{Subject: subject, Body: "hello " + subject + "\r\n"})
		srv.Append(t, srv.InboxMailbox, msg, flags...)
	}
}

func TestSessionConnectFailsWithWrongPassword(t *testing.T) {
	srv := imapserver.StartServer(t)

	clt := NewClient(&Config{
		Address:       srv.ListenAddr,
		User:          srv.UserName,
		Password:      "wrong",
		AllowInsecure: true,
		Logger:        log.SlogTestLogger(t),
	})

	assert.Error(t, clt.Connect(t.Context()))
}

func TestSessionRequiresTLS(t *testing.T) {
	srv := imapserver.StartServer(t)

	clt := NewClient(&Config{
		Address: srv.ListenAddr,
		Logger:  log.SlogTestLogger(t),
	})

	err := clt.Connect(t.Context())
	assert.Error(t, err)
}

func TestSessionSelectFetchStoreSearch(t *testing.T) {
	srv := imapserver.StartServer(t)
	seedInbox(t, srv)

	clt := connectTestClient(t, srv)
	ctx := t.Context()

	info, err := clt.Select(ctx, srv.InboxMailbox, nil)
	assert.NoError(t, err)
	assert.Equal(t, uint32(3), info.Exists)
	assert.Equal(t, response.AccessModeReadWrite, info.Mode)
	assert.NotEqual(t, uint32(0), info.UIDValidity)

	fetch, err := command.NewFetch(&command.FetchOptions{
		UID:     true,
		SetText: "1:*",
		Items:   "UID FLAGS RFC822.SIZE BODY.PEEK[HEADER.FIELDS (SUBJECT)]",
	})
	assert.NoError(t, err)

	lines, err := clt.Execute(ctx, fetch)
	assert.NoError(t, err)

	fetched, err := response.DecodeFetch(lines)
	assert.NoError(t, err)

	recs := fetched.FetchRecords()
	assert.Equal(t, 3, len(recs))
	assert.Equal(t, true, slices.Contains(recs[1].Flags(), imap.FlagFlagged))

	hdr := recs[2].BodySection("HEADER.FIELDS (SUBJECT)")
	assert.Equal(t, true, hdr != nil)
	assert.Contains(t, string(hdr.Data), "third")

	searchCmd, err := command.NewSearch(&command.SearchOptions{
		UID:      true,
		Criteria: search.Flags{Flags: []imap.Flag{imap.FlagFlagged}, Set: true},
	})
	assert.NoError(t, err)

	lines, err = clt.Execute(ctx, searchCmd)
	assert.NoError(t, err)

	found, err := response.DecodeSearch(lines)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(found.Numbers))
	assert.Equal(t, uint32(recs[1].UID()), found.Numbers[0])

	store, err := command.NewStore(&command.StoreOptions{
		UID:   true,
		Set:   seqset.New(seqset.Num(uint32(recs[0].UID()))),
		Op:    imap.StoreFlagsAdd,
		Flags: []imap.Flag{imap.FlagDeleted},
	})
	assert.NoError(t, err)

	lines, err = clt.Execute(ctx, store)
	assert.NoError(t, err)

	stored, err := response.DecodeStore(lines)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(stored.FetchRecords()))
	assert.Equal(t, true, slices.Contains(stored.FetchRecords()[0].Flags(), imap.FlagDeleted))

	expunge, err := command.NewGeneric("EXPUNGE", nil)
	assert.NoError(t, err)

	lines, err = clt.Execute(ctx, expunge)
	assert.NoError(t, err)

	expunged, err := response.DecodeExpunge(lines)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(expunged.SeqNums))
	assert.Equal(t, uint32(1), expunged.SeqNums[0])

	assert.NoError(t, clt.Logout(ctx))
}

func TestSessionListAndStatus(t *testing.T) {
	srv := imapserver.StartServer(t)
	seedInbox(t, srv)

	clt := connectTestClient(t, srv)
	ctx := t.Context()

	list, err := command.NewGeneric("LIST", wire.NewArgs().Quoted("").Quoted("*"))
	assert.NoError(t, err)

	lines, err := clt.Execute(ctx, list)
	assert.NoError(t, err)

	infos, err := response.DecodeListInfoList(lines)
	assert.NoError(t, err)

	var names []string
	for _, info := range infos {
		names = append(names, info.Name)
	}

	for _, name := range []string{srv.InboxMailbox, srv.ArchiveMailbox, srv.DraftsMailbox} {
		assert.Equal(t, true, slices.Contains(names, name))
	}

	status, err := command.NewGeneric("STATUS", wire.NewArgs().
		AString(srv.InboxMailbox).
		List(wire.NewArgs().Atom("MESSAGES").Atom("UIDNEXT")),
	)
	assert.NoError(t, err)

	lines, err = clt.Execute(ctx, status)
	assert.NoError(t, err)

	data, err := response.DecodeStatus(lines)
	assert.NoError(t, err)
	assert.Equal(t, "INBOX", data.Mailbox)
	assert.Equal(t, uint32(3), *data.NumMessages)
	assert.Equal(t, imap.UID(4), data.UIDNext)
}

func TestSessionSelectUTF7Mailbox(t *testing.T) {
	srv := imapserver.StartServer(t)
	clt := connectTestClient(t, srv)

	info, err := clt.Select(t.Context(), srv.DraftsMailbox, &SelectOptions{ReadOnly: true})
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), info.Exists)
	assert.Equal(t, response.AccessModeReadOnly, info.Mode)
}
