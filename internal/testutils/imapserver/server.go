package imapserver

import (
	"errors"
	"net"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
)

// Server is an in-memory IMAP server listening on a random localhost port.
type Server struct {
	UserName   string
	UserPasswd string
	ListenAddr string

	InboxMailbox   string
	ArchiveMailbox string
	// DraftsMailbox has a non-ASCII name, it is sent in modified UTF-7.
	DraftsMailbox string

	srv *imapserver.Server
	ch  chan error
}

func StartServer(t *testing.T) *Server {
	srv := Server{
		UserName:       "user",
		UserPasswd:     "none",
		ch:             make(chan error, 2),
		InboxMailbox:   "INBOX",
		ArchiveMailbox: "Archive",
		DraftsMailbox:  "Entwürfe",
	}

	user := imapmemserver.NewUser(srv.UserName, srv.UserPasswd)
	createMailbox(t, user, srv.InboxMailbox)
	createMailbox(t, user, srv.ArchiveMailbox)
	createMailbox(t, user, srv.DraftsMailbox)

	msrv := imapmemserver.New()
	msrv.AddUser(user)

	srv.srv = imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return msrv.NewSession(), nil, nil
		},
		// IMAP4rev1 keeps the server from sending ESEARCH for SEARCH
		Caps:         imap.CapSet{imap.CapIMAP4rev1: {}},
		Logger:       testLoggerAsImapServerLogger(t),
		InsecureAuth: true,
	})

	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("listening for imap connections failed: %s", err)
	}
	srv.ListenAddr = ln.Addr().String()

	t.Cleanup(func() { _ = srv.Close() })
	go func() {
		err := srv.srv.Serve(ln)
		srv.ch <- err
		close(srv.ch)
	}()

	return &srv
}

func createMailbox(t *testing.T, user *imapmemserver.User, mailboxName string) {
	if err := user.Create(mailboxName, nil); err != nil {
		t.Fatalf("creating %s mailbox failed: %s", mailboxName, err)
	}
}

// Append stores msg in mailbox and returns its UID. The message is
// uploaded through a separate IMAP connection.
func (s *Server) Append(t *testing.T, mailbox string, msg []byte, flags ...imap.Flag) imap.UID {
	t.Helper()

	clt, err := imapclient.DialInsecure(s.ListenAddr, nil)
	if err != nil {
		t.Fatalf("connecting to imap server failed: %s", err)
	}
	defer clt.Close()

	if err := clt.Login(s.UserName, s.UserPasswd).Wait(); err != nil {
		t.Fatalf("login failed: %s", err)
	}

	appendCmd := clt.Append(mailbox, int64(len(msg)), &imap.AppendOptions{Flags: flags})

	if _, err := appendCmd.Write(msg); err != nil {
		_ = appendCmd.Close()
		t.Fatalf("uploading message failed: %s", err)
	}

	if err := appendCmd.Close(); err != nil {
		t.Fatalf("closing append command failed: %s", err)
	}

	data, err := appendCmd.Wait()
	if err != nil {
		t.Fatalf("waiting for append to finish failed: %s", err)
	}

	return data.UID
}

func (s *Server) Close() error {
	err := s.srv.Close()

	for chErr := range s.ch {
		if errors.Is(chErr, net.ErrClosed) {
			continue
		}
		err = errors.Join(err, chErr)
	}
	return err
}
