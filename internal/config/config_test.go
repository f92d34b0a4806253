package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emersion/go-imap/v2"

	"github.com/fho/imapcodec/internal/response"
	"github.com/fho/imapcodec/internal/testutils/assert"
)

const testConfig = `
ImapAddr = "imap.example.com:993"
ImapUser = "user"
ImapPassword = "secret"
Mailbox = "INBOX"
CondStore = true
Capabilities = ["LITERAL+"]

[[command]]
Type = "fetch"
UID = true
Set = "1:*"
Items = "UID FLAGS BODY.PEEK[HEADER.FIELDS (SUBJECT)]"
ChangedSince = 12

[[command]]
Type = "store"
UID = true
Set = "3,1:2"
Op = "add"
Flags = ["\\Seen", "$Junk"]
Silent = true
UnchangedSince = 0

[[command]]
Type = "search"
UID = true
Return = ["min", "count"]

[command.Criteria]
Subject = "Grüße"
NotFlags = ["\\Seen"]
Since = "2024-05-01"

[[command.Criteria.Or]]
From = "alice@example.com"

[[command.Criteria.Or]]
From = "bob@example.com"

[[command]]
Type = "raw"
Name = "examine"
Args = ["Entwürfe"]
Result = "extensionmailboxinfo"
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func encode(t *testing.T, c *Command, caps imap.CapSet) (string, response.Kind) {
	t.Helper()

	cmd, kind, err := c.Build()
	assert.NoError(t, err)

	b, err := cmd.Encode(caps)
	assert.NoError(t, err)

	return string(b), kind
}

func TestFromFile(t *testing.T) {
	cfg, err := FromFile(writeConfig(t, testConfig))
	assert.NoError(t, err)
	cfg.SetDefaults()

	assert.Equal(t, "imap.example.com:993", cfg.ImapAddr)
	assert.Equal(t, true, cfg.CondStore)
	assert.Equal(t, 4, len(cfg.Commands))
	assert.Equal(t, true, cfg.Commands[1].UnchangedSince != nil)

	caps := imap.CapSet{imap.CapLiteralPlus: {}}

	wire, kind := encode(t, &cfg.Commands[0], caps)
	assert.Equal(t, "UID FETCH 1:* (UID FLAGS BODY.PEEK[HEADER.FIELDS (SUBJECT)]) (CHANGEDSINCE 12)\r\n", wire)
	assert.Equal(t, response.KindFetch, kind)

	wire, kind = encode(t, &cfg.Commands[1], caps)
	assert.Equal(t, "UID STORE 3,1:2 (UNCHANGEDSINCE 0) +FLAGS.SILENT (\\Seen $Junk)\r\n", wire)
	assert.Equal(t, response.KindStore, kind)

	wire, kind = encode(t, &cfg.Commands[2], caps)
	assert.Equal(t,
		"UID SEARCH RETURN (MIN COUNT) CHARSET UTF-8 SUBJECT {7+}\r\nGrüße SINCE 1-May-2024 UNSEEN "+
			"OR FROM alice@example.com FROM bob@example.com\r\n",
		wire)
	assert.Equal(t, response.KindExtensionSearch, kind)

	wire, kind = encode(t, &cfg.Commands[3], caps)
	assert.Equal(t, "EXAMINE {9+}\r\nEntwürfe\r\n", wire)
	assert.Equal(t, response.KindExtensionMailboxInfo, kind)
}

func TestFromFileUnknownField(t *testing.T) {
	_, err := FromFile(writeConfig(t, "ImapAddr = \"localhost:143\"\nImapAdress = \"x\"\n"))
	assert.Error(t, err)
}

func TestBuildInvalidCommands(t *testing.T) {
	tcs := []struct {
		name string
		cmd  Command
	}{
		{name: "unknown type", cmd: Command{Type: "copy", Set: "1", Result: "fetch"}},
		{name: "unknown result kind", cmd: Command{Type: "fetch", Set: "1", Items: "UID", Result: "bodystructure"}},
		{name: "fetch without set", cmd: Command{Type: "fetch", Items: "UID"}},
		{name: "invalid set", cmd: Command{Type: "fetch", Set: "1:x", Items: "UID"}},
		{name: "unknown store op", cmd: Command{Type: "store", Set: "1", Op: "toggle", Flags: []string{"\\Seen"}}},
		{name: "search without criteria", cmd: Command{Type: "search"}},
		{name: "invalid date", cmd: Command{Type: "search", Criteria: &Criteria{Since: "1.5.2024"}}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			tc.cmd.setDefaults()
			_, _, err := tc.cmd.Build()
			assert.Error(t, err)
		})
	}
}

func TestEmptyCriteriaMatchAll(t *testing.T) {
	c := Command{Type: "search", Criteria: &Criteria{}}
	c.setDefaults()

	wire, kind := encode(t, &c, nil)
	assert.Equal(t, "SEARCH ALL\r\n", wire)
	assert.Equal(t, response.KindSearch, kind)
}

func TestStringHidesPassword(t *testing.T) {
	cfg := Config{ImapAddr: "localhost:143", ImapPassword: "topsecret"}

	s := cfg.String()
	assert.Equal(t, false, strings.Contains(s, "topsecret"))
	assert.Contains(t, s, "***")
}

func TestLoadCredentialsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "ImapPassword"), []byte("secret123"), 0600)
	_ = os.WriteFile(filepath.Join(dir, "ImapUser"), []byte("testuser"), 0600)

	cfg := &Config{
		ImapAddr:     "imap.example.com:993",
		ImapPassword: "original",
	}

	err := cfg.LoadCredentialsFromDirectory(dir)
	assert.NoError(t, err)
	assert.Equal(t, "secret123", cfg.ImapPassword)
	assert.Equal(t, "testuser", cfg.ImapUser)
	assert.Equal(t, "imap.example.com:993", cfg.ImapAddr)
}

func TestLoadCredentialsFromDirectory_MissingFilesSkipped(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "ImapUser"), []byte("user"), 0600)

	cfg := &Config{ImapPassword: "original"}

	err := cfg.LoadCredentialsFromDirectory(dir)
	assert.NoError(t, err)
	assert.Equal(t, "user", cfg.ImapUser)
	assert.Equal(t, "original", cfg.ImapPassword)
}

func TestLoadCredentialsFromDirectory_DirNotExistsError(t *testing.T) {
	cfg := &Config{}
	err := cfg.LoadCredentialsFromDirectory("/nonexistent/path")
	assert.Error(t, err)
	assert.Equal(t, "credentials directory: stat /nonexistent/path: no such file or directory", err.Error())
}

func TestLoadCredentialsFromDirectory_EmptyFileError(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "ImapPassword"), []byte(""), 0600)

	cfg := &Config{}
	err := cfg.LoadCredentialsFromDirectory(dir)
	assert.Error(t, err)
	assert.Equal(t, "reading credential ImapPassword: file is empty", err.Error())
}

func TestLoadCredentialsFromDirectory_PreservesSpaces(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "ImapUser"), []byte(" spaces \nnewline\n"), 0600)
	_ = os.WriteFile(filepath.Join(dir, "ImapPassword"), []byte(" spaces \r\nnewline\n\r"), 0600)

	cfg := &Config{}
	err := cfg.LoadCredentialsFromDirectory(dir)
	assert.NoError(t, err)
	assert.Equal(t, " spaces \nnewline", cfg.ImapUser)
	assert.Equal(t, " spaces \r\nnewline", cfg.ImapPassword)
}
