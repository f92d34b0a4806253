package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	ImapAddr      string
	ImapUser      string
	ImapPassword  string
	AllowInsecure bool
	// Mailbox is selected before the commands are run.
	Mailbox   string
	ReadOnly  bool
	CondStore bool
	// Capabilities are assumed when commands are only encoded (dry-run),
	// e.g. "LITERAL+".
	Capabilities []string
	MetricsAddr  string
	LogIMAPData  bool
	Commands     []Command `toml:"command"`
}

func (c *Config) String() string {
	const unset = "UNSET"
	const hiddenPasswd = "***"
	var sb strings.Builder

	printKv := func(k string, v any) {
		fmt.Fprintf(&sb, "%-30v%-50v\n", k+":", v)
	}

	sb.WriteString("Configuration:\n")
	printKv("IMAP Server Address", c.ImapAddr)
	printKv("IMAP User", c.ImapUser)

	if c.ImapPassword == "" {
		printKv("IMAP Password", unset)
	} else {
		printKv("IMAP Password", hiddenPasswd)
	}

	printKv("Allow Insecure Connections", c.AllowInsecure)

	if c.Mailbox == "" {
		printKv("Mailbox", unset)
	} else {
		printKv("Mailbox", c.Mailbox)
	}

	printKv("Read-Only", c.ReadOnly)
	printKv("CONDSTORE", c.CondStore)
	printKv("Assumed Capabilities", strings.Join(c.Capabilities, " "))

	if c.MetricsAddr == "" {
		printKv("Metrics Address", unset)
	} else {
		printKv("Metrics Address", c.MetricsAddr)
	}

	printKv("Log IMAP Data", c.LogIMAPData)

	sb.WriteRune('\n')
	fmt.Fprintf(&sb, "%d command(s) are run:\n", len(c.Commands))
	for i, cmd := range c.Commands {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, cmd.String())
	}

	return sb.String()
}

func FromFile(path string) (*Config, error) {
	var result Config

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	err = toml.NewDecoder(f).DisallowUnknownFields().Decode(&result)
	if err != nil {
		var sErr *toml.StrictMissingError
		if errors.As(err, &sErr) {
			return nil, fmt.Errorf("%s: %w\n%s", path, err, sErr.String())
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &result, nil
}

func (c *Config) SetDefaults() {
	for i := range c.Commands {
		c.Commands[i].setDefaults()
	}
}

// LoadCredentialsFromDirectory overwrites the credential fields with the
// content of equally named files in dir, as provided by systemd
// (LoadCredential=). Missing files are skipped, trailing line
// breaks are removed.
func (c *Config) LoadCredentialsFromDirectory(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("credentials directory: %w", err)
	}

	creds := []struct {
		name string
		dst  *string
	}{
		{"ImapUser", &c.ImapUser},
		{"ImapPassword", &c.ImapPassword},
	}

	for _, cred := range creds {
		buf, err := os.ReadFile(filepath.Join(dir, cred.name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("reading credential %s: %w", cred.name, err)
		}

		if len(buf) == 0 {
			return fmt.Errorf("reading credential %s: file is empty", cred.name)
		}

		*cred.dst = strings.TrimRight(string(buf), "\r\n")
	}

	return nil
}
