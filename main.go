package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fho/imapcodec/internal/command"
	"github.com/fho/imapcodec/internal/config"
	"github.com/fho/imapcodec/internal/log"
	"github.com/fho/imapcodec/internal/response"
	"github.com/fho/imapcodec/internal/session"

	flag "github.com/spf13/pflag"
)

var (
	version = "version-undefined"
	commit  = "commit-undefined"
)

type flags struct {
	cfgPath      string
	printVersion bool
	dryRun       bool
	verbose      bool
	metricsAddr  string
}

func mustParseFlags() *flags {
	var result flags

	flag.StringVar(&result.cfgPath, "cfg-file", "/etc/imapcodec/config.toml",
		"Path to the imapcodec config file")
	flag.BoolVar(&result.printVersion, "version", false,
		"print the version and exit")
	flag.BoolVarP(&result.dryRun, "dry-run", "n", false,
		"only encode the configured commands and print them, no connection is established",
	)
	flag.BoolVarP(&result.verbose, "verbose", "v", false,
		"enable debug logging")
	flag.StringVar(&result.metricsAddr, "metrics-addr", "",
		"serve prometheus metrics on this address, overrides MetricsAddr of the config file")

	flag.Parse()

	return &result
}

var handledSignals = []os.Signal{syscall.SIGTERM, syscall.SIGINT}

func installSigHandler(logger *slog.Logger, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, handledSignals...)

	go func() {
		var strSig string

		sig := <-sigCh

		switch ssig, ok := sig.(syscall.Signal); ok {
		case true:
			strSig = fmt.Sprintf("%d, %s", ssig, ssig)
		default:
			strSig = sig.String()
		}

		logger.Info(fmt.Sprintf("received signal (%s), terminating", strSig))
		cancel()
	}()
}

type job struct {
	cfg  *config.Command
	cmd  command.Command
	kind response.Kind
}

func buildJobs(cfg *config.Config) ([]*job, error) {
	result := make([]*job, 0, len(cfg.Commands))

	for i := range cfg.Commands {
		cmd, kind, err := cfg.Commands[i].Build()
		if err != nil {
			return nil, err
		}

		result = append(result, &job{cfg: &cfg.Commands[i], cmd: cmd, kind: kind})
	}

	return result, nil
}

func dryRun(cfg *config.Config, jobs []*job) error {
	caps := imap.CapSet{}
	for _, c := range cfg.Capabilities {
		caps[imap.Cap(strings.ToUpper(c))] = struct{}{}
	}

	for _, j := range jobs {
		b, err := j.cmd.Encode(caps)
		j.cmd.Release()
		if err != nil {
			return fmt.Errorf("encoding %q failed: %w", j.cfg.String(), err)
		}

		fmt.Printf("%q\n", b)
	}

	return nil
}

func startMetricsServer(logger *slog.Logger, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return &srv
}

func run(ctx context.Context, cfg *config.Config, jobs []*job, logger *slog.Logger) error {
	clt := session.NewClient(&session.Config{
		Address:       cfg.ImapAddr,
		User:          cfg.ImapUser,
		Password:      cfg.ImapPassword,
		AllowInsecure: cfg.AllowInsecure,
		LogIMAPData:   cfg.LogIMAPData,
		Logger:        logger,
	})

	if err := clt.Connect(ctx); err != nil {
		return err
	}
	defer clt.Close()

	if cfg.Mailbox != "" {
		info, err := clt.Select(ctx, cfg.Mailbox, &session.SelectOptions{
			ReadOnly:  cfg.ReadOnly,
			CondStore: cfg.CondStore,
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d messages, uidvalidity %d, uidnext %d, highestmodseq %d, %s\n",
			cfg.Mailbox, info.Exists, info.UIDValidity, info.UIDNext, info.HighestModSeq, info.Mode)
	}

	for _, j := range jobs {
		lines, err := clt.Execute(ctx, j.cmd)
		if err != nil {
			var cmdErr *session.CommandError
			if !errors.As(err, &cmdErr) {
				return err
			}
			// the decoders decide which completions they accept
			logger.Warn("command failed", "command", j.cfg.String(), "error", err)
		}

		result, err := response.Decode(lines, j.kind)
		if err != nil {
			return fmt.Errorf("decoding response of %q failed: %w", j.cfg.String(), err)
		}

		fmt.Printf("%s:\n", j.cfg.String())
		printResult(result)
	}

	return clt.Logout(ctx)
}

func printResult(result any) {
	switch r := result.(type) {
	case *response.FetchResult:
		for _, rec := range r.FetchRecords() {
			fmt.Printf("  %d: uid %d, flags %v, modseq %d, %d items\n",
				rec.SeqNum, rec.UID(), rec.Flags(), rec.ModSeq(), len(rec.Items))
		}
		if len(r.Modified) > 0 {
			fmt.Printf("  modified: %s\n", r.Modified)
		}
		if r.Vanished != nil {
			fmt.Printf("  vanished: %s\n", r.Vanished.UIDs)
		}
	case *response.SearchResult:
		fmt.Printf("  %v (modseq %d)\n", r.Numbers, r.ModSeq)
	case *response.ExtensionSearchResult:
		fmt.Printf("  min %d, max %d, all %q, modseq %d", r.Min, r.Max, r.All.String(), r.ModSeq)
		if r.Count != nil {
			fmt.Printf(", count %d", *r.Count)
		}
		fmt.Println()
	case []*response.ListInfo:
		for _, info := range r {
			fmt.Printf("  %s %v\n", info.Name, info.Attrs)
		}
	case *response.Capability:
		fmt.Printf("  %s\n", strings.Join(r.Names(), " "))
	default:
		fmt.Printf("  %+v\n", r)
	}
}

func main() {
	flags := mustParseFlags()
	if flags.printVersion {
		fmt.Printf("imapcodec %s (%s)\n", version, commit)
		os.Exit(0)
	}

	var logLevel slog.LevelVar
	if flags.verbose {
		logLevel.Set(slog.LevelDebug)
	}
	logger := log.New(os.Stderr, &logLevel)

	cfg, err := config.FromFile(flags.cfgPath)
	if err != nil {
		logger.Error("loading config failed", "error", err)
		os.Exit(1)
	}

	if dir := os.Getenv("CREDENTIALS_DIRECTORY"); dir != "" {
		if err := cfg.LoadCredentialsFromDirectory(dir); err != nil {
			logger.Error("loading credentials failed", "error", err)
			os.Exit(1)
		}
	}

	if flags.metricsAddr != "" {
		cfg.MetricsAddr = flags.metricsAddr
	}

	cfg.SetDefaults()
	fmt.Print(cfg.String())

	if cfg.LogIMAPData {
		// the protocol trace is logged at debug level
		logLevel.Set(slog.LevelDebug)
	}

	jobs, err := buildJobs(cfg)
	if err != nil {
		logger.Error("invalid command configuration", "error", err)
		os.Exit(1)
	}

	if flags.dryRun {
		fmt.Printf("--dry-run enabled, commands are only encoded.\n\n")
		if err := dryRun(cfg, jobs); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		os.Exit(0)
	}

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(logger, cfg.MetricsAddr)
		defer srv.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installSigHandler(logger, cancel)

	if err := run(ctx, cfg, jobs, logger); err != nil {
		logger.Error(err.Error())
		cancel()
		os.Exit(1)
	}
}
