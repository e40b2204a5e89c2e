// Package cli provides the gitport command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	gogithub "github.com/google/go-github/v75/github"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	githubadapter "github.com/iotacb/gitport/apps/gitport/internal/adapters/github"
	"github.com/iotacb/gitport/apps/gitport/internal/config"
	"github.com/iotacb/gitport/apps/gitport/internal/credential"
	"github.com/iotacb/gitport/apps/gitport/internal/fetch"
	"github.com/iotacb/gitport/apps/gitport/internal/mirror"
	ghplatform "github.com/iotacb/gitport/apps/gitport/internal/platform/github"
	"github.com/iotacb/gitport/apps/gitport/internal/platform/prompt"
	"github.com/iotacb/gitport/apps/gitport/internal/progress"
	"github.com/iotacb/gitport/apps/gitport/internal/target"
	"github.com/iotacb/gitport/pkg/logging"
	"github.com/iotacb/gitport/pkg/telemetry"
)

// Version is set at build time.
var Version = "dev"

type options struct {
	cfgFile string
	reset   bool
	verbose bool
}

// NewRootCmd creates the gitport command.
func NewRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "gitport",
		Short: "Import a GitHub repository into a local directory",
		Long: `gitport mirrors the files of a GitHub repository, or of one directory in it,
into a local directory using the GitHub contents API.

On first use it asks for a personal access token and stores it next to the
gitport executable. Run with --reset to forget the stored token.`,
		Example: `  gitport
  gitport -d ./vendor/demo -u https://github.com/acme/demo
  gitport -u https://github.com/acme/demo/tree/main/docs --workers 8
  gitport --reset`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+" if present)")
	f.BoolVarP(&o.reset, "reset", "r", false, "delete the stored token and exit")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "show queued files as well as transfers")
	f.StringP("dir", "d", "", "local import directory (prompted when empty)")
	f.StringP("url", "u", "", "repository url (prompted when empty)")
	f.Int("workers", config.DefaultWorkers, "concurrent file downloads")
	f.Int("max-depth", config.DefaultMaxDepth, "maximum directory nesting to follow (0 = unlimited)")
	f.Duration("request-timeout", config.DefaultRequestTimeout, "timeout for each listing and download (0 = none)")
	f.Bool("fail-fast", false, "stop at the first failed listing or download")
	f.String("api-url", config.DefaultAPIURL, "GitHub API base url")
	f.String("credential-file", "", "token file (default: .env next to the executable)")
	f.String("log-level", config.DefaultLogLevel, "log level (debug|info|warn|error)")
	f.String("log-format", config.DefaultLogFormat, "log format (text|json)")
	f.Bool("otel-enabled", false, "export traces and metrics over OTLP")

	_ = cmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.MarkFlagDirname("dir")

	return cmd
}

// Execute runs the root command. Interrupts cancel the running mirror.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func run(cmd *cobra.Command, o *options) error {
	cfg, err := config.Load(o.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	log := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat).With("run", uuid.NewString())
	if cfg.File != "" {
		log.Info("using config file", "path", cfg.File)
	}

	out := progress.NewRenderer(cmd.OutOrStdout())
	out.Verbose = o.verbose
	term := prompt.New(cmd.InOrStdin(), cmd.OutOrStdout())

	credPath := cfg.CredentialFile
	if credPath == "" {
		if credPath, err = credential.DefaultPath(); err != nil {
			return err
		}
	}
	store := credential.NewStore(credPath, term, log)

	if o.reset {
		if err := store.Reset(); err != nil {
			return err
		}
		out.Success("Token reset successfully!")
		return nil
	}

	ctx := cmd.Context()
	tel, err := telemetry.New(ctx, cfg.OTelEnabled || telemetry.Enabled(), Version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "error", err)
		}
	}()

	gh, err := newClient(ctx, cfg, store)
	if err != nil {
		return err
	}

	dir := cfg.Dir
	if dir == "" {
		if dir, err = term.Prompt("Import directory (blank for current): "); err != nil {
			return err
		}
		if dir == "" {
			dir = "."
		}
	}
	rawURL := cfg.URL
	if rawURL == "" {
		if rawURL, err = term.Prompt("Repository URL: "); err != nil {
			return err
		}
	}
	loc, err := target.Parse(rawURL)
	if err != nil {
		return err
	}
	log = log.With("repo", loc.String())

	src := githubadapter.New(gh, ghplatform.NewHTTPClient(cfg.RequestTimeout))
	var tally progress.Tally
	rep := progress.Multi(out, &tally)
	m := mirror.New(src, fetch.New(src, rep, log), rep, log, mirror.Options{
		Workers:        cfg.Workers,
		MaxDepth:       cfg.MaxDepth,
		RequestTimeout: cfg.RequestTimeout,
		FailFast:       cfg.FailFast,
	})

	res, err := m.Run(ctx, loc, dir)
	summary := summarize(res)
	if err != nil {
		var me *mirror.MirrorError
		if errors.As(err, &me) {
			_, failedFiles, _ := tally.Totals()
			out.Warn(fmt.Sprintf("Import incomplete: %s, %d errors, %d files failed", summary, me.Failures, failedFiles))
		}
		return err
	}

	out.Success("Imported files successfully!")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}

// newClient authenticates as a GitHub App when one is configured and
// otherwise through the stored token.
func newClient(ctx context.Context, cfg *config.Config, store *credential.Store) (*gogithub.Client, error) {
	if cfg.UseApp() {
		return ghplatform.NewAppClient(cfg.AppID, cfg.AppInstallationID, cfg.AppPrivateKeyPath, cfg.APIURL, cfg.RequestTimeout)
	}
	cred, err := store.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	return ghplatform.NewTokenClient(cred.Token, cfg.APIURL, cfg.RequestTimeout), nil
}

func summarize(res *mirror.Result) string {
	if res == nil {
		return "nothing imported"
	}
	s := fmt.Sprintf("%d files in %d directories, %s", res.Files, res.Dirs, humanize.Bytes(uint64(res.Bytes)))
	if res.Skipped > 0 {
		s += fmt.Sprintf(", %d skipped", res.Skipped)
	}
	return s
}
