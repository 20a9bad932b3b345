// Package portalcli is the command line front end of the portal.
package portalcli

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jrsteele09/go-contest-portal/app"
	"github.com/jrsteele09/go-contest-portal/backend"
	"github.com/jrsteele09/go-contest-portal/internal/config"
	"github.com/jrsteele09/go-contest-portal/internal/logging"
	"github.com/jrsteele09/go-contest-portal/storage/memstore"
	"github.com/jrsteele09/go-contest-portal/storage/sqlitestore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	flagBackend  string
	flagData     string
	flagLogLevel string
)

// NewRootCmd creates the root cobra command for the portal CLI.
func NewRootCmd() *cobra.Command {
	cfg := config.New()

	root := &cobra.Command{
		Use:   "portal",
		Short: "Contest portal client",
		Long:  "Enter contests with participant codes, or sign in as staff and browse contest data.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(cfg.GetEnv(), flagLogLevel)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagBackend, "backend", cfg.GetBackendURL(), "Backend base URL (or BACKEND_URL env)")
	root.PersistentFlags().StringVar(&flagData, "data", cfg.GetDataFolder(), "Folder for the persistent profile store (or FOLDER env)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", cfg.GetLogLevel(), "Log level (debug, info, warn, error)")

	root.AddCommand(
		newShellCmd(cfg),
		newEnterCmd(cfg),
	)
	return root
}

// session is one running portal with its stores.
type session struct {
	app      *app.App
	profiles *sqlitestore.Store
}

func (s *session) Close() {
	if err := s.profiles.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close profile store")
	}
}

func openSession(ctx context.Context, cfg config.Config) (*session, error) {
	client, err := backend.NewClient(flagBackend, backend.WithAnonKey(cfg.GetBackendAnonKey()))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(flagData, 0o700); err != nil {
		return nil, errors.Wrap(err, "[portalcli.openSession] create data folder")
	}
	profiles, err := sqlitestore.Open(ctx, filepath.Join(flagData, "portal.db"))
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, client, memstore.New(), profiles)
	if err != nil {
		_ = profiles.Close()
		return nil, err
	}
	return &session{app: a, profiles: profiles}, nil
}

func newShellCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive portal session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := openSession(ctx, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			go func() {
				if err := s.app.Run(ctx); err != nil {
					log.Error().Err(err).Msg("background loops stopped")
				}
			}()

			sh := NewShell(s.app, cmd.OutOrStdout())
			sh.Banner()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				sh.Prompt()
				if !scanner.Scan() {
					return scanner.Err()
				}
				if quit := sh.Exec(ctx, scanner.Text()); quit {
					return nil
				}
			}
		},
	}
}

func newEnterCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "enter <contest-code> <participant-code>",
		Short: "Check a contest code and participant code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			sh := NewShell(s.app, cmd.OutOrStdout())
			res := sh.enter(cmd.Context(), args[0], args[1])
			if !res {
				return errors.New("code entry rejected")
			}
			return nil
		},
	}
}
