package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/remberq/simple-voice-transcribe/internal/app"
	"github.com/remberq/simple-voice-transcribe/internal/capture"
	"github.com/remberq/simple-voice-transcribe/internal/config"
	"github.com/remberq/simple-voice-transcribe/internal/credential"
	"github.com/remberq/simple-voice-transcribe/internal/daemon"
	"github.com/remberq/simple-voice-transcribe/internal/db"
	"github.com/remberq/simple-voice-transcribe/internal/dispatch"
	"github.com/remberq/simple-voice-transcribe/internal/focus"
	"github.com/remberq/simple-voice-transcribe/internal/ledger"
	"github.com/remberq/simple-voice-transcribe/internal/notify"
	"github.com/remberq/simple-voice-transcribe/internal/transcribe"
	"github.com/remberq/simple-voice-transcribe/pkg/logger"
)

func run(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	headless := fs.Bool("headless", false, "run without the terminal UI; control through the socket only")
	fs.Parse(args)

	if _, err := daemon.Send(cfg.Socket(), daemon.Command{Cmd: daemon.CmdStatus}); err == nil {
		return daemon.ErrAlreadyRunning
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.LogPath(),
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	store, err := db.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds := credentialStore(cfg, store)
	resolver := transcribe.NewResolver(creds, cfg.MockDelay(), &http.Client{}, log)
	source := transcribe.ConfigSource{Config: cfg, Resolver: resolver}

	history := ledger.New(store, log)
	history.Load()

	anchor := focus.NewAnchor(focus.NewXdotool(), focus.SystemClipboard{}, &focus.KeyboardPaster{}, focus.Policy{
		AlwaysCopy:        cfg.Insert.AlwaysCopy,
		AutoInsert:        cfg.Insert.AutoInsert,
		PasteWhenEditable: cfg.Insert.PasteWhenEditable,
		EditableRoles:     cfg.Insert.EditableRoles,
	}, log)

	var opts dispatch.Options
	if cfg.Mock.SimulateNetworkDelay {
		opts.SimulatedDelay = cfg.MockDelay()
	}
	dispatcher := dispatch.New(ctx, history, source, anchor, notify.NewDesktop(cfg.Notifications, log), opts, log)

	recorder := capture.NewRecorder(capture.PortAudio{}, cfg.TempDir(), log)

	remote := app.NewRemote(daemon.NewHub())
	model := app.New(app.Deps{
		Recorder:    recorder,
		Permissions: capture.SystemPermissions{SettingsCommand: cfg.Capture.SettingsCommand},
		Focus:       anchor,
		Dispatcher:  dispatcher,
		History:     history,
		Provider:    source.ActiveName,
		Publish:     remote.Publish,
		Log:         log,
	})
	defer model.Close()

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if *headless {
		progOpts = append(progOpts, tea.WithoutRenderer(), tea.WithInput(nil))
	} else {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(model, progOpts...)
	remote.Attach(p.Send)

	server := daemon.NewServer(cfg.Socket(), remote, log)

	log.Info("dictate starting",
		logger.String("socket", cfg.Socket()),
		logger.String("provider", source.ActiveName()),
		logger.Int("jobs", len(history.Jobs())))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx)
	})
	g.Go(func() error {
		// Leaving the UI shuts everything down.
		defer stop()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		p.Quit()
		return nil
	})
	err = g.Wait()

	// In-flight jobs observe the cancelled context and record the interruption.
	dispatcher.Wait()
	log.Info("dictate stopped")
	return err
}

func credentialStore(cfg *config.Config, store *db.Store) credential.Store {
	var primary credential.Store = credential.NewDurable(store)
	if cfg.SessionOnlyCredentials {
		primary = credential.NewMemory()
	}
	return credential.NewChain(primary, credential.NewEnv())
}
