package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/remberq/simple-voice-transcribe/internal/config"
	"github.com/remberq/simple-voice-transcribe/internal/credential"
	"github.com/remberq/simple-voice-transcribe/internal/daemon"
	"github.com/remberq/simple-voice-transcribe/internal/db"
	"github.com/remberq/simple-voice-transcribe/internal/ledger"
	"github.com/remberq/simple-voice-transcribe/internal/transcribe"
	"github.com/remberq/simple-voice-transcribe/internal/ui"
)

var jobCommands = map[string]bool{
	daemon.CmdCancel: true,
	daemon.CmdRetry:  true,
	daemon.CmdDelete: true,
	daemon.CmdCopy:   true,
}

// trigger sends one command to the running controller.
func trigger(socket, name string, args []string) error {
	cmd := daemon.Command{Cmd: name}
	switch {
	case name == daemon.CmdUpload:
		if len(args) != 1 {
			return errors.New("usage: dictate upload <file>")
		}
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		cmd.Path = path
	case jobCommands[name]:
		if len(args) != 1 {
			return fmt.Errorf("usage: dictate %s <job-id>", name)
		}
		cmd.JobID = args[0]
	}

	resp, err := daemon.Send(socket, cmd)
	if err != nil {
		return fmt.Errorf("is dictate running? %w", err)
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}

	switch name {
	case daemon.CmdJobs:
		printJobs(resp.Jobs)
	case daemon.CmdUpload:
		fmt.Println(resp.JobID)
	default:
		printStatus(resp)
	}
	return nil
}

func printStatus(resp daemon.Response) {
	visible := resp.Visible != nil && *resp.Visible
	active := 0
	if resp.ActiveJobs != nil {
		active = *resp.ActiveJobs
	}
	fmt.Printf("state: %s  visible: %t  active jobs: %d\n", resp.State, visible, active)
}

func printJobs(jobs []ledger.Job) {
	if len(jobs) == 0 {
		fmt.Println("No transcriptions yet.")
		return
	}
	for _, j := range jobs {
		status := ui.JobStatusStyle(string(j.Status)).Render(fmt.Sprintf("%-10s", j.Status))
		fmt.Printf("%s  %s  %s  %-5s %s\n", j.ID, j.CreatedAt.Local().Format("15:04:05"), status, j.FileFormat, j.ProviderName)
		switch {
		case j.Result() != "":
			fmt.Println("    " + j.Result())
		case j.Error() != "":
			fmt.Println("    " + ui.ErrorTextStyle.Render(j.Error()))
		}
	}
}

// watch prints every event streamed by the controller until it exits.
func watch(socket string) error {
	c, err := daemon.Connect(socket)
	if err != nil {
		return fmt.Errorf("is dictate running? %w", err)
	}
	defer c.Close()

	resp, err := c.SendCommand(daemon.Command{Cmd: daemon.CmdSubscribe})
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}

	enc := json.NewEncoder(os.Stdout)
	for {
		ev, err := c.ReadEvent()
		if err != nil {
			return err
		}
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
}

// keyCommand lists, stores or removes provider API keys.
func keyCommand(cfg *config.Config, args []string) error {
	if len(args) == 1 && args[0] == "list" {
		return listKeys(cfg)
	}
	if len(args) < 2 {
		return errors.New("usage: dictate key list | set|delete <provider> [secret]")
	}
	action, id := args[0], args[1]
	if _, ok := cfg.Provider(id); !ok {
		return fmt.Errorf("provider %q is not configured", id)
	}
	if cfg.SessionOnlyCredentials {
		return errors.New("session_only_credentials is enabled; keys are not persisted")
	}

	store, err := db.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()
	creds := credentialStore(cfg, store)

	switch action {
	case "set":
		secret := ""
		if len(args) > 2 {
			secret = args[2]
		} else {
			fmt.Fprint(os.Stderr, "API key: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read key: %w", err)
			}
			secret = line
		}
		secret = strings.TrimSpace(secret)
		if secret == "" {
			return errors.New("empty key")
		}
		return creds.Set(id, secret)
	case "delete":
		return creds.Delete(id)
	default:
		return fmt.Errorf("unknown key action %q", action)
	}
}

// listKeys prints the providers with a stored key, never the key itself.
func listKeys(cfg *config.Config) error {
	store, err := db.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	creds, err := store.Credentials()
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		fmt.Println("No stored keys.")
	}
	for _, c := range creds {
		fmt.Printf("%-16s updated %s\n", c.ProviderID, c.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	for _, p := range cfg.Providers {
		if p.Kind == config.KindMock {
			continue
		}
		if os.Getenv(credential.EnvName(p.ID)) != "" {
			fmt.Printf("%-16s from %s\n", p.ID, credential.EnvName(p.ID))
		}
	}
	return nil
}

// listModels prints the models offered by a provider, the active one by
// default.
func listModels(cfg *config.Config, args []string) error {
	id := cfg.ActiveProvider
	if len(args) > 0 {
		id = args[0]
	}
	p, ok := cfg.Provider(id)
	if !ok {
		return fmt.Errorf("provider %q is not configured", id)
	}

	key := ""
	if p.Kind != config.KindMock {
		store, err := db.Open(cfg.DBPath())
		if err != nil {
			return err
		}
		defer store.Close()
		if key, err = credentialStore(cfg, store).Get(p.ID); err != nil {
			return err
		}
		if key == "" {
			return fmt.Errorf("%w for %s", transcribe.ErrMissingCredential, p.DisplayName())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout())
	defer cancel()
	models, err := transcribe.ListModels(ctx, &http.Client{Timeout: time.Minute}, p, key)
	if err != nil {
		return errors.New(transcribe.Describe(err))
	}
	for _, m := range models {
		if m.Free {
			fmt.Println(m.ID, ui.DimStyle.Render("(free)"))
		} else {
			fmt.Println(m.ID)
		}
	}
	return nil
}
