// Command dictate is a push-to-talk dictation utility. `dictate run` starts
// the controller and its trigger socket; the other subcommands drive a
// running instance over that socket.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/remberq/simple-voice-transcribe/internal/config"
)

const usage = `usage: dictate [-config path] <command> [args]

commands:
  run [-headless]        start the controller
  toggle | stop | tap    drive the running controller
  activate               start recording
  upload <file>          transcribe an existing audio file
  cancel|retry|delete|copy <job-id>
  clear                  clear the history
  status                 print the controller state
  jobs                   list the history
  watch                  stream state, job and toast events
  key list               show which providers have a key
  key set <provider> [secret]   store an API key (reads stdin when omitted)
  key delete <provider>
  models [provider]      list models offered by a provider
  init                   write the default config file
`

func main() {
	configPath := flag.String("config", config.DefaultPath(), "config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// .env supplies DICTATE_API_KEY_<ID> fallbacks; a missing file is fine.
	_ = godotenv.Load()

	if args[0] == "init" {
		exitOn(initConfig(*configPath))
		return
	}

	cfg, err := config.Load(*configPath)
	exitOn(err)

	switch cmd, rest := args[0], args[1:]; cmd {
	case "run":
		exitOn(run(cfg, rest))
	case "key":
		exitOn(keyCommand(cfg, rest))
	case "models":
		exitOn(listModels(cfg, rest))
	case "watch":
		exitOn(watch(cfg.Socket()))
	default:
		exitOn(trigger(cfg.Socket(), cmd, rest))
	}
}

func initConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Println("Wrote", path)
	return nil
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "dictate:", err)
		os.Exit(1)
	}
}
