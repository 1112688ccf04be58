// Package main provides the terminal reader entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/flashread/internal/app/session"
	"github.com/osa030/flashread/internal/app/source"
	"github.com/osa030/flashread/internal/infra/config"
	"github.com/osa030/flashread/internal/infra/logger"
	"github.com/osa030/flashread/internal/tui"
)

var (
	app        = kingpin.New("flashread", "Speed reader: shows text one word at a time")
	configPath = app.Flag("config", "Path to config file").Default("config/flashread.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file").Default(filepath.Join(os.TempDir(), "flashread.log")).String()
	wpm        = app.Flag("wpm", "Reading speed in words per minute").Int()

	// read command (default)
	readCmd  = app.Command("read", "Read a file, or text typed into the reader (default)").Default()
	readFile = readCmd.Arg("file", "Text file to load").String()

	// fetch command
	fetchCmd      = app.Command("fetch", "Fetch text from a web page, then read it")
	fetchURL      = fetchCmd.Arg("url", "Page to fetch").Required().String()
	fetchEmail    = fetchCmd.Flag("email", "Login email (or set FLASHREAD_EMAIL env)").Envar("FLASHREAD_EMAIL").String()
	fetchPassword = fetchCmd.Flag("password", "Login password (or set FLASHREAD_PASSWORD env)").Envar("FLASHREAD_PASSWORD").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// The terminal belongs to the reader, so logs go to a file
	loggerConfig := logger.Config{Output: *logfile, Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var options tui.Options
	switch command {
	case readCmd.FullCommand():
		if *readFile != "" {
			options.Fetch = &source.Request{URL: *readFile}
		}
	case fetchCmd.FullCommand():
		req, err := fetchRequest(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		options.Fetch = req
	}

	if err := run(cfg, options); err != nil {
		zlog.Error().Msgf("Reader error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, options tui.Options) error {
	if *wpm != 0 {
		cfg.Reader.WPM = *wpm
	}

	chain, err := source.NewChainFromConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create source providers")
	}

	sess, err := session.NewManager(cfg, chain)
	if err != nil {
		return errors.Wrap(err, "failed to create session")
	}
	defer sess.Close()

	return tui.Run(sess, options)
}

// fetchRequest builds the fetch request, prompting for credentials that
// were not given by flag, environment or config.
func fetchRequest(cfg *config.Config) (*source.Request, error) {
	req := &source.Request{
		Email:    firstNonEmpty(*fetchEmail, cfg.Source.Email),
		Password: firstNonEmpty(*fetchPassword, cfg.Source.Password),
		URL:      strings.TrimSpace(*fetchURL),
	}
	if req.Email != "" && req.Password != "" {
		return req, nil
	}

	rl, err := readline.NewEx(&readline.Config{Prompt: ">> "})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open prompt")
	}
	defer rl.Close()

	fmt.Println("Login for " + req.URL + " (leave empty if the page is public)")
	if req.Email == "" {
		rl.SetPrompt("Email: ")
		line, err := rl.Readline()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read email")
		}
		req.Email = strings.TrimSpace(line)
	}
	if req.Password == "" && req.Email != "" {
		pw, err := rl.ReadPassword("Password: ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to read password")
		}
		req.Password = string(pw)
	}
	return req, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
