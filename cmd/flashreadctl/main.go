// Package main provides the reader control client entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"google.golang.org/protobuf/types/known/structpb"

	apiconnect "github.com/osa030/flashread/internal/api/connect"
	"github.com/osa030/flashread/internal/app/notification"
)

var (
	app    = kingpin.New("flashreadctl", "flashread server control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Control token (or set FLASHREAD_CONTROL_TOKEN env)").Envar("FLASHREAD_CONTROL_TOKEN").String()

	// load command
	loadCmd  = app.Command("load", "Load text from a local file (- for stdin)")
	loadFile = loadCmd.Arg("file", "Text file").Required().String()

	// speed command
	speedCmd = app.Command("speed", "Set the reading speed")
	speedWPM = speedCmd.Arg("wpm", "Words per minute").Required().String()

	// playback commands
	startCmd  = app.Command("start", "Start or resume reading")
	pauseCmd  = app.Command("pause", "Pause reading")
	rewindCmd = app.Command("rewind", "Go back to the first word")

	// fetch command
	fetchCmd      = app.Command("fetch", "Have the server fetch text from a URL")
	fetchURL      = fetchCmd.Arg("url", "Page to fetch").Required().String()
	fetchEmail    = fetchCmd.Flag("email", "Login email (or set FLASHREAD_EMAIL env)").Envar("FLASHREAD_EMAIL").String()
	fetchPassword = fetchCmd.Flag("password", "Login password (or set FLASHREAD_PASSWORD env)").Envar("FLASHREAD_PASSWORD").String()

	// status command
	statusCmd = app.Command("status", "Show the session status")

	// watch command
	watchCmd = app.Command("watch", "Print words as the server shows them")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	controlCommand := command != statusCmd.FullCommand() && command != watchCmd.FullCommand()
	if controlCommand && *token == "" {
		fmt.Println("Error: control token is required (use --token or FLASHREAD_CONTROL_TOKEN env)")
		os.Exit(1)
	}

	client := apiconnect.NewReaderClient(http.DefaultClient, *server, *token)
	ctx := context.Background()

	var status *structpb.Struct
	var err error
	switch command {
	case loadCmd.FullCommand():
		var text string
		if text, err = readText(*loadFile); err == nil {
			status, err = client.LoadText(ctx, text)
		}
	case speedCmd.FullCommand():
		status, err = client.SetSpeed(ctx, *speedWPM)
	case startCmd.FullCommand():
		status, err = client.Start(ctx)
	case pauseCmd.FullCommand():
		status, err = client.Pause(ctx)
	case rewindCmd.FullCommand():
		status, err = client.Rewind(ctx)
	case fetchCmd.FullCommand():
		fmt.Println("Fetching text...")
		status, err = client.Fetch(ctx, *fetchEmail, *fetchPassword, *fetchURL)
	case statusCmd.FullCommand():
		status, err = client.GetStatus(ctx)
	case watchCmd.FullCommand():
		watch(ctx, client)
		return
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}
	printStatus(status)
}

func readText(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func printError(err error) {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		fmt.Printf("Error (%s): %s\n", connectErr.Code(), connectErr.Message())
		return
	}
	fmt.Printf("Error: %v\n", err)
}

func printStatus(s *structpb.Struct) {
	f := s.GetFields()
	position := int64(f[apiconnect.FieldPosition].GetNumberValue())
	total := int64(f[apiconnect.FieldTotal].GetNumberValue())

	fmt.Println("\n=== READER STATUS ===")
	fmt.Printf("State: %s\n", formatState(f[apiconnect.FieldState].GetStringValue(), f[apiconnect.FieldActivity].GetStringValue()))
	fmt.Printf("Progress: %s / %s words\n", humanize.Comma(position), humanize.Comma(total))
	fmt.Printf("Speed: %s wpm (%s ms per word)\n",
		humanize.Comma(int64(f[apiconnect.FieldWPM].GetNumberValue())),
		humanize.Comma(int64(f[apiconnect.FieldIntervalMs].GetNumberValue())))
	if word := f[apiconnect.FieldWord].GetStringValue(); word != "" {
		fmt.Printf("Word: %s\n", word)
	}
	if origin := f[apiconnect.FieldOrigin].GetStringValue(); origin != "" {
		fmt.Printf("Source: %s\n", origin)
	}
	fmt.Printf("Message: %s\n", f[apiconnect.FieldMessage].GetStringValue())
	fmt.Println()
}

func formatState(state, activity string) string {
	if activity == "fetching" {
		return "⏳ Fetching"
	}
	switch state {
	case "running":
		return "▶️  Reading"
	case "idle":
		return "⏸  Paused"
	default:
		return "❓ Unknown"
	}
}

func watch(ctx context.Context, client *apiconnect.ReaderClient) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Subscribe(ctx)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer stream.Close()

	fmt.Println("Watching the reader. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		cancel()
	}()

	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printNotification(n *structpb.Struct) {
	f := n.GetFields()
	seq := notification.SequenceNo(n)

	switch f[notification.FieldKind].GetStringValue() {
	case notification.KindInitial:
		fmt.Printf("[%d] === INITIAL STATE ===\n", seq)
		printStatus(n)
	case notification.KindWord:
		fmt.Printf("[%d] %6d  %s\n", seq, int(f[notification.FieldPosition].GetNumberValue())+1, f[notification.FieldWord].GetStringValue())
	case notification.KindState:
		fmt.Printf("[%d] --- %s (%s, %d/%d)\n", seq,
			f[notification.FieldEvent].GetStringValue(),
			f[notification.FieldState].GetStringValue(),
			int(f[notification.FieldPosition].GetNumberValue()),
			int(f[notification.FieldTotal].GetNumberValue()))
	}
}
