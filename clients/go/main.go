// Parrot CLI - Command line chat client for the Parrot assistant
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/parrotlabs/parrot/clients/go/parrot"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("PARROT_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := parrot.NewClient(baseURL)
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health(context.Background())
		exitOnError(err)
		printJSON(resp)

	case "ask":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: parrot ask <question>")
			os.Exit(1)
		}
		ask(client, strings.Join(os.Args[2:], " "))

	case "chat":
		chat(client)

	case "suggest":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: parrot suggest <partial query>")
			os.Exit(1)
		}
		suggestions, err := client.Suggest(context.Background(), strings.Join(os.Args[2:], " "))
		exitOnError(err)
		for _, s := range suggestions {
			fmt.Println(s)
		}

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// ask submits a single question and streams the answer to stdout.
func ask(client *parrot.Client, question string) {
	turn, err := streamTurn(client, question, nil)
	exitOnError(err)
	if turn.Message == nil {
		fmt.Fprintln(os.Stderr, "(no answer)")
		return
	}
	fmt.Printf("\n(answered in %s)\n", turn.Message.Latency.Round(time.Millisecond))
}

// chat runs an interactive loop, carrying conversation history across
// turns the way the web UI does.
func chat(client *parrot.Client) {
	var history []parrot.Message
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Parrot chat. Empty line exits.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			return
		}

		turn, err := streamTurn(client, input, history)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			continue
		}
		fmt.Println()

		// A failed or empty turn leaves history unchanged.
		if turn.Message == nil {
			continue
		}
		history = append(history,
			parrot.Message{Role: parrot.RoleUser, Content: turn.Transcript},
			*turn.Message,
		)
	}
}

// streamTurn submits input and prints only the delta of each incremental
// update, so the answer renders progressively.
func streamTurn(client *parrot.Client, input string, history []parrot.Message) (*parrot.Turn, error) {
	printed := 0
	return client.SubmitText(context.Background(), input, history, func(full string) {
		fmt.Print(full[printed:])
		printed = len(full)
	})
}

func usage() {
	fmt.Println(`Parrot CLI - conversational assistant client

Usage: parrot <command> [options]

Commands:
  ask <question>       Ask a single question, stream the answer
  chat                 Interactive chat with conversation history
  suggest <partial>    Fetch autocomplete suggestions for a partial query
  health               Check server health

Environment:
  PARROT_URL   Server URL (default: http://localhost:8080)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
