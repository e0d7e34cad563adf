package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jrsteele09/ailab-client/preferences"
	"github.com/jrsteele09/ailab-client/session"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "GET an API path through the authenticated pipeline",
	Long: `Send a GET request to the AI Lab API. Private paths carry the stored
token; a rejected token ends the session.

Examples:
  ailab get /api/projects
  ailab get /api/users/me`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var postCmd = &cobra.Command{
	Use:   "post <path> <json>",
	Short: "POST a JSON body to an API path",
	Args:  cobra.ExactArgs(2),
	RunE:  runPost,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the session controller and print every status and token change",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(watchCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	return request(cmd, http.MethodGet, args[0], nil)
}

func runPost(cmd *cobra.Command, args []string) error {
	var body json.RawMessage
	if err := json.Unmarshal([]byte(args[1]), &body); err != nil {
		return fmt.Errorf("body is not valid JSON: %w", err)
	}
	return request(cmd, http.MethodPost, args[0], body)
}

func request(cmd *cobra.Command, method, path string, body any) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		printError(err)
		return err
	}
	defer a.Close()
	a.start(ctx)

	var result json.RawMessage
	if err := a.client.Do(ctx, method, path, body, &result); err != nil {
		a.settle(ctx, err)
		printError(err)
		return err
	}
	if len(result) == 0 {
		return nil
	}
	return printJSON(result)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		printError(err)
		return err
	}
	defer a.Close()

	tokens, err := a.store.Watch(ctx, preferences.KeyAuthToken)
	if err != nil {
		printError(err)
		return err
	}
	statuses := a.controller.Subscribe(ctx)
	a.start(ctx)

	for {
		select {
		case s, ok := <-statuses:
			if !ok {
				return nil
			}
			printStatus(s)
		case tok, ok := <-tokens:
			if !ok {
				return nil
			}
			if tok == nil {
				fmt.Println("token: <none>")
			} else {
				fmt.Printf("token: %s\n", mask(*tok))
			}
		case <-a.controller.Done():
			return nil
		}
	}
}

func printStatus(s session.Status) {
	if jsonOut {
		_ = printJSON(map[string]any{
			"state":            s.State.String(),
			"startDestination": s.StartDestination,
			"loading":          s.Loading,
		})
		return
	}
	fmt.Printf("status: %-10s start=%s loading=%t\n", s.State, s.StartDestination, s.Loading)
}

func mask(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + token[len(token)-4:]
}
