package main

import (
	"Wishful/internal/entity"
	"bufio"
	"Wishful/internal/subscription"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	FlagRedialDelay = "redial-delay"
	FlagInteractive = "interactive"
)

// GetWatchCmd returns the command following a wishlist live and printing its products on every change.
func GetWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <wishlistId>",
		Short: "Follow the products of a wishlist live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverUrl, _ := cmd.Flags().GetString(FlagServerUrl)
			token, _ := cmd.Flags().GetString(FlagToken)
			redialDelay, _ := cmd.Flags().GetDuration(FlagRedialDelay)
			interactive, _ := cmd.Flags().GetBool(FlagInteractive)
			if token == "" {
				token = os.Getenv("WISHFUL_TOKEN")
			}
			if token == "" {
				return fmt.Errorf("--%s or WISHFUL_TOKEN is required, see the login command", FlagToken)
			}

			rest := subscription.NewRestClient(serverUrl)
			rest.SetToken(token)
			cfg := subscription.DefaultConfig()
			cfg.URL = socketURL(serverUrl)
			cfg.Token = token

			watcher := subscription.NewWatcher(cfg, rest, redialDelay, logger)
			out := cmd.OutOrStdout()
			watcher.View().OnChange(func(products []entity.ProductView) {
				printProducts(out, watcher.View().Wishlist(), products)
			})
			watcher.OnError(func(payload entity.ErrorPayload) {
				fmt.Fprintf(cmd.ErrOrStderr(), "server: %s\n", payload.Message)
			})

			// Wait for signal
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if interactive {
				go runCommands(ctx, watcher, cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			if err := watcher.Run(ctx, args[0]); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String(FlagServerUrl, "http://localhost:8080", "(optional) server url")
	cmd.Flags().String(FlagToken, "", "access token printed by the login command")
	cmd.Flags().Duration(FlagRedialDelay, 2*time.Second, "(optional) pause between reconnect attempts")
	cmd.Flags().Bool(FlagInteractive, false, "(optional) read add, delete, comment and react commands from stdin")

	return cmd
}

// socketURL turns http://host into ws://host/api/ws.
func socketURL(serverUrl string) string {
	serverUrl = strings.TrimRight(serverUrl, "/")
	switch {
	case strings.HasPrefix(serverUrl, "https://"):
		serverUrl = "wss://" + strings.TrimPrefix(serverUrl, "https://")
	case strings.HasPrefix(serverUrl, "http://"):
		serverUrl = "ws://" + strings.TrimPrefix(serverUrl, "http://")
	}
	return serverUrl + "/api/ws"
}

// Mutations of the watched wishlist, implemented by subscription.Watcher.
type mutator interface {
	AddProduct(ctx context.Context, input entity.ProductInput) (entity.ProductView, error)
	DeleteProduct(ctx context.Context, productID string) error
	AddComment(ctx context.Context, productID, text string) (entity.ProductView, error)
	ToggleReaction(ctx context.Context, productID, emoji string) (entity.ProductView, bool, error)
}

// runCommands applies one command per line of in until it ends:
//
//	add <name>
//	delete <productId>
//	comment <productId> <text>
//	react <productId> <emoji>
func runCommands(ctx context.Context, m mutator, in io.Reader, errOut io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 3)
		var err error
		switch {
		case fields[0] == "":
			continue
		case fields[0] == "add" && len(fields) > 1:
			_, err = m.AddProduct(ctx, entity.ProductInput{Name: strings.Join(fields[1:], " ")})
		case fields[0] == "delete" && len(fields) == 2:
			err = m.DeleteProduct(ctx, fields[1])
		case fields[0] == "comment" && len(fields) == 3:
			_, err = m.AddComment(ctx, fields[1], fields[2])
		case fields[0] == "react" && len(fields) == 3:
			_, _, err = m.ToggleReaction(ctx, fields[1], fields[2])
		default:
			err = fmt.Errorf("unknown command %q", scanner.Text())
		}
		if err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
		}
	}
}

func printProducts(w io.Writer, wishlist entity.Wishlist, products []entity.ProductView) {
	fmt.Fprintf(w, "== %s (%d products) ==\n", wishlist.Name, len(products))
	for _, p := range products {
		fmt.Fprintf(w, "%-26s %-30s %8.2f  %s  by %s  [%d comments, %d reactions]\n",
			p.ID, p.Name, p.Price, p.Category, p.AddedBy.DisplayName(), len(p.Comments), len(p.Reactions))
	}
}

func init() {
	rootCmd.AddCommand(GetWatchCmd())
}
