package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mdnooraj/folio/internal/api"
	"github.com/mdnooraj/folio/internal/assistant"
	"github.com/mdnooraj/folio/internal/config"
	"github.com/mdnooraj/folio/internal/contact"
	"github.com/mdnooraj/folio/internal/storage"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant one question",
	Long: `Ask the assistant one question and print its reply.

Examples:
  folio ask "What are your skills?"
  folio ask tell me about your education`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		prof, err := loadProfile(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reply, err := assistant.Ask(ctx, prof, strings.Join(args, " "), assistantOptions(cfg)...)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Chat with the assistant in the terminal.

Type a question and press enter. /toggle flips the widget's visibility,
/quit (or end of input) leaves.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		prof, err := loadProfile(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), prof, assistantOptions(cfg))
	},
}

// runChat drives one widget from line-oriented input. Each submitted line
// waits for its reply before the next line is read.
func runChat(ctx context.Context, in io.Reader, out io.Writer, src assistant.Source, opts []assistant.Option) error {
	replies := make(chan assistant.Message, 1)
	seen := 1 // the greeting
	opts = append(opts, assistant.WithObserver(func(s assistant.State) {
		for _, m := range s.Transcript[min(seen, len(s.Transcript)):] {
			if m.Sender == assistant.Assistant {
				select {
				case replies <- m:
				default:
				}
			}
		}
		seen = len(s.Transcript)
	}))

	w := assistant.New(src, opts...)
	defer w.Close()

	for _, m := range w.State().Transcript {
		printMessage(out, m)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, colorize(colorBold, "> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "/quit":
			return nil
		case "/toggle":
			w.ToggleVisibility()
			if w.State().Open {
				fmt.Fprintln(out, "(widget open)")
			} else {
				fmt.Fprintln(out, "(widget closed)")
			}
			continue
		}

		w.UpdateDraft(line)
		if !w.Submit() {
			continue
		}

		select {
		case m := <-replies:
			printMessage(out, m)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printMessage(out io.Writer, m assistant.Message) {
	if m.Sender != assistant.Assistant {
		return
	}
	fmt.Fprintf(out, "%s %s\n", colorize(colorCyan, "assistant:"), m.Text)
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect the profile record",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the profile record as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		prof, err := loadProfile(cfg)
		if err != nil {
			return err
		}

		if summary, _ := cmd.Flags().GetBool("summary"); summary {
			fmt.Fprintln(cmd.OutOrStdout(), prof.Summary())
			return nil
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(prof.Record())
	},
}

func init() {
	profileShowCmd.Flags().Bool("summary", false, "print a one-paragraph text summary instead")
	profileCmd.AddCommand(profileShowCmd)
}

// --- inbox ---

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Read contact messages from the running server",
}

var inboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent contact messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listInbox(cmd.Context(), client, cmd.OutOrStdout(), limit, offset)
	},
}

func listInbox(ctx context.Context, client *apiClient, out io.Writer, limit, offset int) error {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))

	resp, err := client.get(ctx, "/api/inbox?"+q.Encode())
	if err != nil {
		return err
	}

	var inbox api.InboxPage
	if err := decodeJSON(resp, &inbox); err != nil {
		return err
	}

	if len(inbox.Messages) == 0 {
		fmt.Fprintln(out, "No messages.")
		return nil
	}

	for _, m := range inbox.Messages {
		fmt.Fprintf(out, "%s  %s  %s <%s>  %s\n",
			colorize(colorCyan, shortID(m.ID)),
			m.CreatedAt.Format("2006-01-02 15:04"),
			m.Name,
			m.Email,
			preview(m.Message, 60),
		)
	}
	if shown := offset + len(inbox.Messages); shown < inbox.Total {
		fmt.Fprintf(out, "(%d of %d, use --offset %d for more)\n", shown, inbox.Total, shown)
	}
	return nil
}

var inboxShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single contact message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/inbox/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var msg storage.ContactMessage
		if err := decodeJSON(resp, &msg); err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(msg)
	},
}

var inboxDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a contact message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/api/inbox/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, nil); err != nil {
			return err
		}

		printSuccess("Deleted message %s", args[0])
		return nil
	},
}

func init() {
	inboxListCmd.Flags().Int("limit", 20, "maximum number of messages to list")
	inboxListCmd.Flags().Int("offset", 0, "number of messages to skip")
	inboxCmd.AddCommand(inboxListCmd)
	inboxCmd.AddCommand(inboxShowCmd)
	inboxCmd.AddCommand(inboxDeleteCmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// preview flattens text onto one line and cuts it to n runes.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return text
}

// --- send ---

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Leave a message through the running server's contact endpoint",
	Long: `Leave a message through the running server's contact endpoint.

Example:
  folio send --name Ada --email ada@example.com --message "Let's talk"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		message, _ := cmd.Flags().GetString("message")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		receipt, err := sendMessage(cmd.Context(), client, contact.Submission{
			Name:    name,
			Email:   email,
			Message: message,
		})
		if err != nil {
			return err
		}

		printSuccess("%s (id %s)", receipt.Acknowledgement, shortID(receipt.ID))
		return nil
	},
}

func sendMessage(ctx context.Context, client *apiClient, sub contact.Submission) (contact.Receipt, error) {
	resp, err := client.post(ctx, "/api/contact", sub)
	if err != nil {
		return contact.Receipt{}, err
	}
	var receipt contact.Receipt
	if err := decodeJSON(resp, &receipt); err != nil {
		return contact.Receipt{}, err
	}
	return receipt, nil
}

func init() {
	sendCmd.Flags().String("name", "", "your name")
	sendCmd.Flags().String("email", "", "your email address")
	sendCmd.Flags().String("message", "", "message text")
	sendCmd.MarkFlagRequired("name")
	sendCmd.MarkFlagRequired("email")
	sendCmd.MarkFlagRequired("message")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in the config file.\n\nValid keys: " +
		strings.Join(config.ValidKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant to MCP clients over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Log.Level)
		slog.SetDefault(logger)

		prof, err := loadProfile(cfg)
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Profile:       prof,
			Contact:       contact.NewService(store, nil, logger),
			AssistantOpts: assistantOptions(cfg),
			Version:       version,
		})

		logger.Info("MCP server started (stdio transport)")
		stdioSrv := server.NewStdioServer(mcpSrv)
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	},
}
