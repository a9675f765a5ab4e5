package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/parley/internal/appconfig"
	"pkt.systems/parley/schema"
	"pkt.systems/parley/stream"
	"pkt.systems/pslog"
)

func newChatCmd() *cobra.Command {
	var cfgPath string
	var backendURL string
	var conversation string
	var profile string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "chat [prompt|-]",
		Short: "Send one streaming turn to the chat backend",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if backendURL != "" {
				cfg.Backend.URL = backendURL
			}
			if profile != "" {
				cfg.Backend.ProfileID = profile
			}

			prompt, err := resolvePrompt(strings.Join(args, " "), cmd.InOrStdin())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			doneCh := make(chan schema.TurnResult, 1)
			errCh := make(chan string, 8)
			unauthCh := make(chan string, 1)
			var printed int
			consumer := stream.New(stream.Config{
				BackendURL: cfg.Backend.URL,
				StreamPath: cfg.Backend.StreamPath,
				LoginPath:  cfg.Backend.LoginPath,
				Logger:     logger,
			}, stream.Callbacks{
				OnContentDelta: func(full string) {
					_, _ = fmt.Fprint(out, full[printed:])
					printed = len(full)
				},
				OnToolCall: func(call schema.ToolCall, callID string) {
					logger.Info("tool call requested", "name", call.Name, "id", callID)
				},
				OnError: func(message string, metadata map[string]any) {
					select {
					case errCh <- message:
					default:
					}
				},
				OnComplete: func(result schema.TurnResult) {
					doneCh <- result
				},
				OnUnauthorized: func(loginURL string) {
					unauthCh <- loginURL
				},
			})

			req := schema.ChatRequest{
				Prompt:         prompt,
				ConversationID: schema.ConversationID(conversation),
				ProfileID:      schema.ProfileID(cfg.Backend.ProfileID),
				InterfaceType:  cfg.Backend.InterfaceType,
			}
			if err := consumer.Send(cmd.Context(), req); err != nil {
				return err
			}

			deadline := time.NewTimer(timeout)
			defer deadline.Stop()
			var lastErr string
			for {
				select {
				case <-cmd.Context().Done():
					consumer.Cancel()
					return cmd.Context().Err()
				case result := <-doneCh:
					_, _ = fmt.Fprintln(out)
					logger.Info("turn completed", "content_len", len(result.Content), "tool_calls", len(result.ToolCalls))
					return nil
				case loginURL := <-unauthCh:
					return fmt.Errorf("backend session unauthorized; log in at %s", loginURL)
				case msg := <-errCh:
					logger.Warn("stream error", "err", msg)
					lastErr = msg
					// Error records do not end a healthy turn, but a
					// transport failure leaves nothing else coming; give the
					// stream a short grace to finish before bailing out.
					deadline.Reset(3 * time.Second)
				case <-deadline.C:
					consumer.Cancel()
					if lastErr != "" {
						return errors.New(lastErr)
					}
					return errors.New("stream timed out")
				}
			}
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&backendURL, "backend", "", "backend base URL (overrides config)")
	cmd.Flags().StringVar(&conversation, "conversation", "", "conversation id")
	cmd.Flags().StringVar(&profile, "profile", "", "profile id (overrides config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall turn timeout")
	return cmd
}

func resolvePrompt(arg string, stdin io.Reader) (string, error) {
	if arg == "-" {
		return readStdinPrompt(stdin)
	}
	if strings.TrimSpace(arg) != "" {
		return arg, nil
	}
	if isTerminalReader(stdin) {
		return "", errors.New("no prompt provided")
	}
	return readStdinPrompt(stdin)
}

func readStdinPrompt(stdin io.Reader) (string, error) {
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("no prompt provided via stdin")
	}
	return prompt, nil
}

func isTerminalReader(stdin io.Reader) bool {
	file, ok := stdin.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
