package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/parley/internal/mockchat"
	"pkt.systems/pslog"
)

func newMockServeCmd() *cobra.Command {
	var addr string
	var chunkSize int
	var delay time.Duration
	var token string
	cmd := &cobra.Command{
		Use:   "mock-serve",
		Short: "Run a mock chat backend speaking the streaming wire protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			mock := mockchat.New(mockchat.Config{
				ChunkSize:    chunkSize,
				Delay:        delay,
				RequireToken: token,
				Logger:       logger,
			})
			server := &http.Server{
				Addr:    addr,
				Handler: mock.Handler(),
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()
			logger.Info("mock chat backend listening", "addr", addr)

			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Warn("mock backend shutdown failed", "err", err)
				}
				return nil
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":27490", "listen address")
	cmd.Flags().IntVar(&chunkSize, "chunk", 0, "flush the response in chunks of this many bytes")
	cmd.Flags().DurationVar(&delay, "delay", 0, "delay between flushes")
	cmd.Flags().StringVar(&token, "token", "", "require this bearer token, answering 401 without it")
	return cmd
}
