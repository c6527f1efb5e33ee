package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"basicd/pkg/bus"
	"basicd/pkg/event"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:           "basicctl",
		Short:         "Client for the basicd streaming service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&addr, "addr", "http://127.0.0.1:8080", "Base URL of the basicd server")

	cmd.AddCommand(newHelloCommand(&addr))
	cmd.AddCommand(newBackgroundCommand(&addr))
	cmd.AddCommand(newTalkCommand(&addr))
	cmd.AddCommand(newWatchCommand())
	return cmd
}

func newHelloCommand(addr *string) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "hello",
		Short: "Request a greeting envelope",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(map[string]string{"message": message})
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				*addr+"/v1/hello", strings.NewReader(string(body)))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("hello failed: %s", resp.Status)
			}

			return printIndented(cmd.OutOrStdout(), resp.Body)
		},
	}

	cmd.Flags().StringVar(&message, "message", "World", "Message to greet with")
	return cmd
}

func newBackgroundCommand(addr *string) *cobra.Command {
	var processes int

	cmd := &cobra.Command{
		Use:   "background",
		Short: "Run a background batch and stream its progress envelopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/v1/background?processes=%d", *addr, processes)
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("background failed: %s", resp.Status)
			}

			scanner := bufio.NewScanner(resp.Body)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if err := printIndented(cmd.OutOrStdout(), strings.NewReader(line)); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().IntVar(&processes, "processes", 1, "Number of parallel work units to request")
	return cmd
}

func newTalkCommand(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "talk",
		Short: "Hold a conversation; reads messages from stdin until a goodbye",
		RunE: func(cmd *cobra.Command, args []string) error {
			pr, pw := io.Pipe()

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
				*addr+"/v1/talk", pr)
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/x-ndjson")

			go func() {
				enc := json.NewEncoder(pw)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					if err := enc.Encode(map[string]string{"message": scanner.Text()}); err != nil {
						break
					}
				}
				pw.Close()
			}()

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("talk failed: %s", resp.Status)
			}

			out := cmd.OutOrStdout()
			dec := json.NewDecoder(resp.Body)
			for {
				var reply struct {
					Answer  string `json:"answer"`
					Goodbye bool   `json:"goodbye"`
				}
				if err := dec.Decode(&reply); err != nil {
					if err == io.EOF {
						return nil
					}
					return err
				}
				fmt.Fprintln(out, reply.Answer)
				if reply.Goodbye {
					return nil
				}
			}
		},
	}
}

func newWatchCommand() *cobra.Command {
	var (
		natsURL string
		durable string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch envelopes mirrored to NATS by running batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			eventBus, err := bus.New(natsURL)
			if err != nil {
				return fmt.Errorf("connect nats: %w", err)
			}
			defer eventBus.Close()

			out := cmd.OutOrStdout()
			sub, err := eventBus.Subscribe(cmd.Context(), bus.SubjectBackground, durable,
				func(_ context.Context, env event.Envelope) error {
					data, err := json.Marshal(env)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(out, string(data))
					return err
				})
			if err != nil {
				return err
			}
			defer sub.Close()

			<-cmd.Context().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats-url", "nats://127.0.0.1:4222", "NATS endpoint to watch")
	cmd.Flags().StringVar(&durable, "durable", "basicctl-watch", "Durable consumer name")
	return cmd
}

func printIndented(out io.Writer, src io.Reader) error {
	var v any
	if err := json.NewDecoder(src).Decode(&v); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
