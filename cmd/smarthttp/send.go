package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fenilsonani/smarthttp/pkg/smarthttp"
)

func newSendCommand() *cobra.Command {
	var (
		service string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "send <url>",
		Short: "Run a pack exchange from stdin",
		Long: `Opens an exchange stream against the repository, posts stdin as the
request body, then copies the server's response to stdout. The body is
expected to be a well-formed upload-pack or receive-pack request; this
command does not build one for you.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := exchangeService(service)
			if err != nil {
				return err
			}

			t, err := newTransport(args[0], verbose)
			if err != nil {
				return err
			}
			defer t.Close()

			stream, err := t.Action(cmd.Context(), svc)
			if err != nil {
				return fmt.Errorf("failed to open exchange stream: %w", err)
			}
			defer stream.Free()

			if _, err := io.Copy(stream, cmd.InOrStdin()); err != nil {
				return fmt.Errorf("failed to send request body: %w", err)
			}
			if _, err := io.Copy(cmd.OutOrStdout(), stream); err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "upload", "Protocol direction: upload or receive")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log transport activity to stderr")

	return cmd
}

func exchangeService(name string) (smarthttp.Service, error) {
	switch name {
	case "upload":
		return smarthttp.ServiceUploadPack, nil
	case "receive":
		return smarthttp.ServiceReceivePack, nil
	}
	return 0, fmt.Errorf("unknown service %q (want upload or receive)", name)
}

func newTransport(url string, verbose bool) (*smarthttp.Transport, error) {
	opts := []smarthttp.Option{}
	if verbose {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger()
		opts = append(opts, smarthttp.WithLogger(logger))
	}

	t, err := smarthttp.New(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	return t, nil
}
