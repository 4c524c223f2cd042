package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/smarthttp/pkg/smarthttp"
)

func newRefsCommand() *cobra.Command {
	var (
		service string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "refs <url>",
		Short: "Dump the raw ref advertisement for a repository",
		Long: `Opens a discovery stream against the repository and copies the raw
pkt-line advertisement to stdout. The service flag picks the direction:
"upload" asks git-upload-pack (fetch), "receive" asks git-receive-pack
(push).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := discoveryService(service)
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
				return fmt.Errorf("failed to open discovery stream: %w", err)
			}
			defer stream.Free()

			if _, err := io.Copy(cmd.OutOrStdout(), stream); err != nil {
				return fmt.Errorf("failed to read ref advertisement: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "upload", "Protocol direction: upload or receive")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log transport activity to stderr")

	return cmd
}

func discoveryService(name string) (smarthttp.Service, error) {
	switch name {
	case "upload":
		return smarthttp.ServiceUploadPackLS, nil
	case "receive":
		return smarthttp.ServiceReceivePackLS, nil
	}
	return 0, fmt.Errorf("unknown service %q (want upload or receive)", name)
}
