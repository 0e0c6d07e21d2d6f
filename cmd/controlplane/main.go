// Command controlplane runs the envoyage xDS control plane: an Aggregated
// Discovery Service gRPC endpoint plus a management HTTP API, backed by an
// in-memory configuration store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "envoyage",
		Short: "envoyage is an Aggregated Discovery Service control plane for Envoy",
	}
	root.AddCommand(newServeCommand())
	return root
}
