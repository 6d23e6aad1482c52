// Command ctxforge is the operator-facing CLI for the optimizer pipeline:
// index a repository into an in-memory vector index, run reconstruct_prompt
// against it, or serve /healthz and /metrics for long-running use.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const (
	version         = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ctxforge",
		Short: "Retrieval and token-optimization pipeline for code-assistant context",
	}
	root.PersistentFlags().String("config", "", "path to config file (default ~/.config/ctxforge/config.yaml)")
	root.PersistentFlags().Bool("offline", false, "use the deterministic fake embedding provider instead of fastembed")
	root.PersistentFlags().String("backend", "", "index backend: memory, chromem, or qdrant (default: config's vectorstore.provider)")

	root.AddCommand(newIndexCmd())
	root.AddCommand(newOptimizeCmd())
	root.AddCommand(newServeCmd())
	return root
}
