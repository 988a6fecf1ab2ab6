package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "optbench",
		Short: "Benchmark and rank optimized build variants of a native binary",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "optbench.yaml", "config file path")
	root.AddCommand(newRunCmd())
	root.AddCommand(newParseCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newListCmd())
	return root
}
