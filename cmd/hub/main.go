// Command hub runs the Cloi agent-to-agent coordination hub.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	pidFile    string
)

func main() {
	root := &cobra.Command{
		Use:   "hub",
		Short: "Cloi agent-to-agent coordination hub",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&pidFile, "pidfile", defaultPIDFile(), "path to the hub's PID file")

	root.AddCommand(newStartCommand(), newStopCommand(), newStatusCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func defaultPIDFile() string {
	dir := os.TempDir()
	return dir + string(os.PathSeparator) + "cloi-hub.pid"
}
