// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Global flags
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "evelog",
	Short: "evelog - EVE JSON event logger",
	Long: `evelog serializes decoded packets and flows into EVE JSON events and
delivers them to a file, syslog, a unix socket, Redis, Kafka or NATS.

Settings come from the config file (root key "evelog"), EVELOG_* environment
variables and the flags below, in increasing order of precedence.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file path (defaults only when empty)")
	addOutputFlags(pf)

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(configCmd)
}

// addOutputFlags registers the flags that override eve_log settings.
func addOutputFlags(fs *pflag.FlagSet) {
	fs.String("sink", "", "sink kind: file, syslog, unix_dgram, unix_stream, redis, kafka, nats")
	fs.String("prefix", "", "static prefix written before every record")
	fs.String("sensor-name", "", "value of the host field")
	fs.String("sensor-id", "", "numeric sensor id added to every event")
	fs.Bool("no-metadata", false, "omit flow and packet annotations")
	fs.Bool("community-id", false, "add the community flow id")
	fs.String("community-id-seed", "", "community id seed (0-65535)")
	fs.Bool("pcap-file", false, "add pcap_filename to events in replay mode")
}
