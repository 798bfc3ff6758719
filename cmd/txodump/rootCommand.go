package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "txodump",
	Short: "btctxodump",
	Long:  `Dumps the spent transaction outputs of a bitcoin block range into a CSV file.`,
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Fatalf("Something went terribly wrong: %v", err)
		os.Exit(-1)
	}
}

func init() {
	logger, _ = zap.NewDevelopment(zap.AddStacktrace(zapcore.FatalLevel))
}
