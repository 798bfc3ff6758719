package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/renlord/bitcoin-txodump/pkg/dump"
	"github.com/renlord/bitcoin-txodump/pkg/stats"
)

var statsFolder string

// statsCommand summarizes a finished dump
var statsCommand = &cobra.Command{
	Use:   "stats",
	Short: "Summarizes a finished txo dump",
	Long:  `Summarizes a finished txo dump.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(statsFolder, dump.FinalName)
		summary, err := stats.Collect(path)
		if err != nil {
			return err
		}

		logger.Info("dump stats",
			zap.String("file", path),
			zap.Int("records", summary.Records),
			zap.String("total value", summary.TotalValue.String()),
			zap.Float64("avg value", summary.AvgValue),
			zap.Float64("avg coin age", summary.AvgCoinAge),
			zap.Float64("avg fee rate", summary.AvgFeeRate),
			zap.Uint64("fee rate p50", summary.FeeRateP50),
			zap.Uint64("fee rate p90", summary.FeeRateP90),
			zap.Uint64("fee rate p99", summary.FeeRateP99),
			zap.Uint32("max coin age", summary.MaxCoinAge),
		)
		return nil
	},
}

func init() {
	statsCommand.Flags().StringVarP(&statsFolder, "folder", "f", "", "folder containing the CSV file (required)")
	statsCommand.MarkFlagRequired("folder")

	RootCmd.AddCommand(statsCommand)
}
