package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/renlord/bitcoin-txodump/pkg/dump"
	"github.com/renlord/bitcoin-txodump/pkg/stream"
	"github.com/renlord/bitcoin-txodump/pkg/utxo"
)

var (
	options struct {
		dumpFolder     string
		btcRPCURL      string
		btcRPCUser     string
		btcRPCPassword string
		coin           string
		startHeight    uint32
		endHeight      uint32
		expectedUTXOs  uint32
	}
)

// dumpCommand represents the command that replays a block range and dumps
// the spent transaction outputs
var dumpCommand = &cobra.Command{
	Use:   "dump",
	Short: "Dumps the spent transaction outputs into a CSV file",
	Long:  `Dumps the spent transaction outputs into a CSV file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := stream.NewClient(options.btcRPCURL, options.btcRPCUser, options.btcRPCPassword, logger)
		if err != nil {
			return err
		}
		defer client.Close()

		txoDump, err := dump.NewTXODump(options.dumpFolder, logger,
			dump.WithSetOptions(utxo.WithCapacity(options.expectedUTXOs)))
		if err != nil {
			return err
		}

		driver := stream.NewDriver(client, txoDump, logger)
		if err := driver.Run(options.coin, options.startHeight, options.endHeight); err != nil {
			if discardErr := txoDump.Discard(); discardErr != nil {
				logger.Warn("could not release working file", zap.Error(discardErr))
			}
			return errors.Wrap(err, "dump run failed")
		}

		logger.Info("dump finished", zap.String("folder", options.dumpFolder))
		return nil
	},
}

func init() {
	dumpCommand.Flags().StringVarP(&options.dumpFolder, "folder", "f", "", "folder to store the CSV file (required)")
	dumpCommand.Flags().StringVarP(&options.btcRPCURL, "url", "", "127.0.0.1:8332", "bitcoin rpc url")
	dumpCommand.Flags().StringVarP(&options.btcRPCUser, "user", "u", "bitcoinrpc", "bitcoin rpc username")
	dumpCommand.Flags().StringVarP(&options.btcRPCPassword, "password", "p", "", "bitcoin rpc password")
	dumpCommand.Flags().StringVarP(&options.coin, "coin", "c", "bitcoin", "coin name")
	dumpCommand.Flags().Uint32Var(&options.startHeight, "start", 0, "first block height to process")
	dumpCommand.Flags().Uint32Var(&options.endHeight, "end", 0, "last block height to process (0 = chain tip)")
	dumpCommand.Flags().Uint32Var(&options.expectedUTXOs, "capacity", utxo.DefaultShards*utxo.DefaultCapacity, "expected live utxo count, used to pre-size the set")
	dumpCommand.MarkFlagRequired("folder")

	RootCmd.AddCommand(dumpCommand)
}
