package dump

import (
	"go.uber.org/zap"

	"github.com/renlord/bitcoin-txodump/pkg/common"
)

// Summary is handed to the Reporter when a run completes.
type Summary struct {
	StartHeight uint32
	EndHeight   uint32
	Totals      common.Totals
	LiveUTXOs   int // entries still unspent at the end of the run
}

// Reporter receives the completion summary. Injected instead of a global
// logging facility so callers decide where totals end up.
type Reporter interface {
	Report(s Summary)
}

type logReporter struct {
	logger *zap.Logger
}

// NewLogReporter reports the summary through the given logger.
func NewLogReporter(logger *zap.Logger) Reporter {
	return &logReporter{logger: logger}
}

func (r *logReporter) Report(s Summary) {
	r.logger.Info("dumped all blocks",
		zap.Uint32("start height", s.StartHeight),
		zap.Uint32("end height", s.EndHeight),
		zap.Uint64("blocks", s.Totals.Blocks),
		zap.Uint64("transactions", s.Totals.TxCount),
		zap.Uint64("inputs", s.Totals.InCount),
		zap.Uint64("outputs", s.Totals.OutCount),
		zap.Int("live utxos", s.LiveUTXOs),
	)
}
