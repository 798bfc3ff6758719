package stats

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"

	. "github.com/ahmetb/go-linq"

	"github.com/renlord/bitcoin-txodump/pkg/common"
)

// Summary aggregates a finished txo dump.
type Summary struct {
	Records    int
	TotalValue btcutil.Amount
	AvgValue   float64
	AvgCoinAge float64
	AvgFeeRate float64
	MaxCoinAge uint32

	// fee rate distribution, nearest-rank percentiles in satoshi per byte
	FeeRateP50 uint64
	FeeRateP90 uint64
	FeeRateP99 uint64
}

// Collect reads a finished dump file and computes the summary.
func Collect(path string) (*Summary, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Records: len(records)}
	if len(records) == 0 {
		return summary, nil
	}

	totalValue := From(records).SelectT(func(r *common.SpendRecord) int64 {
		return int64(r.Value)
	}).SumInts()

	avgCoinAge := From(records).SelectT(func(r *common.SpendRecord) uint32 {
		return r.CoinAge
	}).Average()

	avgFeeRate := From(records).SelectT(func(r *common.SpendRecord) int64 {
		return int64(r.FeeRate)
	}).Average()

	maxCoinAge := From(records).SelectT(func(r *common.SpendRecord) uint32 {
		return r.CoinAge
	}).Max()

	var sortedRates []uint64
	From(records).SelectT(func(r *common.SpendRecord) uint64 {
		return r.FeeRate
	}).OrderByT(func(rate uint64) uint64 {
		return rate
	}).ToSlice(&sortedRates)

	summary.TotalValue = btcutil.Amount(totalValue)
	summary.AvgValue = float64(totalValue) / float64(len(records))
	summary.AvgCoinAge = avgCoinAge
	summary.AvgFeeRate = avgFeeRate
	summary.MaxCoinAge = maxCoinAge.(uint32)
	summary.FeeRateP50 = percentile(sortedRates, 50)
	summary.FeeRateP90 = percentile(sortedRates, 90)
	summary.FeeRateP99 = percentile(sortedRates, 99)
	return summary, nil
}

// percentile picks the nearest-rank percentile from an ascending slice.
func percentile(sorted []uint64, p int) uint64 {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}

	return sorted[rank-1]
}

func readRecords(path string) ([]*common.SpendRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dump file %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.Comma = ';'
	reader.FieldsPerRecord = 4

	var records []*common.SpendRecord
	for {
		line, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "failed to read dump file %s", path)
		}

		record, err := parseRecord(line)
		if err != nil {
			return nil, errors.Wrapf(err, "bad record in %s", path)
		}

		records = append(records, record)
	}

	return records, nil
}

func parseRecord(line []string) (*common.SpendRecord, error) {
	height, err := strconv.ParseUint(line[0], 10, 32)
	if err != nil {
		return nil, err
	}

	coinAge, err := strconv.ParseUint(line[1], 10, 32)
	if err != nil {
		return nil, err
	}

	feeRate, err := strconv.ParseUint(line[2], 10, 64)
	if err != nil {
		return nil, err
	}

	value, err := strconv.ParseUint(line[3], 10, 64)
	if err != nil {
		return nil, err
	}

	return &common.SpendRecord{
		Height:  uint32(height),
		CoinAge: uint32(coinAge),
		FeeRate: feeRate,
		Value:   value,
	}, nil
}
