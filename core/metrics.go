package core

import "github.com/ethereum/go-ethereum/metrics"

var (
	batchCommittedCounter = metrics.NewRegisteredCounter("taskexec/batch/committed", nil)
	batchAbortedCounter   = metrics.NewRegisteredCounter("taskexec/batch/aborted", nil)
	batchTimer            = metrics.NewRegisteredTimer("taskexec/batch/duration", nil)
	actionMeter           = metrics.NewRegisteredMeter("taskexec/action/executed", nil)
	feeMeter              = metrics.NewRegisteredMeter("taskexec/fee/charged", nil)
)
