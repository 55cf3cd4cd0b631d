// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package runtime

import (
	"github.com/ava-labs/avalanchego/utils/metric"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	txsSucceeded prometheus.Counter
	txsFailed    prometheus.Counter
	stateChanges prometheus.Counter
	instructions *prometheus.CounterVec
	execute      metric.Averager
}

func newMetrics(namespace string) (*prometheus.Registry, *metrics, error) {
	r := prometheus.NewRegistry()
	execute, err := metric.NewAverager(
		namespace+"_execute",
		"time spent executing a transaction",
		r,
	)
	if err != nil {
		return nil, nil, err
	}
	m := &metrics{
		execute: execute,
		txsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_succeeded",
			Help:      "number of transactions committed",
		}),
		txsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_failed",
			Help:      "number of transactions rejected",
		}),
		stateChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_changes",
			Help:      "number of account keys written",
		}),
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instructions",
			Help:      "number of instructions run, including cross-program invocations",
		}, []string{"program"}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.txsSucceeded),
		r.Register(m.txsFailed),
		r.Register(m.stateChanges),
		r.Register(m.instructions),
	)
	return r, m, errs.Err
}
