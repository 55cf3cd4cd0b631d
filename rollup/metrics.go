// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rollup

import (
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	clones        prometheus.Counter
	commits       prometheus.Counter
	undelegations prometheus.Counter
	commitFailed  prometheus.Counter
	tracked       prometheus.Gauge
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		clones: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rollup",
			Name:      "clones",
			Help:      "number of accounts cloned from the base ledger",
		}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rollup",
			Name:      "commits",
			Help:      "number of account snapshots committed to the base ledger",
		}),
		undelegations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rollup",
			Name:      "undelegations",
			Help:      "number of accounts returned to the base ledger",
		}),
		commitFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rollup",
			Name:      "commit_failed",
			Help:      "number of commit batches rejected by the base ledger",
		}),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rollup",
			Name:      "tracked",
			Help:      "number of delegated accounts held by the rollup",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.clones),
		r.Register(m.commits),
		r.Register(m.undelegations),
		r.Register(m.commitFailed),
		r.Register(m.tracked),
	)
	return m, errs.Err
}
