package server

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/spektr-org/immistat/engine"
	"github.com/spektr-org/immistat/internal/metrics"
	"github.com/spektr-org/immistat/loader"
)

// ErrNoDataset is returned while no dataset has been loaded yet.
var ErrNoDataset = errors.New("no dataset loaded")

// LoadFunc produces a fresh dataset.
type LoadFunc func(ctx context.Context) (*loader.Result, error)

// Holder owns the dataset being served. Readers never lock; a reload builds a
// new Dataset and swaps it in wholesale. Concurrent reloads share one load.
type Holder struct {
	current atomic.Pointer[engine.Dataset]
	load    LoadFunc
	group   singleflight.Group
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

// NewHolder creates an empty Holder. Call Reload or Set before serving.
func NewHolder(load LoadFunc, m *metrics.Metrics, log logrus.FieldLogger) *Holder {
	if log == nil {
		log = logrus.New()
	}
	return &Holder{load: load, metrics: m, log: log}
}

// Dataset returns the served dataset or ErrNoDataset.
func (h *Holder) Dataset() (*engine.Dataset, error) {
	ds := h.current.Load()
	if ds == nil {
		return nil, ErrNoDataset
	}
	return ds, nil
}

// Set replaces the served dataset.
func (h *Holder) Set(ds *engine.Dataset) {
	h.current.Store(ds)
}

// Reload loads a new dataset and swaps it in. On failure the previous
// dataset keeps serving.
func (h *Holder) Reload(ctx context.Context) (*engine.Dataset, error) {
	v, err, shared := h.group.Do("reload", func() (any, error) {
		// one caller giving up must not cancel the shared load
		return h.reload(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	ds := v.(*engine.Dataset)
	if shared {
		h.log.WithField("dataset", ds.ID).Debug("joined in-flight reload")
	}
	return ds, nil
}

func (h *Holder) reload(ctx context.Context) (*engine.Dataset, error) {
	if h.load == nil {
		return nil, errors.New("no loader configured")
	}
	start := time.Now()
	res, err := h.load(ctx)
	if err != nil {
		h.metrics.IncrementLoadFailure()
		h.log.WithError(err).Error("dataset reload failed")
		return nil, err
	}
	h.metrics.ObserveLoad(res.Dataset.Len(), len(res.Coercions), time.Since(start))

	prev := h.current.Swap(res.Dataset)
	fields := logrus.Fields{
		"dataset": res.Dataset.ID,
		"records": res.Dataset.Len(),
		"elapsed": time.Since(start).String(),
	}
	if prev != nil {
		fields["previous"] = prev.ID
	}
	h.log.WithFields(fields).Info("dataset swapped")
	return res.Dataset, nil
}
