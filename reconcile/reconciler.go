// CLAUDE:SUMMARY Reconciler: compares stored vs cookie-observed mode per site and heals the store toward observed truth.
// Package reconcile resolves disagreement between the mode stored for a
// site and the mode its marker cookies actually put in effect.
//
// Stored state heals toward the observed cookies, never the reverse: the
// reconciler holds a read-only cookie oracle and cannot change cookies.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/xdswitch/mode"
	"github.com/hazyhaar/xdswitch/prefstore"
)

var (
	// ErrPersist wraps a failed corrective store write.
	ErrPersist = errors.New("reconcile: persist failed")
	// ErrSuperseded is returned when a mode change for the same site
	// started while the pass was in flight. Nothing was written.
	ErrSuperseded = errors.New("reconcile: superseded by a mode change")
)

// Detector reports the mode observed for a site.
type Detector interface {
	Detect(ctx context.Context, siteKey string) (mode.Mode, error)
}

// Recorder receives every finished pass. Implementations must not block.
type Recorder interface {
	RecordReconcile(ctx context.Context, r Result, err error)
}

// Result is the outcome of one pass.
type Result struct {
	Site      string    `json:"site"`
	Stored    mode.Mode `json:"stored"`
	Observed  mode.Mode `json:"observed"`
	Mode      mode.Mode `json:"mode"`
	Corrected bool      `json:"corrected"`
}

// Reconciler compares the preference store with the cookie oracle.
type Reconciler struct {
	store    prefstore.Store
	detector Detector
	epochs   *Epochs
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithEpochs enables the supersession guard shared with the mode writer.
func WithEpochs(e *Epochs) Option { return func(r *Reconciler) { r.epochs = e } }

// WithRecorder sets a hook called after every pass.
func WithRecorder(rec Recorder) Option { return func(r *Reconciler) { r.recorder = rec } }

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option { return func(r *Reconciler) { r.logger = l } }

// New creates a Reconciler.
func New(store prefstore.Store, detector Detector, opts ...Option) *Reconciler {
	r := &Reconciler{store: store, detector: detector, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile runs one pass for siteKey.
//
// On a cookie lookup failure the store is left alone and Result.Mode is
// Off, for painting only. On a failed corrective write Result.Mode is the
// observed mode and the error wraps ErrPersist.
func (r *Reconciler) Reconcile(ctx context.Context, siteKey string) (Result, error) {
	res, err := r.reconcile(ctx, siteKey)
	if r.recorder != nil {
		r.recorder.RecordReconcile(ctx, res, err)
	}
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, siteKey string) (Result, error) {
	res := Result{Site: siteKey}
	epoch := r.epochs.Current(siteKey)

	stored, err := r.store.Get(ctx, siteKey)
	if err != nil {
		r.logger.Warn("reconcile: read stored mode failed, assuming default",
			"site", siteKey, "error", err)
		stored = prefstore.DefaultMode
	}
	res.Stored = stored

	observed, err := r.detector.Detect(ctx, siteKey)
	if err != nil {
		res.Mode = mode.Off
		return res, err
	}
	res.Observed = observed

	if observed == stored {
		res.Mode = stored
		return res, nil
	}

	if r.epochs.Current(siteKey) != epoch {
		res.Mode = observed
		return res, ErrSuperseded
	}

	res.Mode = observed
	res.Corrected = true
	if err := r.store.Set(ctx, siteKey, observed); err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrPersist, siteKey, err)
	}
	r.logger.Info("reconcile: corrected drift",
		"site", siteKey, "stored", stored, "observed", observed)
	return res, nil
}
