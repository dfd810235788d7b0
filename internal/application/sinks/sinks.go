// Package sinks delivers a finished screening run to the optional external
// destinations: the run database, the artifact bucket and the event stream.
// Every sink is attempted; failures are retried with exponential backoff and
// then aggregated.  A failed sink never aborts the others.
package sinks

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/turtacn/ligandscreen/internal/application/reporting"
	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// Sink is one delivery destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, run *screening.Run, artifacts reporting.Artifacts) error
}

// Recorder times and counts sink deliveries.  StartSinkWrite is called
// before the first attempt; the returned func receives the final error.
type Recorder interface {
	StartSinkWrite(sink string) func(err error)
}

type nopRecorder struct{}

func (nopRecorder) StartSinkWrite(string) func(error) { return func(error) {} }

// RetryPolicy bounds the retries of a single sink.
type RetryPolicy struct {
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

// DefaultRetryPolicy is three retries starting at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  30 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = p.MaxElapsedTime
	return backoff.WithContext(backoff.WithMaxRetries(eb, p.MaxRetries), ctx)
}

// Dispatcher fans a run out to its sinks.
type Dispatcher struct {
	sinks    []Sink
	policy   RetryPolicy
	logger   logging.Logger
	recorder Recorder
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

func WithLogger(l logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// NewDispatcher returns a dispatcher over sinks.  Nil sinks are skipped.
func NewDispatcher(sinks []Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		policy:   DefaultRetryPolicy(),
		logger:   logging.NewNopLogger(),
		recorder: nopRecorder{},
	}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Len is the number of configured sinks.
func (d *Dispatcher) Len() int { return len(d.sinks) }

// Deliver sends run to every sink in order.  The returned error, if any,
// is a *multierror.Error naming each failed sink.
func (d *Dispatcher) Deliver(ctx context.Context, run *screening.Run, artifacts reporting.Artifacts) error {
	var result *multierror.Error
	for _, s := range d.sinks {
		name := s.Name()
		done := d.recorder.StartSinkWrite(name)
		attempts := 0
		op := func() error {
			attempts++
			err := s.Deliver(ctx, run, artifacts)
			if err != nil && !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		notify := func(err error, wait time.Duration) {
			d.logger.Warn("sink delivery failed, retrying",
				logging.String("sink", name),
				logging.Int("attempt", attempts),
				logging.Duration("wait", wait),
				logging.Err(err))
		}
		err := backoff.RetryNotify(op, d.policy.backOff(ctx), notify)
		done(err)
		if err != nil {
			d.logger.Error("sink delivery failed",
				logging.String("sink", name),
				logging.String("run_id", run.Summary.RunID),
				logging.Int("attempts", attempts),
				logging.Err(err))
			result = multierror.Append(result, errors.Wrap(err, errors.ErrCodeSinkFailed, "deliver run").WithDetail(name))
			continue
		}
		d.logger.Info("sink delivered",
			logging.String("sink", name),
			logging.String("run_id", run.Summary.RunID))
	}
	return result.ErrorOrNil()
}

// retryable reports whether a sink error may succeed on another attempt.
// Validation and configuration problems never will.
func retryable(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest, errors.ErrCodeConfigInvalid,
		errors.ErrCodeSerialization:
		return false
	}
	return true
}

//Personal.AI order the ending
