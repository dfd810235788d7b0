// Package kafka publishes screening results as events: one message per
// screened query keyed by the query name, and one summary message per run.
package kafka

import (
	"context"
	"strconv"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
)

// QueryScreenedEvent is the payload of a per-query message.
type QueryScreenedEvent struct {
	RunID     string              `json:"run_id"`
	Index     int                 `json:"index"`
	Query     molecule.QueryInput `json:"query"`
	Outcome   screening.Outcome   `json:"outcome"`
	Escalated bool                `json:"escalated"`
	Matches   []screening.Match   `json:"matches"`
}

// RunCompletedEvent is the payload of the per-run message.
type RunCompletedEvent struct {
	Summary screening.Summary `json:"summary"`
	Queries int               `json:"queries"`
}

// ResultPublisher turns runs into messages.
type ResultPublisher struct {
	producer *Producer
	logger   logging.Logger
}

// NewResultPublisher returns a publisher writing through producer.
func NewResultPublisher(producer *Producer, logger logging.Logger) *ResultPublisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ResultPublisher{producer: producer, logger: logger}
}

// MessageKey is the partition key of a result: the query name, or its input
// position when the name is blank.
func MessageKey(r *screening.Result) string {
	if r.Query.Name != "" {
		return r.Query.Name
	}
	return "query-" + strconv.Itoa(r.Index)
}

// Messages builds the messages for run without sending them.
func (p *ResultPublisher) Messages(run *screening.Run) ([]Message, error) {
	cfg := p.producer.Config()
	runID := run.Summary.RunID
	out := make([]Message, 0, len(run.Results)+1)
	for _, r := range run.Results {
		env, err := NewEventEnvelope(EventQueryScreened, QueryScreenedEvent{
			RunID:     runID,
			Index:     r.Index,
			Query:     r.Query,
			Outcome:   r.Outcome,
			Escalated: r.Escalated,
			Matches:   r.Matches,
		})
		if err != nil {
			return nil, err
		}
		env.Metadata = map[string]string{"run_id": runID, "outcome": string(r.Outcome)}
		msg, err := env.ToMessage(cfg.ResultTopic, MessageKey(r))
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}

	env, err := NewEventEnvelope(EventRunCompleted, RunCompletedEvent{Summary: run.Summary, Queries: len(run.Results)})
	if err != nil {
		return nil, err
	}
	env.Metadata = map[string]string{"run_id": runID}
	msg, err := env.ToMessage(cfg.RunTopic, runID)
	if err != nil {
		return nil, err
	}
	return append(out, msg), nil
}

// PublishRun sends every message of run, batch by batch.  The run summary is
// sent last.
func (p *ResultPublisher) PublishRun(ctx context.Context, run *screening.Run) error {
	msgs, err := p.Messages(run)
	if err != nil {
		return err
	}
	size := p.producer.Config().BatchSize
	for start := 0; start < len(msgs); start += size {
		end := min(start+size, len(msgs))
		if err := p.producer.PublishBatch(ctx, msgs[start:end]); err != nil {
			return err
		}
	}
	p.logger.Info("screening results published",
		logging.String("run_id", run.Summary.RunID),
		logging.Int("messages", len(msgs)))
	return nil
}

// Close closes the underlying producer.
func (p *ResultPublisher) Close() error {
	return p.producer.Close()
}

//Personal.AI order the ending
