package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/ligandscreen/internal/application/screening"
)

func TestScreeningMetrics_ObserveQuery(t *testing.T) {
	c := newTestCollector(t)
	m := NewScreeningMetrics(c)

	m.ObserveQuery(screening.OutcomeMatched, 1000, false, 20*time.Millisecond)
	m.ObserveQuery(screening.OutcomeMatched, 1000, true, 40*time.Millisecond)
	m.ObserveQuery(screening.OutcomeNoCandidates, 1000, false, time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_queries_total{outcome="matched"} 2`)
	assert.Contains(t, out, `test_unit_queries_total{outcome="no_candidates"} 1`)
	assert.Contains(t, out, "test_unit_comparisons_total 3000")
	assert.Contains(t, out, "test_unit_escalations_total 1")
	assert.Contains(t, out, `test_unit_query_duration_seconds_count{escalated="true"} 1`)
}

func TestScreeningMetrics_AnnotationObserver(t *testing.T) {
	c := newTestCollector(t)
	m := NewScreeningMetrics(c)

	m.PrimaryCall(true, 100*time.Millisecond)
	m.PrimaryCall(false, time.Second)
	m.SecondaryCall(true, 50*time.Millisecond)
	m.CacheHits(7)
	m.StoreHits(3)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_annotation_calls_total{service="primary",status="success"} 1`)
	assert.Contains(t, out, `test_unit_annotation_calls_total{service="primary",status="failure"} 1`)
	assert.Contains(t, out, `test_unit_annotation_calls_total{service="secondary",status="success"} 1`)
	assert.Contains(t, out, `test_unit_annotation_cache_hits_total{layer="memory"} 7`)
	assert.Contains(t, out, `test_unit_annotation_cache_hits_total{layer="store"} 3`)
}

func TestScreeningMetrics_Recorders(t *testing.T) {
	c := newTestCollector(t)
	m := NewScreeningMetrics(c)

	m.SetCorpus(90, 10)
	m.RecordHTTPRequest("POST", "/api/v1/screen", 200, 30*time.Millisecond)
	done := m.TrackActiveRequest("POST")
	m.TrackActiveRequest("GET")
	done()
	m.RecordResultCache(true)
	m.RecordResultCache(false)
	m.RecordRun(nil)
	m.RecordRun(errors.New("boom"))
	m.RecordSinkWrite("kafka", nil)
	m.StartSinkWrite("postgres")(errors.New("db down"))
	m.RecordGRPCRequest("grpc.health.v1.Health", "Check", "OK", 2*time.Millisecond)
	m.RecordError("sink", "SCR_003")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_corpus_records{state="valid"} 90`)
	assert.Contains(t, out, `test_unit_corpus_records{state="invalid"} 10`)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",path="/api/v1/screen",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_http_active_requests{method="POST"} 0`)
	assert.Contains(t, out, `test_unit_http_active_requests{method="GET"} 1`)
	assert.Contains(t, out, `test_unit_result_cache_total{result="hit"} 1`)
	assert.Contains(t, out, `test_unit_result_cache_total{result="miss"} 1`)
	assert.Contains(t, out, `test_unit_runs_total{status="failure"} 1`)
	assert.Contains(t, out, `test_unit_sink_writes_total{sink="kafka",status="success"} 1`)
	assert.Contains(t, out, `test_unit_sink_writes_total{sink="postgres",status="failure"} 1`)
	assert.Contains(t, out, `test_unit_sink_write_duration_seconds_count{sink="postgres"} 1`)
	assert.Contains(t, out, `test_unit_grpc_requests_total{code="OK",method="Check",service="grpc.health.v1.Health"} 1`)
	assert.Contains(t, out, `test_unit_grpc_request_duration_seconds_count{method="Check",service="grpc.health.v1.Health"} 1`)
	assert.Contains(t, out, `test_unit_errors_total{code="SCR_003",component="sink"} 1`)
}

//Personal.AI order the ending
