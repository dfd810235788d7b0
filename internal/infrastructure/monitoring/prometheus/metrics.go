package prometheus

import (
	"strconv"
	"time"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/domain/annotation"
)

// ScreeningMetrics holds the metrics of a screening process.  It implements
// annotation.Observer and screening.Recorder so the resolver and the engine
// can report into it directly.
type ScreeningMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// gRPC Layer
	GRPCRequestsTotal   CounterVec
	GRPCRequestDuration HistogramVec

	// Screening
	QueriesTotal     CounterVec
	QueryDuration    HistogramVec
	ComparisonsTotal CounterVec
	EscalationsTotal CounterVec
	CorpusRecords    GaugeVec
	ResultCacheTotal CounterVec
	RunsTotal        CounterVec

	// Annotation
	AnnotationCallsTotal   CounterVec
	AnnotationCallDuration HistogramVec
	AnnotationCacheHits    CounterVec

	// Sinks
	SinkWritesTotal   CounterVec
	SinkWriteDuration HistogramVec

	ErrorsTotal CounterVec
}

var (
	DefaultHTTPDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultQueryDurationBuckets      = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultAnnotationDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultSinkDurationBuckets       = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120}
)

// NewScreeningMetrics registers all metrics on collector.
func NewScreeningMetrics(collector MetricsCollector) *ScreeningMetrics {
	m := &ScreeningMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.GRPCRequestsTotal = collector.RegisterCounter("grpc_requests_total", "Total gRPC requests", "service", "method", "code")
	m.GRPCRequestDuration = collector.RegisterHistogram("grpc_request_duration_seconds", "gRPC request duration", DefaultHTTPDurationBuckets, "service", "method")

	m.QueriesTotal = collector.RegisterCounter("queries_total", "Screened queries by outcome", "outcome")
	m.QueryDuration = collector.RegisterHistogram("query_duration_seconds", "Per-query screening duration", DefaultQueryDurationBuckets, "escalated")
	m.ComparisonsTotal = collector.RegisterCounter("comparisons_total", "Similarity comparisons performed")
	m.EscalationsTotal = collector.RegisterCounter("escalations_total", "Queries that required tier-2 annotation")
	m.CorpusRecords = collector.RegisterGauge("corpus_records", "Corpus records by validity", "state")
	m.ResultCacheTotal = collector.RegisterCounter("result_cache_total", "API result cache lookups", "result")
	m.RunsTotal = collector.RegisterCounter("runs_total", "Screening runs by status", "status")

	m.AnnotationCallsTotal = collector.RegisterCounter("annotation_calls_total", "Annotation service calls", "service", "status")
	m.AnnotationCallDuration = collector.RegisterHistogram("annotation_call_duration_seconds", "Annotation service call duration", DefaultAnnotationDurationBuckets, "service")
	m.AnnotationCacheHits = collector.RegisterCounter("annotation_cache_hits_total", "Annotation lookups served without a network call", "layer")

	m.SinkWritesTotal = collector.RegisterCounter("sink_writes_total", "Result sink writes", "sink", "status")
	m.SinkWriteDuration = collector.RegisterHistogram("sink_write_duration_seconds", "Sink delivery duration including retries", DefaultSinkDurationBuckets, "sink")

	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// PrimaryCall implements annotation.Observer.
func (m *ScreeningMetrics) PrimaryCall(ok bool, elapsed time.Duration) {
	m.annotationCall("primary", ok, elapsed)
}

// SecondaryCall implements annotation.Observer.
func (m *ScreeningMetrics) SecondaryCall(ok bool, elapsed time.Duration) {
	m.annotationCall("secondary", ok, elapsed)
}

func (m *ScreeningMetrics) annotationCall(service string, ok bool, elapsed time.Duration) {
	m.AnnotationCallsTotal.WithLabelValues(service, status(ok)).Inc()
	m.AnnotationCallDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// CacheHits implements annotation.Observer.
func (m *ScreeningMetrics) CacheHits(n int) {
	m.AnnotationCacheHits.WithLabelValues("memory").Add(float64(n))
}

// StoreHits implements annotation.Observer.
func (m *ScreeningMetrics) StoreHits(n int) {
	m.AnnotationCacheHits.WithLabelValues("store").Add(float64(n))
}

// ObserveQuery implements screening.Recorder.
func (m *ScreeningMetrics) ObserveQuery(outcome screening.Outcome, comparisons int, escalated bool, elapsed time.Duration) {
	m.QueriesTotal.WithLabelValues(string(outcome)).Inc()
	m.ComparisonsTotal.WithLabelValues().Add(float64(comparisons))
	if escalated {
		m.EscalationsTotal.WithLabelValues().Inc()
	}
	m.QueryDuration.WithLabelValues(strconv.FormatBool(escalated)).Observe(elapsed.Seconds())
}

// SetCorpus publishes the corpus validity counts.
func (m *ScreeningMetrics) SetCorpus(valid, invalid int) {
	m.CorpusRecords.WithLabelValues("valid").Set(float64(valid))
	m.CorpusRecords.WithLabelValues("invalid").Set(float64(invalid))
}

// RecordHTTPRequest records one served request.
func (m *ScreeningMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest counts a request as in flight until the returned func
// is called.
func (m *ScreeningMetrics) TrackActiveRequest(method string) func() {
	g := m.HTTPActiveRequests.WithLabelValues(method)
	g.Inc()
	return g.Dec
}

// RecordGRPCRequest records one served gRPC call.
func (m *ScreeningMetrics) RecordGRPCRequest(service, method, code string, duration time.Duration) {
	m.GRPCRequestsTotal.WithLabelValues(service, method, code).Inc()
	m.GRPCRequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordResultCache records a result-cache lookup.
func (m *ScreeningMetrics) RecordResultCache(hit bool) {
	if hit {
		m.ResultCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	m.ResultCacheTotal.WithLabelValues("miss").Inc()
}

// RecordRun counts a finished run.
func (m *ScreeningMetrics) RecordRun(err error) {
	m.RunsTotal.WithLabelValues(status(err == nil)).Inc()
}

// RecordSinkWrite counts one sink delivery.
func (m *ScreeningMetrics) RecordSinkWrite(sink string, err error) {
	m.SinkWritesTotal.WithLabelValues(sink, status(err == nil)).Inc()
}

// StartSinkWrite times a sink delivery.  The returned func observes the
// elapsed time and counts the write with its final error.
func (m *ScreeningMetrics) StartSinkWrite(sink string) func(err error) {
	timer := NewTimer(m.SinkWriteDuration.WithLabelValues(sink))
	return func(err error) {
		timer.ObserveDuration()
		m.RecordSinkWrite(sink, err)
	}
}

// RecordError counts an error by component and code.
func (m *ScreeningMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

var (
	_ annotation.Observer = (*ScreeningMetrics)(nil)
	_ screening.Recorder  = (*ScreeningMetrics)(nil)
)

//Personal.AI order the ending
