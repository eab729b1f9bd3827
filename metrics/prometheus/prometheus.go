package prometheus

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/gridscan/gridscan/conf"
	"github.com/gridscan/gridscan/errors"
	"github.com/gridscan/gridscan/metrics"
)

type Factory struct {
	config     conf.Config
	lock       sync.Mutex
	httpServer *http.Server
	started    bool
}

func NewFactory(config conf.Config) *Factory {
	return &Factory{config: config}
}

var _ metrics.Factory = &Factory{}

func (f *Factory) CreateCounter(name string, description string) (metrics.Counter, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.started {
		return nil, errors.New("not started")
	}
	counter := promauto.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: description,
	})
	return &Counter{pCounter: counter}, nil
}

func (f *Factory) Start() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.started {
		return errors.New("already started")
	}
	metricsListenAddr := "localhost:2112"
	if f.config.MetricsHTTPListenAddr != "" {
		metricsListenAddr = f.config.MetricsHTTPListenAddr
	}
	f.httpServer = &http.Server{Addr: metricsListenAddr, Handler: promhttp.Handler()}
	f.started = true
	go func(srv *http.Server) {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("prometheus http export server failed to listen %v", err)
		} else {
			log.Debugf("Started prometheus http server on address %s", metricsListenAddr)
		}
	}(f.httpServer)
	return nil
}

func (f *Factory) Stop() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.started {
		return errors.New("not started")
	}
	f.started = false
	if f.httpServer != nil {
		return f.httpServer.Close()
	}
	return nil
}

type Counter struct {
	pCounter prometheus.Counter
}

func (c *Counter) Inc() {
	c.pCounter.Inc()
}

// Observer exports the scan phase timings and result volumes through
// prometheus. Safe for concurrent use by multiple partition workers.
type Observer struct {
	phaseSeconds *prometheus.SummaryVec
	records      prometheus.Counter
	bytes        prometheus.Counter

	lock   sync.Mutex
	starts map[string]time.Time
}

var _ metrics.ScanObserver = &Observer{}

func NewObserver() *Observer {
	return &Observer{
		starts: make(map[string]time.Time),
		phaseSeconds: promauto.NewSummaryVec(prometheus.SummaryOpts{
			Name: "gridscan_phase_seconds",
			Help: "Wall clock duration of scan phases",
		}, []string{"phase"}),
		records: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gridscan_records_total",
			Help: "Records materialized by partition scans",
		}),
		bytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gridscan_result_bytes_total",
			Help: "Result bytes materialized by partition scans",
		}),
	}
}

func (o *Observer) StartTimer(name string) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.starts[name] = time.Now()
}

func (o *Observer) FinishTimer(name string) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if start, ok := o.starts[name]; ok {
		o.phaseSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
		delete(o.starts, name)
	}
}

func (o *Observer) AddRecords(n int64) {
	o.records.Add(float64(n))
}

func (o *Observer) AddBytes(n int64) {
	o.bytes.Add(float64(n))
}
