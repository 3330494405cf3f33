// Command demo is a runnable illustration of github.com/fluxqueue/taskqueue:
// it loads tuning from an optional YAML file, submits a batch of jobs
// tagged with trace ids, logs progress with logrus, and serves Prometheus
// metrics while it runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/fluxqueue/taskqueue"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	metricsAddr := flag.String("metrics-addr", ":9091", "address to serve /metrics on")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := defaultDemoConfig()
	if *configPath != "" {
		loaded, err := loadDemoConfig(*configPath)
		if err != nil {
			log.WithError(err).Fatal("failed to load config")
		}
		cfg = loaded
	}

	registry := prometheus.NewRegistry()
	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		log.WithField("addr", *metricsAddr).Info("serving metrics")
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()

	opts := []taskqueue.Option{
		taskqueue.WithConcurrency(cfg.Concurrency),
		taskqueue.WithIntervalCap(cfg.IntervalCap),
		taskqueue.WithInterval(cfg.Interval),
		taskqueue.WithLogger(log),
		taskqueue.WithMetrics(registry),
	}
	if cfg.Strict {
		opts = append(opts, taskqueue.WithStrict(true))
	}

	q, err := taskqueue.NewQueue(opts...)
	if err != nil {
		log.WithError(err).Fatal("failed to construct queue")
	}
	defer q.Close()

	events, unsubscribe := q.Subscribe(32)
	defer unsubscribe()
	go func() {
		for ev := range events {
			log.WithField("kind", ev.Kind).Debug("queue event")
		}
	}()

	futures := make([]*taskqueue.Future, 0, cfg.JobCount)
	for i := 0; i < cfg.JobCount; i++ {
		traceID := uuid.NewString()
		priority := rand.Intn(3)
		f, err := q.Add(func(ctx context.Context) (any, error) {
			time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)
			return traceID, nil
		}, taskqueue.WithPriority(priority))
		if err != nil {
			log.WithError(err).Warn("failed to submit job")
			continue
		}
		futures = append(futures, f)
	}

	for _, f := range futures {
		val, err := f.Wait(context.Background())
		if err != nil {
			log.WithError(err).WithField("task_id", f.ID()).Warn("job failed")
			continue
		}
		fmt.Printf("job %s completed with trace %v\n", f.ID(), val)
	}
}
