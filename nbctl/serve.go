/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	apachelog "github.com/lestrrat-go/apache-logformat"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/unrolled/secure"
	"github.com/urfave/negroni"
	"go.uber.org/zap"

	"github.com/rayhong24/cmpt310-a4/classifier"
	"github.com/rayhong24/cmpt310-a4/common/zaperr"
)

type nbMetrics struct {
	classifications *prometheus.CounterVec
	classifyErrors  prometheus.Counter
	accuracy        *prometheus.GaugeVec
	selectedK       prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *nbMetrics {
	m := &nbMetrics{
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nb_classifications_total",
				Help: "Number of datums classified, by predicted label.",
			},
			[]string{"label"}),
		classifyErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nb_classify_errors_total",
				Help: "Number of failed classification requests.",
			}),
		accuracy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nb_validation_accuracy",
				Help: "Validation accuracy in percent, by smoothing parameter.",
			},
			[]string{"k"}),
		selectedK: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nb_selected_k",
				Help: "Smoothing parameter of the serving model.",
			}),
	}
	reg.MustRegister(m.classifications, m.classifyErrors, m.accuracy, m.selectedK)
	return m
}

var regionNames = map[int]string{
	classifier.ClassifyUncertain: "uncertain",
	classifier.ClassifyCrossing:  "crossing",
	classifier.ClassifyCertain:   "certain",
}

type classifyRequest struct {
	Datums []classifier.Datum `json:"datums"`
}

type resultJSON struct {
	Label       string              `json:"label"`
	Probability float64             `json:"probability"`
	NextProb    float64             `json:"next_prob"`
	Region      string              `json:"region"`
	LogJoint    map[string]*float64 `json:"log_joint"`
}

type classifyResponse struct {
	Results []resultJSON `json:"results"`
}

type modelResponse struct {
	K        float64            `json:"k"`
	Labels   []string           `json:"labels"`
	Prior    map[string]float64 `json:"prior"`
	Features int                `json:"features"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func newErrorResponse(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}
	if ze, ok := errors.Cause(err).(zaperr.ZapError); ok {
		if ze.Kind() != nil {
			resp.Kind = ze.Kind().Error()
		}
		resp.Reason = ze.Msg()
	}
	return resp
}

type server struct {
	model          *classifier.Model
	certainAbove   float64
	uncertainBelow float64
	metrics        *nbMetrics
	slog           *zap.SugaredLogger
}

func newServer(nb *classifier.NaiveBayes, cfg *config, reg prometheus.Registerer,
	slog *zap.SugaredLogger) *server {

	s := &server{
		model:          nb.Model(),
		certainAbove:   cfg.Report.CertainAbove,
		uncertainBelow: cfg.Report.UncertainBelow,
		metrics:        newMetrics(reg),
		slog:           slog,
	}
	for _, c := range nb.Candidates() {
		s.metrics.accuracy.WithLabelValues(fmt.Sprintf("%g", c.K)).Set(c.Accuracy())
	}
	s.metrics.selectedK.Set(nb.K())
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func toResultJSON(r classifier.Result) resultJSON {
	lj := make(map[string]*float64, len(r.LogJoint))
	for l, v := range r.LogJoint {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			lj[string(l)] = nil
			continue
		}
		v := v
		lj[string(l)] = &v
	}
	return resultJSON{
		Label:       string(r.Label),
		Probability: r.Probability,
		NextProb:    r.NextProb,
		Region:      regionNames[r.Region],
		LogJoint:    lj,
	}
}

func (s *server) classifyHandler(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		s.metrics.classifyErrors.Inc()
		writeJSON(w, http.StatusBadRequest,
			errorResponse{Error: fmt.Sprintf("bad request: %v", err)})
		return
	}

	// Model is read-only; a Classifier per request keeps requests apart.
	c := classifier.NewClassifier(s.model)
	if _, err := c.Classify(req.Datums); err != nil {
		s.metrics.classifyErrors.Inc()
		s.slog.Errorw("classify failed", "error", errors.Cause(err))
		writeJSON(w, http.StatusUnprocessableEntity, newErrorResponse(err))
		return
	}

	resp := classifyResponse{Results: make([]resultJSON, 0, len(req.Datums))}
	for _, res := range c.Results(s.certainAbove, s.uncertainBelow) {
		s.metrics.classifications.WithLabelValues(string(res.Label)).Inc()
		resp.Results = append(resp.Results, toResultJSON(res))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) modelHandler(w http.ResponseWriter, r *http.Request) {
	resp := modelResponse{
		K:        s.model.K,
		Labels:   make([]string, len(s.model.Labels)),
		Prior:    make(map[string]float64, len(s.model.Prior)),
		Features: len(s.model.Features),
	}
	for i, l := range s.model.Labels {
		resp.Labels[i] = string(l)
		resp.Prior[string(l)] = s.model.Prior[l]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) router(metricsHandler http.Handler) *mux.Router {
	router := mux.NewRouter()
	// promhttp compresses on its own.
	router.Handle("/v1/classify",
		gziphandler.GzipHandler(http.HandlerFunc(s.classifyHandler))).Methods("POST")
	router.Handle("/v1/model",
		gziphandler.GzipHandler(http.HandlerFunc(s.modelHandler))).Methods("GET")
	router.Handle("/metrics", metricsHandler).Methods("GET")
	return router
}

// handler wraps the router with panic recovery, security headers and an
// access log written to accessLog in combined log format.
func (s *server) handler(metricsHandler http.Handler, accessLog io.Writer) http.Handler {
	recovery := negroni.NewRecovery()
	recovery.Logger = zap.NewStdLog(s.slog.Desugar())
	recovery.PrintStack = false

	secureMW := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
	})

	n := negroni.New(recovery)
	n.Use(negroni.HandlerFunc(secureMW.HandlerFuncWithNext))
	n.UseHandler(apachelog.CombinedLog.Wrap(s.router(metricsHandler), accessLog))
	return n
}

func serveSub(b *backdrop, cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("dataset")

	nb, _, err := b.trainDataset(context.Background(), name)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	s := newServer(nb, b.cfg, reg, b.slog)
	srv := &http.Server{
		Addr:    b.cfg.Serve.Listen,
		Handler: s.handler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), os.Stderr),
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	b.slog.Infof(checkMark+"serving %s (k=%g) on %s", name, nb.K(), srv.Addr)

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		b.slog.Infof("Signal (%v) received, stopping", s)
	case err := <-errc:
		return errors.Wrap(err, "serve")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
