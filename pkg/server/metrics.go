// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"bytes"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

var (
	// request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpdis_requests_total",
			Help: "Total number of requests by method, command and status",
		},
		[]string{"method", "command", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpdis_request_duration_seconds",
			Help:    "Request handling latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "command"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpdis_requests_in_flight",
			Help: "Current number of requests being processed",
		},
	)

	// Rate limiting metrics
	rateLimitRejects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpdis_rate_limit_rejects_total",
			Help: "Total number of requests rejected due to rate limiting",
		},
	)

	// Panic recovery metrics
	panicRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpdis_panic_recoveries_total",
			Help: "Total number of panics recovered in command handlers",
		},
	)

	authFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpdis_auth_failures_total",
			Help: "Total number of requests rejected by basic authentication",
		},
	)
)

// metricsHandler renders the default registry in the text exposition format.
func metricsHandler(_ *Request) (any, error) {
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, format)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}

	return NewResponse(http.StatusOK, buf.Bytes()).
		SetHeader("Content-Type", string(format)), nil
}
