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
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// stage is one step of request handling. Errors are rendered once, after
// the whole chain returns.
type stage func(req *Request) (*Response, error)

// withMiddleware wraps a stage with the common middleware
func (s *Server) withMiddleware(next stage) stage {
	return s.metricsMiddleware(
		s.requestIDMiddleware(
			s.panicRecoveryMiddleware( // Recover first to prevent token waste on panics
				s.rateLimitMiddleware(
					s.loggingMiddleware(next),
				),
			),
		),
	)
}

// requestIDMiddleware extracts or generates request IDs
func (s *Server) requestIDMiddleware(next stage) stage {
	return func(req *Request) (*Response, error) {
		requestID := req.header.Get("X-Request-Id")
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}

		req.vars[VarRequestID] = requestID
		req.ctx = context.WithValue(req.ctx, contextKeyRequestID, requestID)

		return next(req)
	}
}

// rateLimitMiddleware rejects requests above the configured rate. OPTIONS
// is always answered and spends no token.
func (s *Server) rateLimitMiddleware(next stage) stage {
	return func(req *Request) (*Response, error) {
		if s.limiter != nil && req.method != http.MethodOptions && !s.limiter.Allow() {
			rateLimitRejects.Inc()
			return nil, NewError(http.StatusTooManyRequests, "Rate limit exceeded").
				WithHeader("Retry-After", "1")
		}
		return next(req)
	}
}

// panicRecoveryMiddleware turns a handler panic into a 500 carrying the stack
func (s *Server) panicRecoveryMiddleware(next stage) stage {
	return func(req *Request) (resp *Response, err error) {
		defer func() {
			if r := recover(); r != nil {
				panicRecoveries.Inc()
				var errMsg string
				switch v := r.(type) {
				case error:
					errMsg = v.Error()
				default:
					errMsg = fmt.Sprintf("%v", v)
				}
				stack := string(debug.Stack())
				s.logger.Error("panic recovered",
					"error", errMsg,
					"requestID", req.ID(),
					"command", req.commandKey(),
					"method", req.method,
				)
				resp, err = nil, internalError("panic: "+errMsg+"\n\n"+stack)
			}
		}()
		return next(req)
	}
}

// loggingMiddleware logs request progress at debug level
func (s *Server) loggingMiddleware(next stage) stage {
	return func(req *Request) (*Response, error) {
		start := time.Now()

		s.logger.Debug("request started",
			"requestID", req.ID(),
			"method", req.method,
			"uri", req.uri,
		)

		resp, err := next(req)

		s.logger.Debug("request completed",
			"requestID", req.ID(),
			"method", req.method,
			"command", req.commandKey(),
			"status", statusOf(resp, err),
			"duration", time.Since(start).String(),
		)

		return resp, err
	}
}

// metricsMiddleware instruments requests with Prometheus metrics, labelled
// by command key to keep cardinality bounded.
func (s *Server) metricsMiddleware(next stage) stage {
	return func(req *Request) (*Response, error) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		resp, err := next(req)

		command := req.commandKey()
		if command == "" {
			command = "unmatched"
		}
		status := strconv.Itoa(statusOf(resp, err))

		httpRequestsTotal.WithLabelValues(req.method, command, status).Inc()
		httpRequestDuration.WithLabelValues(req.method, command).Observe(time.Since(start).Seconds())

		return resp, err
	}
}

// statusOf returns the status a stage result will be rendered with.
func statusOf(resp *Response, err error) int {
	if err != nil {
		var herr *Error
		if errors.As(err, &herr) {
			return herr.Code
		}
		return http.StatusInternalServerError
	}
	if resp == nil || resp.Code == 0 {
		return http.StatusOK
	}
	return resp.Code
}
