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
	"net/http"
	"time"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(_ *Request) (any, error) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	return NewJSONResponse(http.StatusOK, resp)
}

// handleReady handles GET /ready
func (s *Server) handleReady(_ *Request) (any, error) {
	if !s.ready.Load() {
		reason := "service is initializing"
		if s.killed.Load() {
			reason = "service is shutting down"
		}
		resp := HealthResponse{
			Status:    "not_ready",
			Timestamp: time.Now(),
			Reason:    reason,
		}
		return NewJSONResponse(http.StatusServiceUnavailable, resp)
	}

	resp := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
	}

	return NewJSONResponse(http.StatusOK, resp)
}
