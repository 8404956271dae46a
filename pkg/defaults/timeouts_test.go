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

package defaults

import (
	"testing"
	"time"
)

func TestTimeoutConstants(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		minValue time.Duration
		maxValue time.Duration
	}{
		{"ServerReadHeaderTimeout", ServerReadHeaderTimeout, 1 * time.Second, 30 * time.Second},
		{"ServerReadTimeout", ServerReadTimeout, 5 * time.Second, 60 * time.Second},
		{"ServerWriteTimeout", ServerWriteTimeout, 15 * time.Second, 60 * time.Second},
		{"ServerShutdownTimeout", ServerShutdownTimeout, 10 * time.Second, 60 * time.Second},
		{"ServerAcceptRetryMax", ServerAcceptRetryMax, 100 * time.Millisecond, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.timeout < tt.minValue {
				t.Errorf("%s (%v) is below minimum expected value (%v)", tt.name, tt.timeout, tt.minValue)
			}
			if tt.timeout > tt.maxValue {
				t.Errorf("%s (%v) is above maximum expected value (%v)", tt.name, tt.timeout, tt.maxValue)
			}
		})
	}
}

func TestServerTimeoutRelationships(t *testing.T) {
	// Headers arrive before the body, so the header deadline is the shorter one
	if ServerReadHeaderTimeout > ServerReadTimeout {
		t.Errorf("ServerReadHeaderTimeout (%v) should not exceed ServerReadTimeout (%v)",
			ServerReadHeaderTimeout, ServerReadTimeout)
	}
}

func TestRequestLimits(t *testing.T) {
	if MaxBodySize != 1024*1024 {
		t.Errorf("MaxBodySize should be 1 MiB, got %d", MaxBodySize)
	}
	if MultipartMemory < MaxBodySize {
		t.Errorf("MultipartMemory (%d) should hold a maximum size body (%d)", MultipartMemory, MaxBodySize)
	}
}

func TestCORSMaxAgeSeconds(t *testing.T) {
	if int64(CORSMaxAge/time.Second) != 1728000 {
		t.Errorf("CORSMaxAge should be 1728000s, got %v", CORSMaxAge)
	}
}
