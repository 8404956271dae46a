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
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"explicit text", NewError(http.StatusNotFound, "gone"), "404 gone"},
		{"status phrase", NewError(http.StatusForbidden, ""), "403 Forbidden"},
		{"detail", NewJSONError(http.StatusBadRequest, "").WithDetail([]string{"a"}), "400 [a]"},
		{"unknown code", NewError(599, ""), "599 Unknown error"},
		{"formatted", Errorf(http.StatusBadRequest, "bad %s", "input"), "400 bad input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorResponseHTML(t *testing.T) {
	e := NewError(http.StatusBadRequest, "<script>alert(1)</script>").
		WithHeader("X-Reason", "markup")

	resp := errorResponse(e, "")
	body := string(resp.Body)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "markup", resp.Header.Get("X-Reason"))
	assert.Contains(t, body, "Error code: 400")
	assert.Contains(t, body, "<pre>\n&lt;script&gt;alert(1)&lt;/script&gt;</pre>\n")
	assert.Contains(t, body, "400 - Bad request syntax or unsupported method.")
	assert.NotContains(t, body, "<script>")
}

func TestErrorResponseCharset(t *testing.T) {
	resp := errorResponse(NewError(http.StatusNotFound, ""), "iso-8859-1")

	assert.Equal(t, "text/html; charset=iso-8859-1", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(resp.Body), "content=\"text/html;charset=iso-8859-1\"")
	assert.Contains(t, string(resp.Body), "Message: <pre>\nNot Found</pre>\n.")
}

func TestErrorResponseJSON(t *testing.T) {
	t.Run("text message", func(t *testing.T) {
		resp := errorResponse(NewJSONError(http.StatusConflict, "taken"), "")
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var got ErrorResponse
		require.NoError(t, json.Unmarshal(resp.Body, &got))
		assert.Equal(t, http.StatusConflict, got.Code)
		assert.Equal(t, "taken", got.Message)
	})

	t.Run("structured detail", func(t *testing.T) {
		e := NewJSONError(http.StatusBadRequest, "").WithDetail(map[string]any{"field": "name"})
		resp := errorResponse(e, "")

		assert.JSONEq(t, `{"code":400,"message":{"field":"name"}}`, string(resp.Body))
	})

	t.Run("trace wins over json", func(t *testing.T) {
		e := internalError("boom\nat frame")
		e.Mode = ModeJSON
		resp := errorResponse(e, "")

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
		assert.Contains(t, string(resp.Body), "<pre>\nboom\nat frame</pre>")
	})
}

func TestErrorResponseUnknownCode(t *testing.T) {
	resp := errorResponse(NewError(599, ""), "")

	assert.Equal(t, 599, resp.Code)
	assert.Contains(t, string(resp.Body), "Unknown error")
	assert.Contains(t, string(resp.Body), "599 - .")
}
