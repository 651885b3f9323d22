/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package rpc implements the newline delimited JSON-RPC channel spoken
// between the print manager and its driver workers.
package rpc

import (
	"encoding/json"
	"fmt"

	"go.lsp.dev/jsonrpc2"
)

// Standard JSON-RPC error codes used by the server.
const (
	CodeInternalError  = jsonrpc2.InternalError
	CodeInvalidParams  = jsonrpc2.InvalidParams
	CodeMethodNotFound = jsonrpc2.MethodNotFound
)

// Error is a JSON-RPC error object. It is returned to Invoke callers when the
// peer answers with an error, and handlers may return one to pick the code.
type Error = jsonrpc2.Error

func marshalParams(params interface{}) (json.RawMessage, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	}

	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	return b, nil
}
