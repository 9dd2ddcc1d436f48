/*
 * Copyright 2024 ScopeDB, Inc.
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

package scidb

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error represents an error response from the SciDB shim, typically a failed query.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// AuthenticationError is returned when the server rejects the credentials, or
// when credentials would be sent over an unencrypted connection.
type AuthenticationError struct {
	Endpoint string
	Message  string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %s", e.Endpoint, e.Message)
}

// ConnectionError is returned when the shim endpoint cannot be reached.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot reach %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SchemaSyntaxError is returned when a schema string cannot be parsed.
//
// Offset is the byte offset into Text where parsing failed. Err holds the
// underlying cause, such as an *UnsupportedTypeError, when there is one.
type SchemaSyntaxError struct {
	Text   string
	Offset int
	Msg    string
	Err    error
}

func (e *SchemaSyntaxError) Error() string {
	return fmt.Sprintf("schema syntax error at offset %d: %s", e.Offset, e.Msg)
}

func (e *SchemaSyntaxError) Unwrap() error {
	return e.Err
}

// UnsupportedTypeError is returned for type names with no known wire layout.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported type: %q", e.Type)
}

// TruncatedStreamError is returned when the result stream ends before the
// record being decoded, or before the expected number of cells.
type TruncatedStreamError struct {
	// Cell is the index of the cell being decoded.
	Cell int
	// Offset is the number of bytes consumed when the stream ended.
	Offset int64
}

func (e *TruncatedStreamError) Error() string {
	return fmt.Sprintf("result stream truncated in cell %d at byte %d", e.Cell, e.Offset)
}

// DecodeAlignmentError is returned when the result stream is not aligned with
// the schema: trailing bytes, impossible null flags or string lengths, or a
// column count that does not match.
type DecodeAlignmentError struct {
	Cell   int
	Offset int64
	Msg    string
}

func (e *DecodeAlignmentError) Error() string {
	return fmt.Sprintf("result stream misaligned in cell %d at byte %d: %s", e.Cell, e.Offset, e.Msg)
}

// UnknownColumnError is returned when a table is requested with a column that
// does not exist in the result.
type UnknownColumnError struct {
	Name      string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q, available: %s", e.Name, strings.Join(e.Available, ", "))
}

// EncodeError is returned when a cell cannot be written in the schema's layout.
type EncodeError struct {
	Cell      int
	Attribute string
	Msg       string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cannot encode attribute %q of cell %d: %s", e.Attribute, e.Cell, e.Msg)
}

func checkStatusCodeOK(resp *http.Response, endpoint string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	msg := strings.TrimSpace(string(data))
	if err != nil || msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthenticationError{Endpoint: endpoint, Message: msg}
	default:
		return &Error{StatusCode: resp.StatusCode, Message: msg}
	}
}

// sneakyBodyClose closes the body and ignores the error.
// This is useful to close the HTTP response body when we don't care about the error.
func sneakyBodyClose(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
