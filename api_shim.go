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
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// shimAPI defines the endpoints of the SciDB shim.
type shimAPI interface {
	// newSession opens a server session and returns its ID.
	newSession(ctx context.Context) (string, error)
	// executeQuery runs a query in the session and returns the query ID.
	executeQuery(ctx context.Context, req *executeQueryRequest) (string, error)
	// readBytes reads the whole saved output of the last query.
	readBytes(ctx context.Context) ([]byte, error)
	// cancelQuery cancels the query running in the session.
	cancelQuery(ctx context.Context) error
	// releaseSession releases the server session.
	releaseSession(ctx context.Context) error
	// upload stores data in a server-side file and returns its path.
	upload(ctx context.Context, data []byte) (string, error)
}

var _ shimAPI = (*Session)(nil)

type executeQueryRequest struct {
	// Query is the AFL query to run.
	Query string
	// Save is the output format. If empty, the output is not saved.
	Save ResultFormat
	// AttrsOnly leaves the coordinates out of the saved output.
	AttrsOnly bool
}

func (s *Session) newSession(ctx context.Context) (string, error) {
	params := url.Values{}
	if s.config.User != "" {
		params.Set("user", s.config.User)
		params.Set("password", s.config.Password)
	}
	data, err := s.call(ctx, http.MethodGet, "/new_session", params, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *Session) executeQuery(ctx context.Context, req *executeQueryRequest) (string, error) {
	params := url.Values{}
	params.Set("id", s.id)
	params.Set("query", req.Query)
	if req.Save != "" {
		params.Set("save", string(req.Save))
		if req.AttrsOnly {
			params.Set("atts_only", "1")
		} else {
			params.Set("atts_only", "0")
		}
	}
	data, err := s.call(ctx, http.MethodGet, "/execute_query", params, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *Session) readBytes(ctx context.Context) ([]byte, error) {
	params := url.Values{}
	params.Set("id", s.id)
	params.Set("n", "0")
	return s.call(ctx, http.MethodGet, "/read_bytes", params, nil)
}

func (s *Session) cancelQuery(ctx context.Context) error {
	params := url.Values{}
	params.Set("id", s.id)
	_, err := s.call(ctx, http.MethodGet, "/cancel", params, nil)
	return err
}

func (s *Session) releaseSession(ctx context.Context) error {
	params := url.Values{}
	params.Set("id", s.id)
	_, err := s.call(ctx, http.MethodGet, "/release_session", params, nil)
	return err
}

func (s *Session) upload(ctx context.Context, data []byte) (string, error) {
	params := url.Values{}
	params.Set("id", s.id)
	resp, err := s.call(ctx, http.MethodPost, "/upload", params, data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(resp)), nil
}

func (s *Session) call(ctx context.Context, method, path string, params url.Values, body []byte) ([]byte, error) {
	req, err := url.Parse(s.config.Endpoint + path)
	if err != nil {
		return nil, err
	}
	req.RawQuery = params.Encode()

	var resp *http.Response
	if method == http.MethodPost {
		resp, err = s.http.Post(ctx, req, body)
	} else {
		resp, err = s.http.Get(ctx, req)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ConnectionError{Endpoint: s.config.Endpoint, Err: err}
	}
	defer sneakyBodyClose(resp.Body)
	if err := checkStatusCodeOK(resp, s.config.Endpoint); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}
