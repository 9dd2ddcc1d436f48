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
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Session is a server session opened through the SciDB shim.
//
// A session runs one query at a time; concurrent calls are serialized. Use
// several sessions to run queries in parallel.
type Session struct {
	config *Config
	http   HTTPClient
	log    logrus.FieldLogger

	id string
	mu sync.Mutex
}

// Connect opens a new session. A nil config is read from the environment, see
// LoadConfigFromEnv.
//
// Credentials are refused unless the endpoint uses https.
func Connect(ctx context.Context, config *Config) (*Session, error) {
	if config == nil {
		config = LoadConfigFromEnv()
	}
	cfg := *config
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, &ConnectionError{Endpoint: cfg.Endpoint, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &ConnectionError{Endpoint: cfg.Endpoint, Err: errors.New("endpoint must be an absolute URL")}
	}
	if cfg.User != "" && !strings.EqualFold(u.Scheme, "https") {
		return nil, &AuthenticationError{Endpoint: cfg.Endpoint, Message: "credentials can only be sent over https"}
	}

	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient(&cfg)
	}

	s := &Session{
		config: &cfg,
		http:   cfg.HTTPClient,
		log:    cfg.Logger,
	}
	id, err := s.newSession(ctx)
	if err != nil {
		s.http.Close()
		return nil, err
	}
	if id == "" {
		s.http.Close()
		return nil, &ConnectionError{Endpoint: cfg.Endpoint, Err: errors.New("server returned an empty session id")}
	}
	s.id = id

	s.log.WithFields(logrus.Fields{"endpoint": cfg.Endpoint, "session": id}).Debug("session opened")
	return s, nil
}

// ID returns the server session ID.
func (s *Session) ID() string {
	return s.id
}

// Close releases the server session and idle connections.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.releaseSession(ctx)
	if err != nil {
		s.log.WithField("session", s.id).WithError(err).Warn("cannot release session")
	}
	s.http.Close()
	return err
}

// Cancel cancels the query currently running in the session.
func (s *Session) Cancel(ctx context.Context) error {
	s.log.WithField("session", s.id).Debug("cancel query")
	return s.cancelQuery(ctx)
}

// RawResult is the undecoded output of a query.
type RawResult struct {
	// Schema is the schema of the result, as formatted by Schema.String.
	Schema string
	// Format is the save format of Data.
	Format ResultFormat
	// AttrsOnly reports whether Data leaves out the coordinates.
	AttrsOnly bool
	// Data is the saved output.
	Data []byte

	schema *Schema
}

// ExecuteOptions configures Session.Execute.
type ExecuteOptions struct {
	// Schema is the schema of the query result. If nil and the output format
	// needs one, it is looked up with show().
	Schema *Schema
	// AttrsOnly leaves the coordinates out of the output.
	AttrsOnly bool
	// Format overrides the save format. Defaults to the binary format of Schema.
	Format ResultFormat
}

// Execute runs query. If fetch is false, the output is discarded and a nil
// result is returned.
func (s *Session) Execute(ctx context.Context, query string, fetch bool, opts *ExecuteOptions) (*RawResult, error) {
	if opts == nil {
		opts = &ExecuteOptions{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execute(ctx, query, fetch, opts)
}

func (s *Session) execute(ctx context.Context, query string, fetch bool, opts *ExecuteOptions) (*RawResult, error) {
	fields := logrus.Fields{"session": s.id, "query": query}
	if !fetch {
		s.log.WithFields(fields).Debug("execute query")
		_, err := s.executeQuery(ctx, &executeQueryRequest{Query: query})
		return nil, err
	}

	schema := opts.Schema
	format := opts.Format
	if schema == nil && (format == "" || format == ResultFormatArrow) {
		var err error
		if schema, err = s.lookupSchema(ctx, query); err != nil {
			return nil, err
		}
	}
	if format == "" {
		format = ResultFormat(schema.BinaryFormat())
	}

	fields["save"] = format
	s.log.WithFields(fields).Debug("execute query")
	if _, err := s.executeQuery(ctx, &executeQueryRequest{Query: query, Save: format, AttrsOnly: opts.AttrsOnly}); err != nil {
		return nil, err
	}
	data, err := s.readBytes(ctx)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(fields).WithField("bytes", len(data)).Debug("read query output")

	result := &RawResult{Format: format, AttrsOnly: opts.AttrsOnly, Data: data, schema: schema}
	if schema != nil {
		result.Schema = schema.String()
	}
	return result, nil
}

// lookupSchema asks the server for the schema of the result of query.
func (s *Session) lookupSchema(ctx context.Context, query string) (*Schema, error) {
	show := fmt.Sprintf("show(%s, 'afl')", quoteIdent(query, '\''))
	s.log.WithFields(logrus.Fields{"session": s.id, "query": show}).Debug("look up schema")
	if _, err := s.executeQuery(ctx, &executeQueryRequest{Query: show, Save: ResultFormatTSV, AttrsOnly: true}); err != nil {
		return nil, err
	}
	data, err := s.readBytes(ctx)
	if err != nil {
		return nil, err
	}

	line, _, _ := strings.Cut(string(data), "\n")
	schema, err := ParseSchema(line, WithNullableDefault(s.config.NullableByDefault))
	if err != nil {
		return nil, fmt.Errorf("schema of %q: %w", query, err)
	}
	return schema, nil
}
