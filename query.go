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
	"bytes"
	"context"
	"fmt"
)

// ResultFormat is the save format of a query output.
//
// Besides the constants below, any binary format template such as
// "(int32 null,string)" is a valid ResultFormat.
type ResultFormat string

const (
	ResultFormatTSV   ResultFormat = "tsv"
	ResultFormatArrow ResultFormat = "arrow"
)

// QueryOptions configures Session.Query.
type QueryOptions struct {
	// Fetch downloads and decodes the query output. Without it Query only
	// runs the query and returns a nil result.
	Fetch bool
	// AttrsOnly leaves the coordinates out of the result.
	AttrsOnly bool
	// AsTable projects the result into a Table.
	AsTable bool
	// Index selects the index columns of the Table.
	Index IndexSpec
	// Schema is the schema of the query result. If nil, it is looked up on
	// the server.
	Schema *Schema
	// UseArrow fetches the output in the Arrow format.
	UseArrow bool
}

// Result holds the decoded output of a query.
type Result struct {
	// Array is the decoded array.
	Array *ResultArray
	// Table is the projection of Array, set if QueryOptions.AsTable is set.
	Table *Table
}

// Query runs query and, if opts.Fetch is set, decodes its output.
//
// Errors from the index specification are reported before any data is
// downloaded.
func (s *Session) Query(ctx context.Context, query string, opts *QueryOptions) (*Result, error) {
	if opts == nil {
		opts = &QueryOptions{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !opts.Fetch {
		_, err := s.execute(ctx, query, false, &ExecuteOptions{})
		return nil, err
	}

	schema := opts.Schema
	if schema == nil {
		var err error
		if schema, err = s.lookupSchema(ctx, query); err != nil {
			return nil, err
		}
	}
	if opts.AsTable {
		if _, err := opts.Index.resolve(schema, opts.AttrsOnly); err != nil {
			return nil, err
		}
	}

	execOpts := &ExecuteOptions{Schema: schema, AttrsOnly: opts.AttrsOnly}
	if opts.UseArrow {
		execOpts.Format = ResultFormatArrow
	}
	raw, err := s.execute(ctx, query, true, execOpts)
	if err != nil {
		return nil, err
	}

	array, err := raw.decode()
	if err != nil {
		return nil, fmt.Errorf("decode result of %q: %w", query, err)
	}
	result := &Result{Array: array}
	if opts.AsTable {
		if result.Table, err = array.ToTable(opts.AttrsOnly, opts.Index); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Decode decodes the raw output with schema. A nil schema uses the schema the
// output was fetched with.
func (r *RawResult) Decode(schema *Schema) (*ResultArray, error) {
	if schema != nil {
		r.schema = schema
		r.Schema = schema.String()
	}
	return r.decode()
}

func (r *RawResult) decode() (*ResultArray, error) {
	if r.schema == nil {
		return nil, fmt.Errorf("no schema for output in format %q", r.Format)
	}
	switch r.Format {
	case ResultFormatTSV:
		return nil, fmt.Errorf("cannot decode output in format %q", r.Format)
	case ResultFormatArrow:
		return DecodeArrow(r.schema, bytes.NewReader(r.Data), r.AttrsOnly)
	default:
		return Decode(r.schema, bytes.NewReader(r.Data), r.AttrsOnly)
	}
}
