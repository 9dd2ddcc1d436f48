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
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Upload encodes cells in the binary format of schema, without coordinates,
// and uploads them. It returns the server-side path of the uploaded file.
func (s *Session) Upload(ctx context.Context, schema *Schema, cells []Cell) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, schema, cells, false); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadBytes(ctx, buf.Bytes())
}

func (s *Session) uploadBytes(ctx context.Context, data []byte) (string, error) {
	path, err := s.upload(ctx, data)
	if err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"session": s.id, "path": path, "bytes": len(data)}).Debug("uploaded data")
	return path, nil
}

// Store uploads cells and stores them in the array name. If name is empty, a
// unique name is generated. Cells are laid out along the dimensions of schema
// in upload order; their coordinates are ignored.
//
// Store returns the name of the array.
func (s *Session) Store(ctx context.Context, name string, schema *Schema, cells []Cell) (string, error) {
	if name == "" {
		name = TempArrayName()
	}

	var buf bytes.Buffer
	if err := Encode(&buf, schema, cells, false); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.uploadBytes(ctx, buf.Bytes())
	if err != nil {
		return "", err
	}
	query := storeQuery(name, schema, path)
	if _, err := s.execute(ctx, query, false, &ExecuteOptions{}); err != nil {
		return "", err
	}
	return name, nil
}

// TempArrayName returns a unique array name.
func TempArrayName() string {
	return "go_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func storeQuery(name string, schema *Schema, path string) string {
	input := &Schema{Attributes: schema.Attributes, Dimensions: schema.Dimensions}
	return fmt.Sprintf("store(input(%s, %s, -2, %s), %s)",
		input.format(true),
		quoteIdent(path, '\''),
		quoteIdent(schema.BinaryFormat(), '\''),
		name,
	)
}
