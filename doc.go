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

/*
Package scidb provides a client for SciDB arrays served through the SciDB shim.

# Session

Use Connect to open a session. A session runs one query at a time:

	s, err := scidb.Connect(ctx, &scidb.Config{
		Endpoint: "http://<shim-host>:<shim-port:-8080>",
	})
	if err != nil {
		return err
	}
	defer s.Close(ctx)

# Query Data

Query looks up the result schema, downloads the binary output and decodes it:

	res, err := s.Query(ctx, "build(<v:double>[i=0:9], i * 0.5)", &scidb.QueryOptions{
		Fetch:   true,
		AsTable: true,
		Index:   scidb.IndexDimensions(),
	})
	if err != nil {
		return err
	}
	fmt.Print(res.Table)

# Schemas and Binary Data

ParseSchema reads array schemas, and Decode and Encode convert cells to and
from the binary save format without a server:

	schema := scidb.MustParseSchema("<val:int32 NULL>[i=1:3]")
	array, err := scidb.Decode(schema, r, false)

Store uploads cells and stores them in a new array:

	name, err := s.Store(ctx, "", schema, array.Cells)
*/
package scidb
