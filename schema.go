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
	"strconv"
	"strings"
)

const (
	// MaxCoordinate is the high bound of an unbounded ("*") dimension.
	MaxCoordinate int64 = 1<<62 - 1
	// MinCoordinate is the low bound written as "*".
	MinCoordinate int64 = -MaxCoordinate
	// AutoChunk marks a chunk length that was not declared or declared as "*".
	AutoChunk int64 = -1
)

// Schema describes the attributes and dimensions of an array.
//
// A Schema is read-only once parsed and may be shared between goroutines.
type Schema struct {
	// Name is the identifier written right before the attribute list, such as
	// the array name of a "create array" statement. It may be empty.
	Name string
	// Attributes are the cell fields, in declaration order.
	Attributes []AttributeSpec
	// Dimensions are the array axes, in declaration order.
	Dimensions []DimensionSpec
}

// AttributeSpec describes a single attribute.
type AttributeSpec struct {
	// Name is the attribute name.
	Name string
	// Type is the attribute type.
	Type Type
	// Nullable reports whether cells may hold a missing value for the attribute.
	Nullable bool
	// Default is the DEFAULT literal as written in the schema, or empty.
	Default string
	// Compression is the COMPRESSION codec name, or empty.
	Compression string
}

// DimensionSpec describes a single dimension.
type DimensionSpec struct {
	// Name is the dimension name.
	Name string
	// Low is the first coordinate, MinCoordinate if written as "*".
	Low int64
	// High is the last coordinate, MaxCoordinate if unbounded.
	High int64
	// Chunk is the chunk length, AutoChunk if not declared.
	Chunk int64
	// Overlap is the chunk overlap.
	Overlap int64
}

// Unbounded reports whether the dimension has no declared high bound.
func (d DimensionSpec) Unbounded() bool {
	return d.High == MaxCoordinate
}

// ParseOption configures ParseSchema.
type ParseOption func(*parseOptions)

type parseOptions struct {
	nullableByDefault bool
}

// WithNullableDefault makes attributes without a NULL or NOT NULL marker
// nullable, as printed by servers where attributes are nullable by default.
func WithNullableDefault(nullable bool) ParseOption {
	return func(o *parseOptions) {
		o.nullableByDefault = nullable
	}
}

// ParseSchema parses the first "<attributes>[dimensions]" pair found in text.
//
// Text around the pair is ignored, so a full "create array name<...>[...]"
// statement or an operator expression such as "build<...>[...]" is accepted.
func ParseSchema(text string, opts ...ParseOption) (*Schema, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := locateSchema(text)
	if err != nil {
		return nil, err
	}

	attrToks, err := lexSchema(text, loc.attrStart, loc.attrEnd)
	if err != nil {
		return nil, err
	}
	p := &schemaParser{text: text, toks: attrToks, nullableByDefault: o.nullableByDefault}
	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}

	dimToks, err := lexSchema(text, loc.dimStart, loc.dimEnd)
	if err != nil {
		return nil, err
	}
	p = &schemaParser{text: text, toks: dimToks}
	dims, err := p.parseDimensions()
	if err != nil {
		return nil, err
	}

	for _, d := range dims {
		for _, a := range attrs {
			if a.Name == d.Name {
				return nil, &SchemaSyntaxError{
					Text:   text,
					Offset: loc.dimStart,
					Msg:    fmt.Sprintf("dimension %q has the same name as an attribute", d.Name),
				}
			}
		}
	}

	return &Schema{Name: loc.name, Attributes: attrs, Dimensions: dims}, nil
}

// MustParseSchema is like ParseSchema but panics on error.
func MustParseSchema(text string, opts ...ParseOption) *Schema {
	s, err := ParseSchema(text, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Equal reports whether s and other declare the same attributes and
// dimensions, in the same order. Name, defaults and compression are ignored.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Attributes) != len(other.Attributes) || len(s.Dimensions) != len(other.Dimensions) {
		return false
	}
	for i, a := range s.Attributes {
		b := other.Attributes[i]
		if a.Name != b.Name || a.Type != b.Type || a.Nullable != b.Nullable {
			return false
		}
	}
	for i, d := range s.Dimensions {
		if d != other.Dimensions[i] {
			return false
		}
	}
	return true
}

// AttributeNames returns the attribute names in declaration order.
func (s *Schema) AttributeNames() []string {
	names := make([]string, len(s.Attributes))
	for i, a := range s.Attributes {
		names[i] = a.Name
	}
	return names
}

// DimensionNames returns the dimension names in declaration order.
func (s *Schema) DimensionNames() []string {
	names := make([]string, len(s.Dimensions))
	for i, d := range s.Dimensions {
		names[i] = d.Name
	}
	return names
}

// Attribute returns the attribute with the given name.
func (s *Schema) Attribute(name string) (AttributeSpec, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeSpec{}, false
}

// Dimension returns the dimension with the given name.
func (s *Schema) Dimension(name string) (DimensionSpec, bool) {
	for _, d := range s.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return DimensionSpec{}, false
}

// BinaryFormat returns the binary save format of the attributes, such as
// "(int32 null,string)". The shim appends the coordinates itself unless the
// output is saved attributes only.
func (s *Schema) BinaryFormat() string {
	parts := make([]string, len(s.Attributes))
	for i, a := range s.Attributes {
		if a.Nullable {
			parts[i] = string(a.Type) + " null"
		} else {
			parts[i] = string(a.Type)
		}
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// String formats the schema so that ParseSchema reads it back as an equal
// schema. Non-nullable attributes carry no marker.
func (s *Schema) String() string {
	return s.format(false)
}

func (s *Schema) format(explicitNotNull bool) string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('<')
	for i, a := range s.Attributes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.format(explicitNotNull))
	}
	b.WriteString(">[")
	for i, d := range s.Dimensions {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(d.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (a AttributeSpec) String() string {
	return a.format(false)
}

func (a AttributeSpec) format(explicitNotNull bool) string {
	var b strings.Builder
	b.WriteString(a.Name)
	b.WriteByte(':')
	b.WriteString(string(a.Type))
	if a.Nullable {
		b.WriteString(" NULL")
	} else if explicitNotNull {
		b.WriteString(" NOT NULL")
	}
	if a.Default != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(a.Default)
	}
	if a.Compression != "" {
		b.WriteString(" COMPRESSION ")
		b.WriteString(quoteIdent(a.Compression, '\''))
	}
	return b.String()
}

func (d DimensionSpec) String() string {
	var b strings.Builder
	b.WriteString(d.Name)
	b.WriteByte('=')
	b.WriteString(formatBound(d.Low, MinCoordinate))
	b.WriteByte(':')
	b.WriteString(formatBound(d.High, MaxCoordinate))
	if d.Chunk != AutoChunk || d.Overlap != 0 {
		b.WriteByte(',')
		b.WriteString(formatBound(d.Chunk, AutoChunk))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(d.Overlap, 10))
	}
	return b.String()
}

func formatBound(v, star int64) string {
	if v == star {
		return "*"
	}
	return strconv.FormatInt(v, 10)
}

// schemaLocation holds the byte ranges inside the angle and square brackets.
type schemaLocation struct {
	name      string
	attrStart int
	attrEnd   int
	dimStart  int
	dimEnd    int
}

func locateSchema(text string) (schemaLocation, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '<' {
			continue
		}

		gt := scanTo(text, i+1, '>')
		if gt < 0 {
			return schemaLocation{}, &SchemaSyntaxError{Text: text, Offset: i, Msg: "missing closing '>'"}
		}
		if lt := scanTo(text, i+1, '<'); lt >= 0 && lt < gt {
			// a comparison in the surrounding text; the list opens later
			continue
		}

		lb := gt + 1
		for lb < len(text) && isSpace(text[lb]) {
			lb++
		}
		if lb >= len(text) || text[lb] != '[' {
			continue
		}

		rb := scanTo(text, lb+1, ']')
		if rb < 0 {
			return schemaLocation{}, &SchemaSyntaxError{Text: text, Offset: lb, Msg: "missing closing ']'"}
		}

		return schemaLocation{
			name:      identBefore(text, i),
			attrStart: i + 1,
			attrEnd:   gt,
			dimStart:  lb + 1,
			dimEnd:    rb,
		}, nil
	}
	return schemaLocation{}, &SchemaSyntaxError{Text: text, Offset: 0, Msg: "no <attributes>[dimensions] pair found"}
}

// scanTo returns the index of the first target byte at or after from,
// skipping quoted strings, or -1.
func scanTo(text string, from int, target byte) int {
	for i := from; i < len(text); i++ {
		switch c := text[i]; c {
		case target:
			return i
		case '\'', '"':
			for i++; i < len(text) && text[i] != c; i++ {
				if text[i] == '\\' {
					i++
				}
			}
		}
	}
	return -1
}

func identBefore(text string, i int) string {
	end := i
	for end > 0 && isSpace(text[end-1]) {
		end--
	}
	start := end
	for start > 0 && isIdentPart(text[start-1]) {
		start--
	}
	if start == end || !isIdentStart(text[start]) {
		return ""
	}
	return text[start:end]
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	off  int
	end  int
}

func lexSchema(text string, start, end int) ([]token, error) {
	var toks []token
	for i := start; i < end; {
		c := text[i]
		switch {
		case isSpace(c):
			i++
		case isIdentStart(c):
			j := i + 1
			for j < end && isIdentPart(text[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: text[i:j], off: i, end: j})
			i = j
		case isDigit(c) || ((c == '-' || c == '+') && i+1 < end && isDigit(text[i+1])):
			j := i + 1
			for j < end {
				d := text[j]
				if isDigit(d) || d == '.' {
					j++
					continue
				}
				if d == 'e' || d == 'E' {
					j++
					if j < end && (text[j] == '+' || text[j] == '-') {
						j++
					}
					continue
				}
				break
			}
			toks = append(toks, token{kind: tokNumber, text: text[i:j], off: i, end: j})
			i = j
		case c == '\'' || c == '"':
			s, j, ok := unquote(text, i, end)
			if !ok {
				return nil, &SchemaSyntaxError{Text: text, Offset: i, Msg: "unterminated string"}
			}
			toks = append(toks, token{kind: tokString, text: s, off: i, end: j})
			i = j
		default:
			toks = append(toks, token{kind: tokPunct, text: string(c), off: i, end: i + 1})
			i++
		}
	}
	return append(toks, token{kind: tokEOF, off: end, end: end}), nil
}

// unquote reads the quoted string starting at text[i] and returns its
// contents and the index right after the closing quote.
func unquote(text string, i, end int) (string, int, bool) {
	q := text[i]
	var b strings.Builder
	for j := i + 1; j < end; j++ {
		c := text[j]
		switch {
		case c == q:
			return b.String(), j + 1, true
		case c == '\\' && j+1 < end:
			j++
			switch text[j] {
			case 't':
				b.WriteByte('\t')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(text[j])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", end, false
}

type schemaParser struct {
	text string
	toks []token
	pos  int

	nullableByDefault bool
}

func (p *schemaParser) peek() token {
	return p.toks[p.pos]
}

func (p *schemaParser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *schemaParser) isPunct(s string) bool {
	tok := p.peek()
	return tok.kind == tokPunct && tok.text == s
}

func (p *schemaParser) isKeyword(kw string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && strings.EqualFold(tok.text, kw)
}

func (p *schemaParser) errorf(off int, format string, args ...any) *SchemaSyntaxError {
	return &SchemaSyntaxError{Text: p.text, Offset: off, Msg: fmt.Sprintf(format, args...)}
}

func (p *schemaParser) unexpected(tok token, want string) *SchemaSyntaxError {
	if tok.kind == tokEOF {
		return p.errorf(tok.off, "expected %s, got end of list", want)
	}
	return p.errorf(tok.off, "expected %s, got %q", want, p.text[tok.off:tok.end])
}

func (p *schemaParser) expectIdent(want string) (token, error) {
	tok := p.advance()
	if tok.kind != tokIdent {
		return tok, p.unexpected(tok, want)
	}
	return tok, nil
}

func (p *schemaParser) expectPunct(s string) error {
	tok := p.advance()
	if tok.kind != tokPunct || tok.text != s {
		return p.unexpected(tok, fmt.Sprintf("'%s'", s))
	}
	return nil
}

func (p *schemaParser) parseAttributes() ([]AttributeSpec, error) {
	var attrs []AttributeSpec
	seen := make(map[string]bool)
	for {
		nameTok, err := p.expectIdent("attribute name")
		if err != nil {
			return nil, err
		}
		if seen[nameTok.text] {
			return nil, p.errorf(nameTok.off, "duplicate attribute %q", nameTok.text)
		}
		seen[nameTok.text] = true

		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}

		typeTok, err := p.expectIdent("type name")
		if err != nil {
			return nil, err
		}
		typ, err := LookupType(typeTok.text)
		if err != nil {
			syntaxErr := p.errorf(typeTok.off, "%v", err)
			syntaxErr.Err = err
			return nil, syntaxErr
		}

		attr := AttributeSpec{Name: nameTok.text, Type: typ, Nullable: p.nullableByDefault}
		if err := p.parseAttributeOptions(&attr); err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)

		if p.peek().kind == tokEOF {
			return attrs, nil
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
	}
}

func (p *schemaParser) parseAttributeOptions(attr *AttributeSpec) error {
	for {
		switch {
		case p.isKeyword("null"):
			p.advance()
			attr.Nullable = true
		case p.isKeyword("not"):
			p.advance()
			if !p.isKeyword("null") {
				return p.unexpected(p.peek(), "NULL after NOT")
			}
			p.advance()
			attr.Nullable = false
		case p.isKeyword("default"):
			kw := p.advance()
			start := p.pos
			for p.peek().kind != tokEOF && !p.isPunct(",") && !p.isKeyword("compression") {
				p.advance()
			}
			if p.pos == start {
				return p.errorf(kw.end, "expected value after DEFAULT")
			}
			attr.Default = p.text[p.toks[start].off:p.toks[p.pos-1].end]
		case p.isKeyword("compression"):
			p.advance()
			tok := p.advance()
			if tok.kind != tokString {
				return p.unexpected(tok, "quoted codec name after COMPRESSION")
			}
			attr.Compression = tok.text
		default:
			return nil
		}
	}
}

func (p *schemaParser) parseDimensions() ([]DimensionSpec, error) {
	var dims []DimensionSpec
	seen := make(map[string]bool)
	for {
		nameTok, err := p.expectIdent("dimension name")
		if err != nil {
			return nil, err
		}
		if seen[nameTok.text] {
			return nil, p.errorf(nameTok.off, "duplicate dimension %q", nameTok.text)
		}
		seen[nameTok.text] = true

		dim := DimensionSpec{Name: nameTok.text, Low: 0, High: MaxCoordinate, Chunk: AutoChunk}
		if p.isPunct("=") {
			p.advance()
			if err := p.parseRange(&dim); err != nil {
				return nil, err
			}
			if msg := dim.check(); msg != "" {
				return nil, p.errorf(nameTok.off, "dimension %q: %s", dim.Name, msg)
			}
		}
		dims = append(dims, dim)

		if p.peek().kind == tokEOF {
			return dims, nil
		}
		if !p.isPunct(";") && !p.isPunct(",") {
			return nil, p.unexpected(p.peek(), "';' between dimensions")
		}
		p.advance()
	}
}

// parseRange reads "low:high", optionally followed by ",chunk[,overlap]" or
// by ":overlap[:chunk]".
func (p *schemaParser) parseRange(dim *DimensionSpec) (err error) {
	if dim.Low, err = p.parseBound("low bound", MinCoordinate); err != nil {
		return err
	}
	if err = p.expectPunct(":"); err != nil {
		return err
	}
	if dim.High, err = p.parseBound("high bound", MaxCoordinate); err != nil {
		return err
	}

	switch {
	case p.isPunct(":"):
		p.advance()
		if dim.Overlap, err = p.parseInteger("overlap"); err != nil {
			return err
		}
		if p.isPunct(":") {
			p.advance()
			if dim.Chunk, err = p.parseBound("chunk length", AutoChunk); err != nil {
				return err
			}
		}
	case p.isPunct(",") && !p.startsDimension(p.pos+1):
		p.advance()
		if dim.Chunk, err = p.parseBound("chunk length", AutoChunk); err != nil {
			return err
		}
		if p.isPunct(",") && !p.startsDimension(p.pos+1) {
			p.advance()
			if dim.Overlap, err = p.parseInteger("overlap"); err != nil {
				return err
			}
		}
	}
	return nil
}

// startsDimension reports whether the token at i begins a new dimension
// rather than a chunk length or overlap.
func (p *schemaParser) startsDimension(i int) bool {
	return i < len(p.toks) && p.toks[i].kind == tokIdent
}

func (p *schemaParser) parseBound(what string, star int64) (int64, error) {
	if p.isPunct("*") {
		p.advance()
		return star, nil
	}
	return p.parseInteger(what)
}

func (p *schemaParser) parseInteger(what string) (int64, error) {
	tok := p.advance()
	if tok.kind == tokEOF {
		return 0, p.unexpected(tok, what)
	}
	if tok.kind != tokNumber {
		return 0, p.errorf(tok.off, "%s %q is not an integer", what, p.text[tok.off:tok.end])
	}
	v, err := strconv.ParseInt(tok.text, 10, 64)
	if err != nil {
		syntaxErr := p.errorf(tok.off, "%s %q is not an integer", what, tok.text)
		syntaxErr.Err = err
		return 0, syntaxErr
	}
	return v, nil
}

func (d DimensionSpec) check() string {
	switch {
	case d.Low > d.High:
		return "low bound is greater than high bound"
	case d.Chunk != AutoChunk && d.Chunk <= 0:
		return "chunk length must be positive"
	case d.Overlap < 0:
		return "overlap must not be negative"
	default:
		return ""
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
