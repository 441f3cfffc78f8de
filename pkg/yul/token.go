// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package yul

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/consensys/go-smelter/pkg/debuginfo"
)

// yulLexer tokenizes Yul source text.  Comments are kept rather than elided:
// debug annotations ride on /// comments and are drained into the token
// stream's pending state as the parser advances past them.
var yulLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "DocComment", Pattern: `///[^\n]*`},
		{Name: "Comment", Pattern: `//[^\n]*`},
		{Name: "BlockComment", Pattern: `/\*([^*]|\*+[^*/])*\*+/`},
		{Name: "HexString", Pattern: `hex"[0-9a-fA-F]*"|hex'[0-9a-fA-F]*'`},
		{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
		{Name: "Number", Pattern: `0x[0-9a-fA-F]+|[0-9]+`},
		{Name: "Ident", Pattern: `[a-zA-Z_$][a-zA-Z0-9_$.]*`},
		{Name: "Assign", Pattern: `:=`},
		{Name: "Arrow", Pattern: `->`},
		{Name: "Punct", Pattern: `[{}(),:]`},
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	},
})

var symbols = yulLexer.Symbols()

var (
	tokDocComment   = symbols["DocComment"]
	tokComment      = symbols["Comment"]
	tokBlockComment = symbols["BlockComment"]
	tokHexString    = symbols["HexString"]
	tokString       = symbols["String"]
	tokNumber       = symbols["Number"]
	tokIdent        = symbols["Ident"]
	tokAssign       = symbols["Assign"]
	tokArrow        = symbols["Arrow"]
	tokPunct        = symbols["Punct"]
	tokWhitespace   = symbols["Whitespace"]
)

// tokenStream walks the lexed tokens, skipping trivia and folding recognized
// debug annotations into pending state which the parser drains at statement
// boundaries.
type tokenStream struct {
	tokens []lexer.Token
	index  int
	err    error

	// location pending from the latest "@src" annotation.
	location    debuginfo.Location
	hasLocation bool
	// astID pending from the latest "@ast-id" annotation.
	astID    int64
	hasAstID bool
	// sources collects "@use-src" mappings of source IDs to file paths.
	sources map[int]string
}

func newTokenStream(filename, source string) (*tokenStream, error) {
	lex, err := yulLexer.Lex(filename, strings.NewReader(source))
	if err != nil {
		return nil, err
	}
	//
	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, err
	}
	// Done
	return &tokenStream{tokens: tokens, sources: make(map[int]string)}, nil
}

// skipTrivia consumes whitespace and comments up to the next significant
// token, folding debug annotations into the pending state.
//
//nolint:revive
func (p *tokenStream) skipTrivia() {
	for p.index < len(p.tokens) {
		token := p.tokens[p.index]
		//
		switch token.Type {
		case tokWhitespace, tokComment, tokBlockComment:
			p.index++
		case tokDocComment:
			if err := p.annotate(strings.TrimPrefix(token.Value, "///")); err != nil && p.err == nil {
				p.err = fmt.Errorf("%s: %v", token.Pos, err)
			}
			//
			p.index++
		default:
			return
		}
	}
}

// annotate parses one doc comment.  Unrecognized comments are inert; a
// recognized annotation with a malformed payload is an error.
//
//nolint:revive
func (p *tokenStream) annotate(comment string) error {
	fields := strings.Fields(comment)
	if len(fields) == 0 {
		return nil
	}
	//
	switch fields[0] {
	case "@src":
		if len(fields) < 2 {
			return fmt.Errorf("malformed @src annotation %q", comment)
		}
		// Trailing fields carry a quoted source snippet; only the triplet
		// matters.
		location, err := debuginfo.ParseLocation(fields[1], debuginfo.OrderingYul)
		if err != nil {
			return err
		}
		//
		p.location, p.hasLocation = location, true
	case "@ast-id":
		if len(fields) < 2 {
			return fmt.Errorf("malformed @ast-id annotation %q", comment)
		}
		//
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return fmt.Errorf("malformed @ast-id annotation %q: %v", comment, err)
		}
		//
		p.astID, p.hasAstID = id, true
	case "@use-src":
		return p.annotateUseSrc(strings.Join(fields[1:], " "))
	}
	// Done
	return nil
}

// annotateUseSrc parses the comma-separated `id:"path"` entries of a
// "@use-src" annotation.
//
//nolint:revive
func (p *tokenStream) annotateUseSrc(payload string) error {
	for _, entry := range strings.Split(payload, ",") {
		id, quoted, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			return fmt.Errorf("malformed @use-src entry %q", entry)
		}
		//
		sourceID, err := strconv.Atoi(id)
		if err != nil {
			return fmt.Errorf("malformed @use-src entry %q: %v", entry, err)
		}
		//
		path, err := strconv.Unquote(quoted)
		if err != nil {
			return fmt.Errorf("malformed @use-src entry %q: %v", entry, err)
		}
		//
		p.sources[sourceID] = path
	}
	// Done
	return nil
}

// takeLocation drains the pending @src annotation, if any.
//
//nolint:revive
func (p *tokenStream) takeLocation() (debuginfo.Location, bool) {
	if !p.hasLocation {
		return debuginfo.UnknownLocation(), false
	}
	//
	p.hasLocation = false
	// Done
	return p.location, true
}

// takeAstID drains the pending @ast-id annotation, if any.
//
//nolint:revive
func (p *tokenStream) takeAstID() (int64, bool) {
	if !p.hasAstID {
		return -1, false
	}
	//
	p.hasAstID = false
	// Done
	return p.astID, true
}

// peek returns the next significant token without consuming it.
//
//nolint:revive
func (p *tokenStream) peek() lexer.Token {
	p.skipTrivia()
	//
	if p.index >= len(p.tokens) {
		return lexer.EOFToken(lexer.Position{})
	}
	// Done
	return p.tokens[p.index]
}

// take consumes and returns the next significant token.
//
//nolint:revive
func (p *tokenStream) take() (lexer.Token, error) {
	token := p.peek()
	//
	if p.err != nil {
		return token, p.err
	}
	//
	if token.EOF() {
		return token, fmt.Errorf("unexpected end of input")
	}
	//
	p.index++
	// Done
	return token, nil
}

// expect consumes the next token, requiring the given type.
//
//nolint:revive
func (p *tokenStream) expect(kind lexer.TokenType, what string) (lexer.Token, error) {
	token, err := p.take()
	if err != nil {
		return token, err
	}
	//
	if token.Type != kind {
		return token, fmt.Errorf("%s: expected %s, got %q", token.Pos, what, token.Value)
	}
	// Done
	return token, nil
}

// expectPunct consumes the next token, requiring the given punctuation.
//
//nolint:revive
func (p *tokenStream) expectPunct(value string) error {
	token, err := p.take()
	if err != nil {
		return err
	}
	//
	if token.Type != tokPunct || token.Value != value {
		return fmt.Errorf("%s: expected %q, got %q", token.Pos, value, token.Value)
	}
	// Done
	return nil
}

// matchPunct consumes the next token when it is the given punctuation.
//
//nolint:revive
func (p *tokenStream) matchPunct(value string) bool {
	token := p.peek()
	//
	if p.err == nil && token.Type == tokPunct && token.Value == value {
		p.index++
		return true
	}
	// Done
	return false
}

// matchKeyword consumes the next token when it is the given identifier.
//
//nolint:revive
func (p *tokenStream) matchKeyword(value string) bool {
	token := p.peek()
	//
	if p.err == nil && token.Type == tokIdent && token.Value == value {
		p.index++
		return true
	}
	// Done
	return false
}

// done reports whether only trivia remains.
//
//nolint:revive
func (p *tokenStream) done() bool {
	return p.peek().EOF()
}
