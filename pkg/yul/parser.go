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
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/holiman/uint256"

	"github.com/consensys/go-smelter/pkg/debuginfo"
)

// Parse parses Yul source text into an object tree.  Both the full form
// (object "name" { code { ... } ... }) and the anonymous form (a bare braced
// block, optionally with the object body grammar) are accepted.
func Parse(filename, source string) (*Object, error) {
	tokens, err := newTokenStream(filename, source)
	if err != nil {
		return nil, err
	}
	//
	parser := &parser{tokens}
	//
	object, err := parser.parseFile()
	if err != nil {
		return nil, err
	}
	// Annotation errors surface even when the grammar parsed cleanly.
	if tokens.err != nil {
		return nil, tokens.err
	}
	//
	if !tokens.done() {
		token := tokens.peek()
		return nil, fmt.Errorf("%s: unexpected %q after object", token.Pos, token.Value)
	}
	//
	object.Sources = tokens.sources
	// Done
	return object, nil
}

type parser struct {
	tokens *tokenStream
}

//nolint:revive
func (p *parser) parseFile() (*Object, error) {
	token := p.tokens.peek()
	//
	if token.Type == tokIdent && token.Value == "object" {
		return p.parseObject()
	}
	// Anonymous form.
	if err := p.tokens.expectPunct("{"); err != nil {
		return nil, err
	}
	//
	object := &Object{Name: "object", Data: make(map[string][]byte)}
	//
	next := p.tokens.peek()
	if next.Type == tokIdent && next.Value == "code" && p.peekNextIsPunct("{") {
		p.tokens.matchKeyword("code")
		//
		if err := p.parseObjectBody(object); err != nil {
			return nil, err
		}
		//
		return object, nil
	}
	// A bare code block: statements up to the closing brace.
	block := &Block{}
	//
	for !p.tokens.matchPunct("}") {
		statement, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		//
		block.Statements = append(block.Statements, statement)
	}
	//
	object.Code = block
	// Done
	return object, nil
}

//nolint:revive
func (p *parser) peekNextIsPunct(value string) bool {
	p.tokens.skipTrivia()
	//
	save := p.tokens.index
	if save < len(p.tokens.tokens) {
		p.tokens.index++
	}
	//
	token := p.tokens.peek()
	p.tokens.index = save
	// Done
	return token.Type == tokPunct && token.Value == value
}

// parseObject parses the full object form, including nested objects and data
// sections.
//
//nolint:revive
func (p *parser) parseObject() (*Object, error) {
	if !p.tokens.matchKeyword("object") {
		token := p.tokens.peek()
		return nil, fmt.Errorf("%s: expected object, got %q", token.Pos, token.Value)
	}
	//
	name, err := p.parseString("object name")
	if err != nil {
		return nil, err
	}
	//
	if err := p.tokens.expectPunct("{"); err != nil {
		return nil, err
	}
	//
	if !p.tokens.matchKeyword("code") {
		token := p.tokens.peek()
		return nil, fmt.Errorf("%s: expected code block, got %q", token.Pos, token.Value)
	}
	//
	object := &Object{Name: name, Data: make(map[string][]byte)}
	//
	if err := p.parseObjectBody(object); err != nil {
		return nil, err
	}
	// Done
	return object, nil
}

// parseObjectBody parses the code block and then nested objects and data
// sections up to the closing brace.  Nested objects and data sections share
// one namespace.
//
//nolint:revive
func (p *parser) parseObjectBody(object *Object) error {
	code, err := p.parseBlock()
	if err != nil {
		return err
	}
	//
	object.Code = code
	//
	for !p.tokens.matchPunct("}") {
		token := p.tokens.peek()
		//
		switch {
		case token.Type == tokIdent && token.Value == "object":
			nested, err := p.parseObject()
			if err != nil {
				return err
			}
			//
			if object.Nested(nested.Name) != nil || object.Data[nested.Name] != nil {
				return fmt.Errorf("%s: duplicate object %q", token.Pos, nested.Name)
			}
			//
			object.Objects = append(object.Objects, nested)
		case token.Type == tokIdent && token.Value == "data":
			if err := p.parseData(object); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: expected nested object, data section or '}', got %q", token.Pos, token.Value)
		}
	}
	// Done
	return nil
}

//nolint:revive
func (p *parser) parseData(object *Object) error {
	p.tokens.matchKeyword("data")
	//
	name, err := p.parseString("data name")
	if err != nil {
		return err
	}
	//
	token, err := p.tokens.take()
	if err != nil {
		return err
	}
	//
	var payload []byte
	//
	switch token.Type {
	case tokHexString:
		text := strings.Trim(token.Value[3:], `"'`)
		//
		if payload, err = hex.DecodeString(text); err != nil {
			return fmt.Errorf("%s: malformed hex string: %v", token.Pos, err)
		}
	case tokString:
		text, err := strconv.Unquote(token.Value)
		if err != nil {
			return fmt.Errorf("%s: malformed string: %v", token.Pos, err)
		}
		//
		payload = []byte(text)
	default:
		return fmt.Errorf("%s: expected data payload, got %q", token.Pos, token.Value)
	}
	//
	if object.Data[name] != nil || object.Nested(name) != nil {
		return fmt.Errorf("%s: duplicate data section %q", token.Pos, name)
	}
	//
	object.Data[name] = payload
	// Done
	return nil
}

//nolint:revive
func (p *parser) parseString(what string) (string, error) {
	token, err := p.tokens.expect(tokString, what)
	if err != nil {
		return "", err
	}
	//
	text, err := strconv.Unquote(token.Value)
	if err != nil {
		return "", fmt.Errorf("%s: malformed %s: %v", token.Pos, what, err)
	}
	// Done
	return text, nil
}

// ============================================================================
// Statements
// ============================================================================

//nolint:revive
func (p *parser) parseBlock() (*Block, error) {
	if err := p.tokens.expectPunct("{"); err != nil {
		return nil, err
	}
	//
	block := &Block{}
	//
	for !p.tokens.matchPunct("}") {
		statement, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		//
		block.Statements = append(block.Statements, statement)
	}
	// Done
	return block, nil
}

// takeAnnotation drains the pending source annotation for the statement being
// parsed.
//
//nolint:revive
func (p *parser) takeAnnotation() annotated {
	if location, ok := p.tokens.takeLocation(); ok {
		return annotated{Src: location, HasSrc: true}
	}
	// Done
	return annotated{Src: debuginfo.UnknownLocation()}
}

//nolint:revive
func (p *parser) parseStatement() (Statement, error) {
	var (
		token = p.tokens.peek()
		note  = p.takeAnnotation()
		// Only function definitions carry an AST id; other statements drop
		// any stray one.
		astID, _ = p.tokens.takeAstID()
	)
	//
	if token.EOF() {
		return nil, fmt.Errorf("unexpected end of input")
	}
	//
	if token.Type == tokPunct && token.Value == "{" {
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		//
		block.annotated = note
		// Done
		return block, nil
	}
	//
	if token.Type != tokIdent {
		return nil, fmt.Errorf("%s: expected statement, got %q", token.Pos, token.Value)
	}
	//
	switch token.Value {
	case "let":
		return p.parseVariableDeclaration(note)
	case "if":
		return p.parseIf(note)
	case "switch":
		return p.parseSwitch(note)
	case "for":
		return p.parseForLoop(note)
	case "function":
		return p.parseFunctionDefinition(note, astID)
	case "break":
		p.tokens.matchKeyword("break")
		return &Break{annotated: note}, nil
	case "continue":
		p.tokens.matchKeyword("continue")
		return &Continue{annotated: note}, nil
	case "leave":
		p.tokens.matchKeyword("leave")
		return &Leave{annotated: note}, nil
	default:
		return p.parseAssignmentOrCall(note)
	}
}

//nolint:revive
func (p *parser) parseVariableDeclaration(note annotated) (Statement, error) {
	p.tokens.matchKeyword("let")
	//
	names, err := p.parseIdentifierList()
	if err != nil {
		return nil, err
	}
	//
	statement := &VariableDeclaration{annotated: note, Names: names}
	// Without an initializer the variables are zero-initialized.
	if p.tokens.peek().Type == tokAssign {
		p.tokens.index++
		//
		if statement.Value, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	// Done
	return statement, nil
}

//nolint:revive
func (p *parser) parseAssignmentOrCall(note annotated) (Statement, error) {
	first, err := p.tokens.expect(tokIdent, "identifier")
	if err != nil {
		return nil, err
	}
	//
	next := p.tokens.peek()
	//
	switch {
	case next.Type == tokPunct && next.Value == "(":
		call, err := p.parseCallArguments(first.Value)
		if err != nil {
			return nil, err
		}
		//
		return &ExpressionStatement{annotated: note, Call: call}, nil
	case next.Type == tokAssign || (next.Type == tokPunct && next.Value == ","):
		names := []string{first.Value}
		//
		for p.tokens.matchPunct(",") {
			token, err := p.tokens.expect(tokIdent, "identifier")
			if err != nil {
				return nil, err
			}
			//
			names = append(names, token.Value)
		}
		//
		if _, err := p.tokens.expect(tokAssign, "':='"); err != nil {
			return nil, err
		}
		//
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		//
		return &Assignment{annotated: note, Names: names, Value: value}, nil
	default:
		return nil, fmt.Errorf("%s: expected assignment or call after %q", next.Pos, first.Value)
	}
}

//nolint:revive
func (p *parser) parseIf(note annotated) (Statement, error) {
	p.tokens.matchKeyword("if")
	//
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	//
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	// Done
	return &If{annotated: note, Condition: condition, Body: body}, nil
}

//nolint:revive
func (p *parser) parseSwitch(note annotated) (Statement, error) {
	p.tokens.matchKeyword("switch")
	//
	expression, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	//
	statement := &Switch{annotated: note, Expression: expression}
	//
	for {
		switch {
		case p.tokens.matchKeyword("case"):
			if len(statement.Cases) > 0 && statement.Cases[len(statement.Cases)-1].Value == nil {
				return nil, fmt.Errorf("default must be the last switch arm")
			}
			//
			value, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			//
			for _, arm := range statement.Cases {
				if arm.Value != nil && arm.Value.Value.Eq(value.Value) {
					return nil, fmt.Errorf("duplicate switch case 0x%s", value.Value.Hex()[2:])
				}
			}
			//
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			//
			statement.Cases = append(statement.Cases, SwitchCase{Value: value, Body: body})
		case p.tokens.matchKeyword("default"):
			if len(statement.Cases) > 0 && statement.Cases[len(statement.Cases)-1].Value == nil {
				return nil, fmt.Errorf("duplicate default switch arm")
			}
			//
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			//
			statement.Cases = append(statement.Cases, SwitchCase{Body: body})
		default:
			if len(statement.Cases) == 0 {
				token := p.tokens.peek()
				return nil, fmt.Errorf("%s: switch requires at least one arm", token.Pos)
			}
			// Done
			return statement, nil
		}
	}
}

//nolint:revive
func (p *parser) parseForLoop(note annotated) (Statement, error) {
	p.tokens.matchKeyword("for")
	//
	init, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	//
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	//
	post, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	//
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	// Done
	return &ForLoop{annotated: note, Init: init, Condition: condition, Post: post, Body: body}, nil
}

//nolint:revive
func (p *parser) parseFunctionDefinition(note annotated, astID int64) (Statement, error) {
	p.tokens.matchKeyword("function")
	//
	name, err := p.tokens.expect(tokIdent, "function name")
	if err != nil {
		return nil, err
	}
	//
	if err := p.tokens.expectPunct("("); err != nil {
		return nil, err
	}
	//
	definition := &FunctionDefinition{annotated: note, Name: name.Value, AstID: astID}
	//
	if !p.tokens.matchPunct(")") {
		if definition.Params, err = p.parseIdentifierList(); err != nil {
			return nil, err
		}
		//
		if err := p.tokens.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	//
	if p.tokens.peek().Type == tokArrow {
		p.tokens.index++
		//
		if definition.Returns, err = p.parseIdentifierList(); err != nil {
			return nil, err
		}
	}
	//
	if definition.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	// Done
	return definition, nil
}

//nolint:revive
func (p *parser) parseIdentifierList() ([]string, error) {
	var names []string
	//
	for {
		token, err := p.tokens.expect(tokIdent, "identifier")
		if err != nil {
			return nil, err
		}
		//
		names = append(names, token.Value)
		//
		if !p.tokens.matchPunct(",") {
			// Done
			return names, nil
		}
	}
}

// ============================================================================
// Expressions
// ============================================================================

//nolint:revive
func (p *parser) parseExpression() (Expression, error) {
	token, err := p.tokens.take()
	if err != nil {
		return nil, err
	}
	//
	switch token.Type {
	case tokNumber, tokString:
		return p.literalOf(token)
	case tokIdent:
		next := p.tokens.peek()
		//
		switch {
		case token.Value == "true":
			return &Literal{Value: uint256.NewInt(1)}, nil
		case token.Value == "false":
			return &Literal{Value: uint256.NewInt(0)}, nil
		case next.Type == tokPunct && next.Value == "(":
			return p.parseCallArguments(token.Value)
		default:
			return &Identifier{Name: token.Value}, nil
		}
	default:
		return nil, fmt.Errorf("%s: expected expression, got %q", token.Pos, token.Value)
	}
}

//nolint:revive
func (p *parser) parseLiteral() (*Literal, error) {
	token, err := p.tokens.take()
	if err != nil {
		return nil, err
	}
	//
	switch {
	case token.Type == tokNumber, token.Type == tokString:
		return p.literalOf(token)
	case token.Type == tokIdent && token.Value == "true":
		return &Literal{Value: uint256.NewInt(1)}, nil
	case token.Type == tokIdent && token.Value == "false":
		return &Literal{Value: uint256.NewInt(0)}, nil
	default:
		return nil, fmt.Errorf("%s: expected literal, got %q", token.Pos, token.Value)
	}
}

//nolint:revive
func (p *parser) literalOf(token lexer.Token) (*Literal, error) {
	if token.Type == tokString {
		text, err := strconv.Unquote(token.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: malformed string: %v", token.Pos, err)
		}
		//
		if len(text) > 32 {
			return nil, fmt.Errorf("%s: string literal longer than 32 bytes", token.Pos)
		}
		// String constants are left-aligned in the word.
		var word [32]byte
		copy(word[:], text)
		//
		var value uint256.Int
		value.SetBytes(word[:])
		// Done
		return &Literal{Value: &value, IsString: true, Text: text}, nil
	}
	//
	var (
		value uint256.Int
		err   error
	)
	//
	if strings.HasPrefix(token.Value, "0x") {
		// The hex setter rejects leading zeros, which literals may carry.
		digits := strings.TrimLeft(token.Value[2:], "0")
		if digits == "" {
			digits = "0"
		}
		//
		err = value.SetFromHex("0x" + digits)
	} else {
		err = value.SetFromDecimal(token.Value)
	}
	//
	if err != nil {
		return nil, fmt.Errorf("%s: malformed number %q: %v", token.Pos, token.Value, err)
	}
	// Done
	return &Literal{Value: &value}, nil
}

// parseCallArguments parses the parenthesized argument list of a call whose
// name has already been consumed.
//
//nolint:revive
func (p *parser) parseCallArguments(name string) (*FunctionCall, error) {
	if err := p.tokens.expectPunct("("); err != nil {
		return nil, err
	}
	//
	call := &FunctionCall{Name: name}
	//
	if p.tokens.matchPunct(")") {
		// Done
		return call, nil
	}
	//
	for {
		argument, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		//
		call.Arguments = append(call.Arguments, argument)
		//
		if p.tokens.matchPunct(")") {
			// Done
			return call, nil
		}
		//
		if err := p.tokens.expectPunct(","); err != nil {
			return nil, err
		}
	}
}
