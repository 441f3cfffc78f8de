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
	"strings"

	"github.com/holiman/uint256"

	"github.com/consensys/go-smelter/pkg/debuginfo"
)

// RuntimeObjectSuffix distinguishes the nested runtime object of a deploy
// object, following the front-end's naming convention.
const RuntimeObjectSuffix = "_deployed"

// Object is one node of a Yul object tree: a named code block together with
// nested objects (the runtime object, contracts created at runtime) and named
// data sections.
type Object struct {
	// Name as written in source.
	Name string
	// Code is the object's executable block.
	Code *Block
	// Objects holds nested objects in source order.
	Objects []*Object
	// Data holds named data sections, decoded.
	Data map[string][]byte
	// Sources maps the source IDs used by location annotations to file
	// paths, as declared by the @use-src annotation preceding this object.
	Sources map[int]string
}

// Runtime returns the nested runtime object, if any.
//
//nolint:revive
func (p *Object) Runtime() *Object {
	return p.Nested(p.Name + RuntimeObjectSuffix)
}

// Nested returns the nested object with the given name, if any.
//
//nolint:revive
func (p *Object) Nested(name string) *Object {
	for _, object := range p.Objects {
		if object.Name == name {
			return object
		}
	}
	// Done
	return nil
}

// IsRuntimeOf reports whether the given name refers to this object's own
// runtime object.
//
//nolint:revive
func (p *Object) IsRuntimeOf(name string) bool {
	return strings.HasSuffix(name, RuntimeObjectSuffix) &&
		strings.TrimSuffix(name, RuntimeObjectSuffix) == p.Name
}

// ============================================================================
// Statements
// ============================================================================

// Statement is one Yul statement.  Lowering and dependency accumulation
// dispatch on the concrete type.
type Statement interface {
	// source returns the debug annotation attached to this statement, if
	// any.  An attached unknown location is meaningful: it clears the
	// current location during lowering.
	source() (debuginfo.Location, bool)
}

// annotated carries the optional source-location annotation captured when a
// statement was parsed.
type annotated struct {
	Src    debuginfo.Location
	HasSrc bool
}

//nolint:revive
func (p *annotated) source() (debuginfo.Location, bool) {
	return p.Src, p.HasSrc
}

//nolint:revive
func (p *annotated) setSource(location debuginfo.Location) {
	p.Src, p.HasSrc = location, true
}

// Block is a brace-delimited statement sequence opening a fresh variable
// scope.
type Block struct {
	annotated
	Statements []Statement
}

// VariableDeclaration introduces variables, zero-initialized when no value is
// given.
type VariableDeclaration struct {
	annotated
	Names []string
	Value Expression
}

// Assignment stores the value into already-declared variables.
type Assignment struct {
	annotated
	Names []string
	Value Expression
}

// ExpressionStatement is a call in statement position; it must produce no
// values.
type ExpressionStatement struct {
	annotated
	Call *FunctionCall
}

// If runs the body when the condition is non-zero.
type If struct {
	annotated
	Condition Expression
	Body      *Block
}

// SwitchCase is one arm of a switch; a nil value marks the default arm.
type SwitchCase struct {
	Value *Literal
	Body  *Block
}

// Switch compares the expression against literal cases, running the first
// match or the default arm.
type Switch struct {
	annotated
	Expression Expression
	Cases      []SwitchCase
}

// ForLoop is the canonical Yul loop: initializer, condition, post block and
// body.
type ForLoop struct {
	annotated
	Init      *Block
	Condition Expression
	Post      *Block
	Body      *Block
}

// FunctionDefinition declares a function; definitions hoist to the enclosing
// code object regardless of where they appear.
type FunctionDefinition struct {
	annotated
	Name    string
	Params  []string
	Returns []string
	Body    *Block
	// AstID is the front-end AST identifier, or -1 when not annotated.
	AstID int64
}

// Break jumps to the exit of the innermost loop.
type Break struct {
	annotated
}

// Continue jumps to the post block of the innermost loop.
type Continue struct {
	annotated
}

// Leave returns from the enclosing function with the current result values.
type Leave struct {
	annotated
}

// ============================================================================
// Expressions
// ============================================================================

// Expression is one Yul expression: a literal, an identifier or a call.
type Expression interface {
	isExpression()
}

// Literal is a number, boolean or string constant.  String constants keep
// their raw text, since several builtins take names as string arguments.
type Literal struct {
	Value    *uint256.Int
	IsString bool
	Text     string
}

// Identifier references a variable in scope.
type Identifier struct {
	Name string
}

// FunctionCall invokes a builtin or a defined function.
type FunctionCall struct {
	Name      string
	Arguments []Expression
}

func (p *Literal) isExpression()      {}
func (p *Identifier) isExpression()   {}
func (p *FunctionCall) isExpression() {}
