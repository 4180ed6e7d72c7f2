package cast

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Tree-sitter node type names shared by the C and C++ grammars.
const (
	nodeFunctionDefinition = "function_definition"
	nodeFunctionDeclarator = "function_declarator"
	nodeParameterList      = "parameter_list"
	nodeParameterDecl      = "parameter_declaration"
	nodeVariadicParameter  = "variadic_parameter"
	nodeCompoundStatement  = "compound_statement"
	nodeCallExpression     = "call_expression"
	nodeExpressionStmt     = "expression_statement"
	nodeReturnStmt         = "return_statement"
	nodeIfStmt             = "if_statement"
	nodeDeclaration        = "declaration"
	nodeComment            = "comment"
	nodeIdentifier         = "identifier"
	nodeFieldExpression    = "field_expression"
	nodeFieldIdentifier    = "field_identifier"
	nodeParenExpression    = "parenthesized_expression"
	nodePointerExpression  = "pointer_expression"
	nodeQualifiedID        = "qualified_identifier"
)

// Tree-sitter field names.
const (
	fieldDeclarator  = "declarator"
	fieldParameters  = "parameters"
	fieldBody        = "body"
	fieldFunction    = "function"
	fieldArguments   = "arguments"
	fieldConsequence = "consequence"
	fieldAlternative = "alternative"
	fieldType        = "type"
	fieldField       = "field"
)

// scopeNodes are containers whose children the definition walk descends
// into. Syscall wrappers commonly live inside preprocessor conditionals,
// extern "C" blocks, and namespaces rather than at the file's top level.
var scopeNodes = map[string]struct{}{
	"preproc_if":            {},
	"preproc_ifdef":         {},
	"preproc_else":          {},
	"preproc_elif":          {},
	"linkage_specification": {},
	"namespace_definition":  {},
	"declaration_list":      {},
}

// literalTypes are argument node types classified as ArgLiteral.
var literalTypes = map[string]struct{}{
	"number_literal":      {},
	"string_literal":      {},
	"char_literal":        {},
	"concatenated_string": {},
	"null":                {},
	"true":                {},
	"false":               {},
}

// extractor flattens function definitions of one parsed file.
type extractor struct {
	source []byte
	file   string
}

func (ex *extractor) text(n sitter.Node) string {
	start := n.StartByte()
	end := n.EndByte()

	if end <= uint(len(ex.source)) && start <= end {
		return string(ex.source[start:end])
	}

	return ""
}

// definitions flattens every function definition reachable from node,
// descending into the scope containers listed in scopeNodes. Definitions
// keep source order.
func (ex *extractor) definitions(node sitter.Node, out *[]FunctionRecord) {
	for idx := range node.NamedChildCount() {
		child := node.NamedChild(idx)

		if child.Type() == nodeFunctionDefinition {
			if rec, extracted := ex.function(child); extracted {
				*out = append(*out, rec)
			}

			continue
		}

		if _, scope := scopeNodes[child.Type()]; scope {
			ex.definitions(child, out)
		}
	}
}

// function flattens one function_definition node. Returns false for
// definitions without a resolvable name or body (e.g. K&R oddities the
// grammar could not shape).
func (ex *extractor) function(node sitter.Node) (FunctionRecord, bool) {
	fnDecl := findDescendantByType(node.ChildByFieldName(fieldDeclarator), nodeFunctionDeclarator)
	if fnDecl.IsNull() {
		return FunctionRecord{}, false
	}

	name := ex.declaratorName(fnDecl.ChildByFieldName(fieldDeclarator))
	if name == "" {
		return FunctionRecord{}, false
	}

	body := node.ChildByFieldName(fieldBody)
	if body.IsNull() || body.Type() != nodeCompoundStatement {
		// Declaration without a definition: never a candidate.
		return FunctionRecord{}, false
	}

	rec := FunctionRecord{
		Name: name,
		File: ex.file,
		Line: int(node.StartPoint().Row) + 1,
	}

	ex.parameters(fnDecl.ChildByFieldName(fieldParameters), &rec)
	ex.body(body, &rec)

	return rec, true
}

// declaratorName digs through pointer/reference declarators to the identifier.
func (ex *extractor) declaratorName(decl sitter.Node) string {
	if decl.IsNull() {
		return ""
	}

	switch decl.Type() {
	case nodeIdentifier, nodeFieldIdentifier, nodeQualifiedID:
		return ex.text(decl)
	}

	id := findDescendantByType(decl, nodeIdentifier)
	if id.IsNull() {
		return ""
	}

	return ex.text(id)
}

func (ex *extractor) parameters(list sitter.Node, rec *FunctionRecord) {
	if list.IsNull() || list.Type() != nodeParameterList {
		return
	}

	for idx := range list.NamedChildCount() {
		param := list.NamedChild(idx)

		switch param.Type() {
		case nodeVariadicParameter:
			rec.Variadic = true
		case nodeParameterDecl:
			name := ex.declaratorName(param.ChildByFieldName(fieldDeclarator))
			if name == "" {
				// Unnamed parameter: `void` style or abstract declarator.
				if ex.text(param) == "void" {
					continue
				}
			}

			rec.Params = append(rec.Params, Param{
				Name: name,
				Type: ex.text(param.ChildByFieldName(fieldType)),
			})
		}
	}

	// C also spells variadics as a bare "..." token inside the list.
	for idx := range list.ChildCount() {
		if list.Child(idx).Type() == "..." {
			rec.Variadic = true
		}
	}
}

// body derives the statement count, shape descriptor, guard flag, and the
// call sites of a compound statement body.
func (ex *extractor) body(body sitter.Node, rec *FunctionRecord) {
	var stmts []sitter.Node

	for idx := range body.NamedChildCount() {
		child := body.NamedChild(idx)
		if child.Type() == nodeDeclaration || child.Type() == nodeComment {
			continue
		}

		stmts = append(stmts, child)
	}

	rec.Statements = len(stmts)
	rec.GuardReturn = len(stmts) > 0 && ex.isGuardReturn(stmts[0])
	ex.collectCalls(body, rec)

	switch {
	case len(stmts) == 0:
		rec.Shape = ShapeEmpty
	case len(stmts) > 1:
		rec.Shape = ShapeMultiStatement
	default:
		rec.Shape = ex.singleStatementShape(stmts[0], rec)
	}
}

func (ex *extractor) singleStatementShape(stmt sitter.Node, rec *FunctionRecord) BodyShape {
	switch stmt.Type() {
	case nodeReturnStmt:
		if !findDescendantByType(stmt, nodeCallExpression).IsNull() {
			rec.ReturnsCall = true

			return ShapeSingleCallReturn
		}

		return ShapeOther
	case nodeExpressionStmt:
		if stmt.NamedChildCount() == 1 && stmt.NamedChild(0).Type() == nodeCallExpression {
			return ShapeSingleCallVoid
		}

		return ShapeOther
	default:
		return ShapeOther
	}
}

// isGuardReturn reports whether stmt is `if (...) return ...;` (either
// branch), the early-guard pattern wrappers commonly add before forwarding.
func (ex *extractor) isGuardReturn(stmt sitter.Node) bool {
	if stmt.Type() != nodeIfStmt {
		return false
	}

	return branchReturnsImmediately(stmt.ChildByFieldName(fieldConsequence)) ||
		branchReturnsImmediately(stmt.ChildByFieldName(fieldAlternative))
}

func branchReturnsImmediately(branch sitter.Node) bool {
	if branch.IsNull() {
		return false
	}

	switch branch.Type() {
	case nodeReturnStmt:
		return true
	case nodeCompoundStatement:
		for idx := range branch.NamedChildCount() {
			child := branch.NamedChild(idx)
			if child.Type() == nodeDeclaration || child.Type() == nodeComment {
				continue
			}

			return child.Type() == nodeReturnStmt
		}
	case "else_clause":
		for idx := range branch.NamedChildCount() {
			return branchReturnsImmediately(branch.NamedChild(idx))
		}
	}

	return false
}

func (ex *extractor) collectCalls(node sitter.Node, rec *FunctionRecord) {
	if node.Type() == nodeCallExpression {
		if site, ok := ex.callSite(node, rec.Params); ok {
			rec.Calls = append(rec.Calls, site)
		}
	}

	for idx := range node.NamedChildCount() {
		ex.collectCalls(node.NamedChild(idx), rec)
	}
}

func (ex *extractor) callSite(call sitter.Node, params []Param) (CallSite, bool) {
	callee := ex.calleeName(call.ChildByFieldName(fieldFunction))
	if callee == "" {
		return CallSite{}, false
	}

	site := CallSite{
		Callee: callee,
		Line:   int(call.StartPoint().Row) + 1,
		Column: int(call.StartPoint().Column) + 1,
	}

	args := call.ChildByFieldName(fieldArguments)
	if args.IsNull() {
		return site, true
	}

	for idx := range args.NamedChildCount() {
		argNode := args.NamedChild(idx)
		if argNode.Type() == nodeComment {
			continue
		}

		site.Args = append(site.Args, ex.argument(argNode, params))
	}

	return site, true
}

func (ex *extractor) calleeName(fn sitter.Node) string {
	if fn.IsNull() {
		return ""
	}

	switch fn.Type() {
	case nodeIdentifier, nodeQualifiedID:
		return ex.text(fn)
	case nodeFieldExpression:
		return ex.text(fn.ChildByFieldName(fieldField))
	case nodeParenExpression, nodePointerExpression:
		for idx := range fn.NamedChildCount() {
			if name := ex.calleeName(fn.NamedChild(idx)); name != "" {
				return name
			}
		}

		return ""
	default:
		id := findDescendantByType(fn, nodeIdentifier)
		if id.IsNull() {
			return ""
		}

		return ex.text(id)
	}
}

func (ex *extractor) argument(argNode sitter.Node, params []Param) Arg {
	text := ex.text(argNode)

	if argNode.Type() == nodeIdentifier {
		for i, p := range params {
			if p.Name == text {
				return Arg{Kind: ArgParam, ParamIndex: i, Text: text}
			}
		}

		return Arg{Kind: ArgOther, ParamIndex: -1, Text: text}
	}

	if _, ok := literalTypes[argNode.Type()]; ok {
		return Arg{Kind: ArgLiteral, ParamIndex: -1, Text: text}
	}

	return Arg{Kind: ArgOther, ParamIndex: -1, Text: text}
}

func findDescendantByType(tsNode sitter.Node, typ string) sitter.Node {
	if tsNode.IsNull() {
		return sitter.Node{}
	}

	if tsNode.Type() == typ {
		return tsNode
	}

	for idx := range tsNode.NamedChildCount() {
		found := findDescendantByType(tsNode.NamedChild(idx), typ)
		if !found.IsNull() {
			return found
		}
	}

	return sitter.Node{}
}
