// Package parser implements hawk's recursive-descent parser (spec
// §4.3): tokenising via internal/lexer, building an internal/ast tree,
// resolving identifiers into scoped slots, tracking unresolved function
// calls, folding arithmetic constants, and processing `@include`/
// `@global`/`@local`/`@pragma` directives.
//
// Parsing is single-pass and stops at the first error, implementing
// the AWK operator-precedence ladder (spec §4.3 "Grammar"); the tests
// exercise one grammar construct per test function.
package parser

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hyung-hwan/hawk-sub000/internal/ast"
	"github.com/hyung-hwan/hawk-sub000/internal/diag"
	"github.com/hyung-hwan/hawk-sub000/internal/lexer"
	"github.com/hyung-hwan/hawk-sub000/internal/token"
)

// IntrinsicSpec describes a pre-registered builtin function (spec
// §4.3 "add_intrinsic_function(interp, name, spec)"): MinArgs/MaxArgs
// bound the call arity (MaxArgs < 0 means unbounded) and ArgKinds
// carries a per-argument kind string ('v'=value, 'r'=reference,
// 'x'=regex) the evaluator (out of scope here) uses to decide call
// convention.
type IntrinsicSpec struct {
	MinArgs  int
	MaxArgs  int
	ArgKinds string
}

// DeparseFn is the parser's optional output-callback hook (spec §4.3
// "and optionally deparses through an output callback"). The
// deparser/pretty-printer itself is out of scope (spec §1); this type
// only keeps the call shape open for a future implementation to plug
// into.
type DeparseFn func(tok token.Token)

const defaultMaxIncludeDepth = 64

// Parser is a single parse() invocation's state (spec §3.2's "parse-
// time tables": unresolved-function map, named-variable set, globals
// sequence, locals stack, parameters stack).
type Parser struct {
	lex  *lexer.Lexer
	prev token.Token
	cur  token.Token
	next token.Token

	scope      *scope
	intrinsics map[string]IntrinsicSpec
	unresolved map[string][]token.Token // name -> call sites awaiting a FunctionDef
	functions  map[string]*ast.FunctionDef
	named      map[string]bool // implicit-named variables seen (spec §4.3 "implicit-named")

	implicitVars  bool // @pragma implicit on|off, default on
	includeDepth  int
	maxIncludeDepth int
	includeOnce  map[uuid.UUID]bool

	Deparse DeparseFn

	err error
}

// New creates a parser reading from io, with name as the root source's
// display name.
func New(io lexer.SourceIO, name string) (*Parser, error) {
	l, err := lexer.New(io, name)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		lex:             l,
		scope:           newScope(),
		intrinsics:      map[string]IntrinsicSpec{},
		unresolved:      map[string][]token.Token{},
		functions:       map[string]*ast.FunctionDef{},
		named:           map[string]bool{},
		implicitVars:    true,
		maxIncludeDepth: defaultMaxIncludeDepth,
	}
	p.advance()
	p.advance()
	return p, nil
}

// AddGlobal pre-registers a global variable before Parse (spec §4.3
// "add_global(interp, name) -> slot_id | error").
func (p *Parser) AddGlobal(name string) int { return p.scope.AddGlobal(name) }

// FindGlobal reports a pre-registered or discovered global's slot.
func (p *Parser) FindGlobal(name string) (int, bool) { return p.scope.FindGlobal(name) }

// DeleteGlobal removes a pre-registered global before Parse (spec §4.3
// "delete_global"), reporting whether it was present.
func (p *Parser) DeleteGlobal(name string) bool { return p.scope.DeleteGlobal(name) }

// AddIntrinsicFunction pre-registers a builtin (spec §4.3
// "add_intrinsic_function").
func (p *Parser) AddIntrinsicFunction(name string, spec IntrinsicSpec) {
	p.intrinsics[name] = spec
}

// SetImplicitVars overrides the default (on) implicit-variable mode
// ahead of parsing, letting an embedder apply the Option trait's
// Implicit bit without the script needing its own `@pragma implicit`.
func (p *Parser) SetImplicitVars(on bool) { p.implicitVars = on }

func (p *Parser) advance() {
	p.prev = p.cur
	p.cur = p.next
	// The lexer needs to know whether '/' should be read as a regex
	// literal; it's a regex whenever the previous significant token
	// cannot end a primary expression (spec §4.3's context-dependent
	// regex-literal rule).
	p.lex.RegexContext = !canEndExpr(p.cur.Type)
	p.next = p.lex.NextToken()
}

func canEndExpr(t token.Type) bool {
	switch t {
	case token.IDENT, token.INT, token.FLOAT, token.STRING, token.RAWSTR,
		token.MBSTR, token.RPAREN, token.RBRACKET, token.INCR, token.DECR:
		return true
	default:
		return false
	}
}

func (p *Parser) fail(code diag.Code, format string, args ...any) {
	if p.err == nil {
		p.err = diag.New(code, format, args...).WithLoc(diag.Location{
			File: p.lex.CurrentFile(), Line: p.cur.Line, Column: p.cur.Column,
		})
	}
}

func (p *Parser) expect(t token.Type, code diag.Code, what string) token.Token {
	if p.cur.Type != t {
		p.fail(code, "expected %s, found %q", what, p.cur.Lexeme)
		return p.cur
	}
	tok := p.cur
	p.advance()
	return tok
}

func (p *Parser) skipNewlines() {
	for p.cur.Type == token.NEWLINE || p.cur.Type == token.SEMI {
		p.advance()
	}
}

func (p *Parser) skipOptNewlines() {
	for p.cur.Type == token.NEWLINE {
		p.advance()
	}
}

// Parse runs the full parse per spec §4.3's public contract: "reads
// the script, builds the AST... and optionally deparses through an
// output callback." No partial AST is retained on failure (spec
// "Failure semantics"): tables are cleared back to their pre-parse
// state by the caller discarding this Parser on error.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	p.skipNewlines()
	for p.cur.Type != token.EOF && p.err == nil {
		switch p.cur.Type {
		case token.FUNCTION:
			fn := p.parseFunctionDef()
			if fn != nil {
				prog.Functions = append(prog.Functions, fn)
				p.functions[fn.Name] = fn
			}
		case token.AT_GLOBAL:
			p.parseGlobalDirective()
		case token.AT_PRAGMA:
			p.parsePragma()
		case token.AT_INCLUDE, token.AT_INCLUDE_ONCE:
			p.parseInclude()
		default:
			rule := p.parseRule()
			if rule != nil {
				prog.Rules = append(prog.Rules, rule)
			}
		}
		p.skipNewlines()
	}
	if p.err != nil {
		return nil, p.err
	}
	for name, sites := range p.unresolved {
		if _, ok := p.functions[name]; !ok {
			tok := sites[0]
			return nil, diag.New(diag.Undef, "call to undefined function %q", name).
				WithLoc(diag.Location{Line: tok.Line, Column: tok.Column})
		}
	}
	return prog, nil
}

func (p *Parser) parseGlobalDirective() {
	p.advance() // @global
	for {
		name := p.expect(token.IDENT, diag.GblRed, "identifier").Lexeme
		if name != "" {
			p.scope.AddGlobal(name)
		}
		if p.cur.Type != token.COMMA {
			break
		}
		p.advance()
	}
}

func (p *Parser) parsePragma() {
	p.advance() // @pragma
	name := p.expect(token.IDENT, diag.Invalid, "pragma name").Lexeme
	switch name {
	case "implicit":
		val := p.expect(token.IDENT, diag.Invalid, "on|off").Lexeme
		p.implicitVars = val == "on"
	case "stack_limit":
		p.expect(token.INT, diag.Invalid, "integer")
	default:
		// Unknown pragmas are ignored rather than fatal, matching AWK
		// implementations' tolerance of forward-compatible pragmas.
	}
}

// parseInclude implements spec §4.3 "Include handling": @include opens
// a new source and continues parsing; @include_once additionally skips
// sources already seen via the callback's content-identity token.
func (p *Parser) parseInclude() {
	once := p.cur.Type == token.AT_INCLUDE_ONCE
	p.advance()
	pathTok := p.expect(token.STRING, diag.InclStr, "include path string")
	if p.err != nil {
		return
	}
	if p.includeDepth >= p.maxIncludeDepth {
		p.fail(diag.InclNest, "include depth exceeds limit (%d)", p.maxIncludeDepth)
		return
	}
	arg, err := p.lex.PushInclude(pathTok.Literal)
	if err != nil {
		p.fail(diag.Open, "@include %q: %v", pathTok.Literal, err)
		return
	}
	if once {
		key := arg.Name + arg.Path
		if arg.UniqueID != [2]uint64{} {
			key = strconv.FormatUint(arg.UniqueID[0], 16) + ":" + strconv.FormatUint(arg.UniqueID[1], 16)
		}
		id := uuid.NewSHA1(uuid.Nil, []byte(key))
		if p.includeOnce == nil {
			p.includeOnce = map[uuid.UUID]bool{}
		}
		if p.includeOnce[id] {
			return
		}
		p.includeOnce[id] = true
	}
	p.includeDepth++
	p.advance()
	p.advance()
}

func (p *Parser) parseFunctionDef() *ast.FunctionDef {
	tok := p.cur
	p.advance() // 'function'/'func'
	nameTok := p.expect(token.IDENT, diag.FnRed, "function name")
	name := nameTok.Lexeme
	p.expect(token.LPAREN, diag.Lbrace, "'('")
	var params []string
	for p.cur.Type != token.RPAREN && p.err == nil {
		params = append(params, p.expect(token.IDENT, diag.DupLcl, "parameter name").Lexeme)
		if p.cur.Type == token.COMMA {
			p.advance()
		}
	}
	p.expect(token.RPAREN, diag.Rparen, "')'")
	p.skipOptNewlines()
	p.scope.enterFunction(params)
	body := p.parseBlock()
	p.scope.exitFunction()
	if p.err != nil {
		return nil
	}
	return &ast.FunctionDef{Token: tok, Name: name, Params: params, Body: body}
}

// parseRule parses one pattern-action rule (spec §3.3).
func (p *Parser) parseRule() *ast.Rule {
	tok := p.cur
	switch p.cur.Type {
	case token.BEGIN:
		p.advance()
		p.skipOptNewlines()
		return &ast.Rule{Token: tok, Kind: ast.PatternBegin, Action: p.parseBlock()}
	case token.END:
		p.advance()
		p.skipOptNewlines()
		return &ast.Rule{Token: tok, Kind: ast.PatternEnd, Action: p.parseBlock()}
	case token.LBRACE:
		return &ast.Rule{Token: tok, Kind: ast.PatternAlways, Action: p.parseBlock()}
	default:
		expr := p.parseExpr()
		var expr2 ast.Expression
		kind := ast.PatternExpr
		if p.cur.Type == token.COMMA {
			p.advance()
			expr2 = p.parseExpr()
			kind = ast.PatternRange
		}
		var action *ast.BlockStmt
		if p.cur.Type == token.LBRACE {
			action = p.parseBlock()
		}
		return &ast.Rule{Token: tok, Kind: kind, Expr: expr, Expr2: expr2, Action: action}
	}
}

func (p *Parser) parseBlock() *ast.BlockStmt {
	tok := p.expect(token.LBRACE, diag.Lbrace, "'{'")
	p.scope.pushBlock()
	defer p.scope.popBlock()
	block := &ast.BlockStmt{Token: tok}
	p.skipNewlines()
	for p.cur.Type != token.RBRACE && p.cur.Type != token.EOF && p.err == nil {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
		p.skipNewlines()
	}
	p.expect(token.RBRACE, diag.Lbrace, "'}'")
	return block
}

func (p *Parser) parseStatement() ast.Statement {
	tok := p.cur
	switch tok.Type {
	case token.LBRACE:
		return p.parseBlock()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoWhile()
	case token.FOR:
		return p.parseFor()
	case token.BREAK:
		p.advance()
		return &ast.BreakStmt{Token: tok}
	case token.CONTINUE:
		p.advance()
		return &ast.ContinueStmt{Token: tok}
	case token.NEXT:
		p.advance()
		return &ast.NextStmt{Token: tok}
	case token.NEXTFILE:
		p.advance()
		return &ast.NextFileStmt{Token: tok}
	case token.RETURN:
		p.advance()
		var val ast.Expression
		if p.canStartExpr() {
			val = p.parseExpr()
		}
		return &ast.ReturnStmt{Token: tok, Value: val}
	case token.EXIT:
		p.advance()
		var code ast.Expression
		if p.canStartExpr() {
			code = p.parseExpr()
		}
		return &ast.ExitStmt{Token: tok, Code: code}
	case token.DELETE:
		return p.parseDelete()
	case token.AT_RESET:
		p.advance()
		arr := p.parsePrimary()
		return &ast.ResetStmt{Token: tok, Arr: arr}
	case token.AT_LOCAL:
		return p.parseLocalDecl()
	case token.PRINT:
		return p.parsePrint()
	case token.PRINTF:
		return p.parsePrintf()
	case token.SEMI:
		p.advance()
		return &ast.NullStmt{Token: tok}
	default:
		expr := p.parseExpr()
		return &ast.ExprStmt{Token: tok, Expr: expr}
	}
}

func (p *Parser) canStartExpr() bool {
	switch p.cur.Type {
	case token.NEWLINE, token.SEMI, token.RBRACE, token.EOF:
		return false
	default:
		return true
	}
}

func (p *Parser) parseLocalDecl() ast.Statement {
	tok := p.cur
	p.advance() // @local
	for {
		name := p.expect(token.IDENT, diag.DupLcl, "identifier").Lexeme
		if name != "" {
			p.scope.declareLocal(name)
		}
		if p.cur.Type != token.COMMA {
			break
		}
		p.advance()
	}
	return &ast.NullStmt{Token: tok}
}

func (p *Parser) parseIf() ast.Statement {
	tok := p.cur
	p.advance()
	p.expect(token.LPAREN, diag.Lbrace, "'('")
	cond := p.parseExpr()
	p.expect(token.RPAREN, diag.Rparen, "')'")
	p.skipOptNewlines()
	then := p.parseStatement()
	var els ast.Statement
	p.skipOptNewlines()
	if p.cur.Type == token.ELSE {
		p.advance()
		p.skipOptNewlines()
		els = p.parseStatement()
	}
	return &ast.IfStmt{Token: tok, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhile() ast.Statement {
	tok := p.cur
	p.advance()
	p.expect(token.LPAREN, diag.Lbrace, "'('")
	cond := p.parseExpr()
	p.expect(token.RPAREN, diag.Rparen, "')'")
	p.skipOptNewlines()
	body := p.parseStatement()
	return &ast.WhileStmt{Token: tok, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Statement {
	tok := p.cur
	p.advance()
	p.skipOptNewlines()
	body := p.parseStatement()
	p.skipNewlines()
	p.expect(token.WHILE, diag.Stmtend, "'while'")
	p.expect(token.LPAREN, diag.Lbrace, "'('")
	cond := p.parseExpr()
	p.expect(token.RPAREN, diag.Rparen, "')'")
	return &ast.DoWhileStmt{Token: tok, Body: body, Cond: cond}
}

func (p *Parser) parseFor() ast.Statement {
	tok := p.cur
	p.advance()
	p.expect(token.LPAREN, diag.Lbrace, "'('")

	// Disambiguate `for (k in arr)` from the three-clause form.
	if p.cur.Type == token.IDENT && p.next.Type == token.IN {
		varExpr := p.resolveIdent(p.cur)
		p.advance() // ident
		p.advance() // in
		arrExpr := p.parseExpr()
		p.expect(token.RPAREN, diag.Rparen, "')'")
		p.skipOptNewlines()
		body := p.parseStatement()
		return &ast.ForInStmt{Token: tok, Var: varExpr, Arr: arrExpr, Body: body}
	}

	var init ast.Statement
	if p.cur.Type != token.SEMI {
		init = &ast.ExprStmt{Token: p.cur, Expr: p.parseExpr()}
	}
	p.expect(token.SEMI, diag.Stmtend, "';'")
	var cond ast.Expression
	if p.cur.Type != token.SEMI {
		cond = p.parseExpr()
	}
	p.expect(token.SEMI, diag.Stmtend, "';'")
	var post ast.Statement
	if p.cur.Type != token.RPAREN {
		post = &ast.ExprStmt{Token: p.cur, Expr: p.parseExpr()}
	}
	p.expect(token.RPAREN, diag.Rparen, "')'")
	p.skipOptNewlines()
	body := p.parseStatement()
	return &ast.ForStmt{Token: tok, Init: init, Cond: cond, Post: post, Body: body}
}

func (p *Parser) parseDelete() ast.Statement {
	tok := p.cur
	p.advance()
	arr := p.parsePrimary()
	var idx ast.Expression
	if ix, ok := arr.(*ast.NamedIndexExpr); ok {
		if len(ix.Index) == 1 {
			idx = ix.Index[0]
		}
		arr = ix.Arr
	}
	return &ast.DeleteStmt{Token: tok, Arr: arr, Index: idx}
}

func (p *Parser) parsePrint() ast.Statement {
	tok := p.cur
	p.advance()
	var args []ast.Expression
	for p.canStartExpr() && p.cur.Type != token.GT && p.cur.Type != token.PIPE && p.cur.Type != token.RSHIFT {
		args = append(args, p.parseTernary())
		if p.cur.Type == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	target := p.parseOptRedirect()
	// An unparenthesized '>', '>>' or '|' after the last argument is
	// parsed into that argument as a binary operator; lift it back out
	// as the output redirect.
	if n := len(args); target == nil && n > 0 {
		if bin, ok := args[n-1].(*ast.BinaryExpr); ok {
			kinds := map[token.Type]ast.RedirectKind{token.GT: ast.RedirectTruncate, token.RSHIFT: ast.RedirectAppend, token.PIPE: ast.RedirectPipe}
			if kind, isRedir := kinds[bin.Op]; isRedir {
				args[n-1] = bin.Left
				target = &ast.OutputRedirect{Kind: kind, Target: bin.Right}
			}
		}
	}
	return &ast.PrintStmt{Token: tok, Args: args, Target: target}
}

func (p *Parser) parsePrintf() ast.Statement {
	tok := p.cur
	p.advance()
	format := p.parseTernary()
	var args []ast.Expression
	for p.cur.Type == token.COMMA {
		p.advance()
		args = append(args, p.parseTernary())
	}
	target := p.parseOptRedirect()
	return &ast.PrintfStmt{Token: tok, Format: format, Args: args, Target: target}
}

func (p *Parser) parseOptRedirect() *ast.OutputRedirect {
	switch p.cur.Type {
	case token.GT:
		p.advance()
		return &ast.OutputRedirect{Kind: ast.RedirectTruncate, Target: p.parseTernary()}
	case token.RSHIFT:
		p.advance()
		return &ast.OutputRedirect{Kind: ast.RedirectAppend, Target: p.parseTernary()}
	case token.PIPE:
		p.advance()
		return &ast.OutputRedirect{Kind: ast.RedirectPipe, Target: p.parseTernary()}
	default:
		return nil
	}
}

// ---- Expression grammar (spec §4.3's precedence ladder, top to
// bottom): ternary, logical-or, logical-and, in, match, bit-or, bit-
// xor, bit-and, equality, relational, shift, concat, additive,
// multiplicative, exponent, unary, postfix incr, primary. ----

func (p *Parser) parseExpr() ast.Expression { return p.parseAssign() }

func (p *Parser) parseAssign() ast.Expression {
	left := p.parseTernary()
	switch p.cur.Type {
	case token.ASSIGN, token.ADD_ASSIGN, token.SUB_ASSIGN, token.MUL_ASSIGN,
		token.DIV_ASSIGN, token.MOD_ASSIGN, token.POW_ASSIGN:
		tok := p.cur
		op := p.cur.Type
		p.advance()
		right := p.parseAssign()
		return &ast.AssignExpr{Token: tok, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseTernary() ast.Expression {
	cond := p.parseLogicalOr()
	if p.cur.Type == token.QUESTION {
		tok := p.cur
		p.advance()
		then := p.parseTernary()
		p.expect(token.COLON, diag.Stmtend, "':'")
		els := p.parseTernary()
		return &ast.CondExpr{Token: tok, Cond: cond, Then: then, Else: els}
	}
	return cond
}

func (p *Parser) parseLogicalOr() ast.Expression {
	left := p.parseLogicalAnd()
	for p.cur.Type == token.OR {
		tok := p.cur
		p.advance()
		p.skipOptNewlines()
		right := p.parseLogicalAnd()
		left = &ast.BinaryExpr{Token: tok, Op: token.OR, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() ast.Expression {
	left := p.parseIn()
	for p.cur.Type == token.AND {
		tok := p.cur
		p.advance()
		p.skipOptNewlines()
		right := p.parseIn()
		left = &ast.BinaryExpr{Token: tok, Op: token.AND, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseIn() ast.Expression {
	left := p.parseMatch()
	for p.cur.Type == token.IN {
		tok := p.cur
		p.advance()
		right := p.parseMatch()
		left = &ast.BinaryExpr{Token: tok, Op: token.IN, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMatch() ast.Expression {
	left := p.parseBitOr()
	for p.cur.Type == token.MATCH || p.cur.Type == token.NOT_MATCH {
		tok := p.cur
		negate := p.cur.Type == token.NOT_MATCH
		p.advance()
		right := p.parseBitOr()
		left = &ast.MatchExpr{Token: tok, Negate: negate, Left: left, Pattern: right}
	}
	return left
}

func (p *Parser) parseBitOr() ast.Expression {
	left := p.parseBitXor()
	for p.cur.Type == token.PIPE {
		// `cmd | getline [var]` (spec §4.4) is the one place a '|'
		// isn't the bitwise-or operator; it reads one record from the
		// piped command's output into var (or $0/NF when var is absent).
		if p.next.Type == token.GETLINE {
			tok := p.cur
			p.advance() // '|'
			p.advance() // 'getline'
			var v ast.Expression
			if p.cur.Type == token.IDENT || p.cur.Type == token.DOLLAR {
				v = p.parsePostfix()
			}
			left = &ast.GetlineExpr{Token: tok, Source: ast.GetlineCommand, Var: v, Stream: left}
			continue
		}
		tok := p.cur
		p.advance()
		right := p.parseBitXor()
		left = &ast.BinaryExpr{Token: tok, Op: token.PIPE, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitXor() ast.Expression {
	left := p.parseBitAnd()
	for p.cur.Type == token.BITXOR_OP {
		tok := p.cur
		p.advance()
		right := p.parseBitAnd()
		left = &ast.BinaryExpr{Token: tok, Op: token.BITXOR_OP, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitAnd() ast.Expression {
	left := p.parseEquality()
	for p.cur.Type == token.AMP {
		tok := p.cur
		p.advance()
		right := p.parseEquality()
		left = &ast.BinaryExpr{Token: tok, Op: token.AMP, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expression {
	left := p.parseRelational()
	for p.cur.Type == token.EQ || p.cur.Type == token.NE ||
		p.cur.Type == token.EQ_STRICT || p.cur.Type == token.NE_STRICT {
		tok := p.cur
		op := p.cur.Type
		p.advance()
		right := p.parseRelational()
		left = &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseRelational() ast.Expression {
	left := p.parseShift()
	for p.cur.Type == token.LT || p.cur.Type == token.LE ||
		p.cur.Type == token.GT || p.cur.Type == token.GE {
		tok := p.cur
		op := p.cur.Type
		p.advance()
		right := p.parseShift()
		left = &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseShift() ast.Expression {
	left := p.parseConcat()
	for p.cur.Type == token.LSHIFT || p.cur.Type == token.RSHIFT {
		tok := p.cur
		op := p.cur.Type
		p.advance()
		right := p.parseConcat()
		left = &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
	}
	return left
}

// parseConcat handles both explicit `%%` and AWK's implicit
// whitespace concatenation (spec §4.3 "concat (by %% explicitly, or by
// whitespace when BLANKCONCAT is on)"); implicit concatenation is always
// enabled here, since the parser has no BLANKCONCAT switch.
func (p *Parser) parseConcat() ast.Expression {
	left := p.parseAdditive()
	for {
		if p.cur.Type == token.CONCAT_OP {
			tok := p.cur
			p.advance()
			right := p.parseAdditive()
			left = &ast.BinaryExpr{Token: tok, Op: token.CONCAT_OP, Left: left, Right: right}
			continue
		}
		if p.startsConcatOperand() {
			tok := p.cur
			right := p.parseAdditive()
			left = &ast.BinaryExpr{Token: tok, Op: token.CONCAT_OP, Left: left, Right: right}
			continue
		}
		break
	}
	return left
}

// startsConcatOperand reports whether the current token can only be
// the start of a fresh operand (never a binary operator continuing the
// enclosing expression), which is the signal AWK's grammar uses to
// detect implicit concatenation.
func (p *Parser) startsConcatOperand() bool {
	switch p.cur.Type {
	case token.IDENT, token.INT, token.FLOAT, token.STRING, token.RAWSTR,
		token.MBSTR, token.REGEX, token.DOLLAR, token.LPAREN, token.NOT,
		token.MINUS, token.PLUS, token.INCR, token.DECR:
		return true
	default:
		return false
	}
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for p.cur.Type == token.PLUS || p.cur.Type == token.MINUS {
		tok := p.cur
		op := p.cur.Type
		p.advance()
		right := p.parseMultiplicative()
		left = foldBinary(tok, op, left, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseExponent()
	for p.cur.Type == token.STAR || p.cur.Type == token.SLASH || p.cur.Type == token.PERCENT {
		tok := p.cur
		op := p.cur.Type
		p.advance()
		right := p.parseExponent()
		if op == token.SLASH || op == token.PERCENT {
			if lit, ok := right.(*ast.IntLit); ok && lit.Value == 0 {
				p.fail(diag.DivByZero, "division by zero in constant folding")
				return left
			}
			if lit, ok := right.(*ast.FloatLit); ok && lit.Value == 0 {
				p.fail(diag.DivByZero, "division by zero in constant folding")
				return left
			}
		}
		left = foldBinary(tok, op, left, right)
	}
	return left
}

func (p *Parser) parseExponent() ast.Expression {
	left := p.parseUnary()
	if p.cur.Type == token.CARET {
		tok := p.cur
		p.advance()
		right := p.parseExponent() // right-associative
		return foldBinary(tok, token.CARET, left, right)
	}
	return left
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.cur.Type {
	case token.MINUS, token.PLUS, token.NOT, token.BITNOT_OP:
		tok := p.cur
		op := p.cur.Type
		p.advance()
		right := p.parseUnary()
		if op == token.MINUS {
			if lit, ok := right.(*ast.IntLit); ok {
				return &ast.IntLit{Token: lit.Token, Value: -lit.Value}
			}
			if lit, ok := right.(*ast.FloatLit); ok {
				return &ast.FloatLit{Token: lit.Token, Value: -lit.Value}
			}
		}
		return &ast.UnaryExpr{Token: tok, Op: op, Right: right}
	case token.INCR, token.DECR:
		tok := p.cur
		op := p.cur.Type
		p.advance()
		target := p.parseUnary()
		return &ast.IncDecExpr{Token: tok, Op: op, Target: target, Prefix: true}
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	for p.cur.Type == token.INCR || p.cur.Type == token.DECR {
		tok := p.cur
		op := p.cur.Type
		p.advance()
		expr = &ast.IncDecExpr{Token: tok, Op: op, Target: expr, Prefix: false}
	}
	return expr
}

// foldBinary implements constant folding when both operands are numeric
// literals: +, -, * and % on two integer literals (/ only when the
// quotient is exact), and +, -, * and / when either operand is a float
// literal. Any other operator (including ^), float %, and an inexact
// integer division are left as a BinaryExpr.
func foldBinary(tok token.Token, op token.Type, left, right ast.Expression) ast.Expression {
	li, lok := left.(*ast.IntLit)
	ri, rok := right.(*ast.IntLit)
	if lok && rok {
		if v, ok := foldInt(op, li.Value, ri.Value); ok {
			return &ast.IntLit{Token: tok, Value: v}
		}
	}
	lf, lfok := asFloatLit(left)
	rf, rfok := asFloatLit(right)
	if (lok || lfok) && (rok || rfok) && (lfok || rfok) {
		a := lf
		if lok {
			a = float64(li.Value)
		}
		b := rf
		if rok {
			b = float64(ri.Value)
		}
		if v, ok := foldFloat(op, a, b); ok {
			return &ast.FloatLit{Token: tok, Value: v}
		}
	}
	return &ast.BinaryExpr{Token: tok, Op: op, Left: left, Right: right}
}

func asFloatLit(e ast.Expression) (float64, bool) {
	if f, ok := e.(*ast.FloatLit); ok {
		return f.Value, true
	}
	return 0, false
}

func foldInt(op token.Type, a, b int64) (int64, bool) {
	switch op {
	case token.PLUS:
		return a + b, true
	case token.MINUS:
		return a - b, true
	case token.STAR:
		return a * b, true
	case token.SLASH:
		if b == 0 {
			return 0, false
		}
		if a%b == 0 {
			return a / b, true
		}
		return 0, false
	case token.PERCENT:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	default:
		return 0, false
	}
}

func foldFloat(op token.Type, a, b float64) (float64, bool) {
	switch op {
	case token.PLUS:
		return a + b, true
	case token.MINUS:
		return a - b, true
	case token.STAR:
		return a * b, true
	case token.SLASH:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	default:
		return 0, false
	}
}

// parsePrimary parses spec §3.3's primary expressions: literals, field
// references, parenthesized groups, function calls, and identifier
// references (resolved into Global/Local/Arg per spec §4.3 scoping).
func (p *Parser) parsePrimary() ast.Expression {
	tok := p.cur
	switch tok.Type {
	case token.INT:
		p.advance()
		return &ast.IntLit{Token: tok, Value: parseIntLiteral(tok.Lexeme)}
	case token.FLOAT:
		p.advance()
		f, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return &ast.FloatLit{Token: tok, Value: f}
	case token.STRING:
		p.advance()
		return &ast.StrLit{Token: tok, Value: tok.Literal}
	case token.RAWSTR:
		p.advance()
		return &ast.StrLit{Token: tok, Value: tok.Literal}
	case token.MBSTR:
		p.advance()
		return &ast.MbsLit{Token: tok, Value: []byte(tok.Literal)}
	case token.REGEX:
		p.advance()
		return &ast.RexLit{Token: tok, Pattern: tok.Literal}
	case token.DOLLAR:
		p.advance()
		idx := p.parsePostfix()
		return &ast.FieldExpr{Token: tok, Index: idx}
	case token.LPAREN:
		p.advance()
		expr := p.parseExpr()
		p.expect(token.RPAREN, diag.Rparen, "')'")
		return &ast.GroupExpr{Token: tok, Inner: expr}
	case token.NOT:
		p.advance()
		right := p.parseUnary()
		return &ast.UnaryExpr{Token: tok, Op: token.NOT, Right: right}
	case token.GETLINE:
		return p.parseGetline()
	case token.IDENT:
		return p.parseIdentPrimary()
	default:
		p.fail(diag.Invalid, "unexpected token %q in expression", tok.Lexeme)
		p.advance()
		return &ast.NamedExpr{Token: tok, Name: tok.Lexeme}
	}
}

func parseIntLiteral(lex string) int64 {
	if strings.HasPrefix(lex, "0x") || strings.HasPrefix(lex, "0X") {
		v, _ := strconv.ParseInt(lex[2:], 16, 64)
		return v
	}
	if strings.HasPrefix(lex, "0b") || strings.HasPrefix(lex, "0B") {
		v, _ := strconv.ParseInt(lex[2:], 2, 64)
		return v
	}
	v, _ := strconv.ParseInt(lex, 10, 64)
	return v
}

// parseGetline handles the `getline [var]` and `getline [var] < file`
// shapes (spec §4.4); the third shape, `cmd | getline [var]`, is
// recognized by parseBitOr instead, since `cmd` parses as an ordinary
// expression up to the '|'.
func (p *Parser) parseGetline() ast.Expression {
	tok := p.cur
	p.advance()
	var v ast.Expression
	if p.cur.Type == token.IDENT || p.cur.Type == token.DOLLAR {
		v = p.parsePostfix()
	}
	if p.cur.Type == token.LT {
		p.advance()
		stream := p.parseConcat()
		return &ast.GetlineExpr{Token: tok, Source: ast.GetlineFile, Var: v, Stream: stream}
	}
	return &ast.GetlineExpr{Token: tok, Source: ast.GetlineCurrent, Var: v}
}

func (p *Parser) parseIdentPrimary() ast.Expression {
	tok := p.cur
	name := tok.Lexeme
	p.advance()

	if _, isIntrinsic := p.intrinsics[name]; isIntrinsic && p.cur.Type == token.LPAREN {
		return p.parseCallArgs(tok, ast.CallIntrinsic, name)
	}

	if p.cur.Type == token.LPAREN {
		// Could be a user call or, if name resolves to a variable holding
		// a function reference, an indirect call (spec §3.1 "Fun").
		if _, known := p.functions[name]; known || !p.isBoundVariable(name) {
			call := p.parseCallArgs(tok, ast.CallUser, name)
			if _, known := p.functions[name]; !known {
				p.unresolved[name] = append(p.unresolved[name], tok)
			}
			return call
		}
		fnRef := p.resolveIdent(tok)
		return p.parseCallArgs(tok, ast.CallVar, "", withFn(fnRef))
	}

	ref := p.resolveIdent(tok)
	if p.cur.Type == token.LBRACKET {
		return p.parseIndex(tok, ref)
	}
	return ref
}

func (p *Parser) isBoundVariable(name string) bool {
	kind, _ := p.scope.lookup(name)
	return kind != resNone
}

type callOpt func(*ast.CallExpr)

func withFn(fn ast.Expression) callOpt {
	return func(c *ast.CallExpr) { c.Fn = fn }
}

func (p *Parser) parseCallArgs(tok token.Token, kind ast.CallKind, name string, opts ...callOpt) ast.Expression {
	p.advance() // '('
	var args []ast.Expression
	for p.cur.Type != token.RPAREN && p.err == nil {
		args = append(args, p.parseTernary())
		if p.cur.Type == token.COMMA {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN, diag.Rparen, "')'")
	call := &ast.CallExpr{Token: tok, Kind: kind, Name: name, Args: args}
	for _, o := range opts {
		o(call)
	}
	return call
}

// resolveIdent looks name up via scope and returns a Global/Local/Arg
// reference, creating an implicit-named or implicit-global entry per
// spec §4.3's "Identifier lookup order" rule.
func (p *Parser) resolveIdent(tok token.Token) ast.Expression {
	name := tok.Lexeme
	kind, slot := p.scope.lookup(name)
	switch kind {
	case resLocal:
		return &ast.LocalExpr{Token: tok, Name: name, Slot: slot}
	case resParam:
		return &ast.ArgExpr{Token: tok, Name: name, Slot: slot}
	case resGlobal:
		return &ast.GlobalExpr{Token: tok, Name: name, Slot: slot}
	}
	if !p.implicitVars {
		p.fail(diag.Undef, "undefined variable %q", name)
		return &ast.NamedExpr{Token: tok, Name: name}
	}
	p.named[name] = true
	slot = p.scope.AddGlobal(name)
	return &ast.GlobalExpr{Token: tok, Name: name, Slot: slot}
}

func (p *Parser) parseIndex(tok token.Token, arr ast.Expression) ast.Expression {
	p.advance() // '['
	var idxs []ast.Expression
	idxs = append(idxs, p.parseExpr())
	for p.cur.Type == token.COMMA {
		p.advance()
		idxs = append(idxs, p.parseExpr())
	}
	p.expect(token.RBRACKET, diag.Rparen, "']'")
	return &ast.NamedIndexExpr{Token: tok, Arr: arr, Index: idxs}
}
