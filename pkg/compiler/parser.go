package compiler

import (
	"strconv"

	"lilcc/pkg/report"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	program     = declaration* EOF
//	declaration = specifiers IDENTIFIER ( funcRest | varRest )
//	specifiers  = ("int" | "long" | "void" | "static" | "extern")+
//	funcRest    = "(" ("void" | param ("," param)*)? ")" ( block | ";" )
//	param       = ("int" | "long")+ IDENTIFIER
//	varRest     = ("=" expr)? ("," IDENTIFIER ("=" expr)?)* ";"
//	block       = "{" (declaration | statement)* "}"
//	statement   = "return" expr? ";" | expr ";" | ";" | block
//	            | "if" "(" expr ")" statement ("else" statement)?
//	            | "while" "(" expr ")" statement
//	            | "do" statement "while" "(" expr ")" ";"
//	            | "for" "(" forInit expr? ";" expr? ")" statement
//	            | "break" ";" | "continue" ";"
//	expr        = unary (binop expr)*            precedence climbing, see binaryPrec
//	unary       = ("-" | "!" | "~") unary | "(" ("int" | "long")+ ")" unary | primary
//	primary     = INTEGER | IDENTIFIER | IDENTIFIER "(" args? ")" | "(" expr ")"
type Parser struct {
	tokens []Token
	pos    int
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Binding strength of the binary operators, loosest first. Assignment and
// the conditional operator are right associative.
const (
	precAssign   = 1
	precTernary  = 3
	precOr       = 5
	precAnd      = 10
	precEquality = 30
	precRelation = 35
	precAdditive = 45
	precMultiply = 50
)

func binaryPrec(tt TokenType) (int, bool) {
	switch tt {
	case STAR, SLASH, PERCENT:
		return precMultiply, true
	case PLUS, MINUS:
		return precAdditive, true
	case LESS, LESS_EQ, GREATER, GREATER_EQ:
		return precRelation, true
	case EQUALS, NOT_EQ:
		return precEquality, true
	case AND_LOGICAL:
		return precAnd, true
	case OR_LOGICAL:
		return precOr, true
	case QUESTION:
		return precTernary, true
	case ASSIGN:
		return precAssign, true
	}
	return 0, false
}

// describe renders a token for "expected X, got Y" messages.
func describe(tok Token) string {
	if tok.Type == EOF {
		return "end of input"
	}
	return strconv.Quote(tok.Lexeme)
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		if len(p.tokens) > 0 {
			return p.tokens[len(p.tokens)-1]
		}
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// peekAt returns the token at the given offset from the current position.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType, what string) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, parseErrorf(tok.Span, "expected %s, got %s", what, describe(tok))
	}
	return p.advance(), nil
}

func isSpecifier(tt TokenType) bool {
	switch tt {
	case INT, LONG, VOID, STATIC, EXTERN:
		return true
	}
	return false
}

// specifiers is the parsed form of a declaration's leading keywords.
type specifiers struct {
	typ     Type
	storage TokenType // STATIC, EXTERN or EOF when absent
	at      report.Span
}

// parseSpecifiers reads a run of type and storage keywords in any order:
// "long int", "int long" and "static long" are all accepted.
func (p *Parser) parseSpecifiers() (specifiers, error) {
	spec := specifiers{storage: EOF, at: p.peek().Span}
	var ints, longs, voids int
	for isSpecifier(p.peek().Type) {
		tok := p.advance()
		switch tok.Type {
		case INT:
			ints++
		case LONG:
			longs++
		case VOID:
			voids++
		case STATIC, EXTERN:
			if spec.storage != EOF {
				return spec, parseErrorf(tok.Span, "multiple storage classes in declaration")
			}
			spec.storage = tok.Type
		}
		if ints > 1 || longs > 1 || voids > 1 || (voids > 0 && ints+longs > 0) {
			return spec, parseErrorf(tok.Span, "invalid type specifier %s", describe(tok))
		}
	}
	switch {
	case longs > 0:
		spec.typ = Long
	case ints > 0:
		spec.typ = Int
	case voids > 0:
		spec.typ = Void
	default:
		return spec, parseErrorf(p.peek().Span, "expected type specifier, got %s", describe(p.peek()))
	}
	return spec, nil
}

// parseTypeName reads the type of a cast or a parameter; storage classes
// and void are rejected.
func (p *Parser) parseTypeName() (Type, error) {
	start := p.peek()
	spec, err := p.parseSpecifiers()
	if err != nil {
		return Unresolved, err
	}
	if spec.storage != EOF {
		return Unresolved, parseErrorf(start.Span, "storage class not allowed here")
	}
	if spec.typ == Void {
		return Unresolved, parseErrorf(start.Span, "void is not a value type")
	}
	return spec.typ, nil
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseBinary(0)
}

// parseBinary is a precedence climber: it extends left with every operator
// binding at least as tightly as minPrec.
func (p *Parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		prec, ok := binaryPrec(tok.Type)
		if !ok || prec < minPrec {
			return left, nil
		}
		p.advance()

		switch tok.Type {
		case ASSIGN:
			target, ok := left.(*VarRef)
			if !ok {
				return nil, parseErrorf(left.Span(), "invalid assignment target %s", left)
			}
			value, err := p.parseBinary(prec)
			if err != nil {
				return nil, err
			}
			left = &Assign{exprBase: exprBase{At: report.Over(left.Span(), value.Span())}, Target: target, Value: value}

		case QUESTION:
			then, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(COLON, `":" in conditional expression`); err != nil {
				return nil, err
			}
			els, err := p.parseBinary(prec)
			if err != nil {
				return nil, err
			}
			left = &Ternary{exprBase: exprBase{At: report.Over(left.Span(), els.Span())}, Cond: left, Then: then, Else: els}

		default:
			right, err := p.parseBinary(prec + 1)
			if err != nil {
				return nil, err
			}
			base := exprBase{At: report.Over(left.Span(), right.Span())}
			switch tok.Type {
			case AND_LOGICAL:
				left = &LogicalAnd{exprBase: base, Left: left, Right: right}
			case OR_LOGICAL:
				left = &LogicalOr{exprBase: base, Left: left, Right: right}
			default:
				left = &BinaryOp{exprBase: base, Op: tok.Type, Left: left, Right: right}
			}
		}
	}
}

// parseUnary handles prefix operators and casts.
func (p *Parser) parseUnary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case MINUS, NOT, TILDE:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{exprBase: exprBase{At: report.Over(tok.Span, operand.Span())}, Op: tok.Type, Operand: operand}, nil

	case LPAREN:
		if !isSpecifier(p.peekAt(1).Type) {
			break
		}
		p.advance()
		target, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, `")" after cast type`); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Cast{exprBase: exprBase{At: report.Over(tok.Span, operand.Span())}, Target: target, Operand: operand}, nil
	}
	return p.parsePrimary()
}

// parseCallArgs parses the comma separated arguments after "(".
func (p *Parser) parseCallArgs() ([]Expr, error) {
	var args []Expr
	if p.peek().Type == RPAREN {
		return args, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().Type != COMMA {
			return args, nil
		}
		p.advance()
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, parseErrorf(tok.Span, "invalid integer literal %q", tok.Lexeme)
		}
		return &IntLit{exprBase: exprBase{At: tok.Span}, Value: v, Long: tok.IsLong}, nil

	case IDENTIFIER:
		p.advance()
		if p.peek().Type != LPAREN {
			return &VarRef{exprBase: exprBase{At: tok.Span}, Name: tok.Lexeme}, nil
		}
		p.advance()
		args, err := p.parseCallArgs()
		if err != nil {
			return nil, err
		}
		end, err := p.expect(RPAREN, `")" after call arguments`)
		if err != nil {
			return nil, err
		}
		return &Call{exprBase: exprBase{At: report.Over(tok.Span, end.Span)}, Callee: tok.Lexeme, Args: args}, nil

	case LPAREN:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, `")"`); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, parseErrorf(tok.Span, "expected expression, got %s", describe(tok))
}

// parseVarDeclarators parses the declarators after the specifiers and the
// first name of a variable declaration, up to and including the ';'.
func (p *Parser) parseVarDeclarators(spec specifiers, first Token, fileScope bool) ([]*VarDecl, error) {
	if spec.typ == Void {
		return nil, parseErrorf(first.Span, "variable %q declared void", first.Lexeme)
	}
	storage := StorageLocal
	if fileScope {
		storage = StorageGlobal
	}
	switch spec.storage {
	case STATIC:
		storage = StorageStatic
	case EXTERN:
		storage = StorageExtern
	}

	var decls []*VarDecl
	name := first
	for {
		decl := &VarDecl{At: report.Over(spec.at, name.Span), Name: name.Lexeme, Type: spec.typ, Storage: storage}
		if p.peek().Type == ASSIGN {
			p.advance()
			init, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			decl.Init = init
		}
		decls = append(decls, decl)

		if p.peek().Type != COMMA {
			break
		}
		p.advance()
		var err error
		if name, err = p.expect(IDENTIFIER, "variable name"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON, `";" after declaration`); err != nil {
		return nil, err
	}
	return decls, nil
}

// parseParams parses a parameter list; the "(" has been consumed.
func (p *Parser) parseParams() ([]*Param, error) {
	var params []*Param
	if p.peek().Type == VOID && p.peekAt(1).Type == RPAREN {
		p.advance()
	} else if p.peek().Type != RPAREN {
		for {
			start := p.peek()
			typ, err := p.parseTypeName()
			if err != nil {
				return nil, err
			}
			name, err := p.expect(IDENTIFIER, "parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, &Param{At: report.Over(start.Span, name.Span), Name: name.Lexeme, Type: typ})
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN, `")" after parameters`); err != nil {
		return nil, err
	}
	return params, nil
}

// parseFunctionRest parses a definition or prototype after its name.
func (p *Parser) parseFunctionRest(spec specifiers, name Token) (*FuncDecl, error) {
	if spec.storage == EXTERN {
		// extern on a function only restates the default linkage.
		spec.storage = EOF
	}
	fn := &FuncDecl{At: report.Over(spec.at, name.Span), Name: name.Lexeme, ReturnType: spec.typ, Storage: StorageGlobal}
	if spec.storage == STATIC {
		fn.Storage = StorageStatic
	}

	p.advance() // (
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	fn.Params = params

	if p.peek().Type == SEMICOLON {
		p.advance()
		return fn, nil
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

// parseBlock parses "{" item* "}".
func (p *Parser) parseBlock() (*BlockStmt, error) {
	open, err := p.expect(LBRACE, `"{"`)
	if err != nil {
		return nil, err
	}
	block := &BlockStmt{stmtBase: stmtBase{At: open.Span}}
	for p.peek().Type != RBRACE {
		if p.peek().Type == EOF {
			return nil, parseErrorf(p.peek().Span, `expected "}", got end of input`)
		}
		stmt, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	end := p.advance()
	block.At = report.Over(open.Span, end.Span)
	return block, nil
}

// parseBlockItem parses a declaration or a statement inside a block.
func (p *Parser) parseBlockItem() (Stmt, error) {
	if !isSpecifier(p.peek().Type) {
		return p.parseStatement()
	}
	return p.parseLocalDecl()
}

func (p *Parser) parseLocalDecl() (*DeclStmt, error) {
	spec, err := p.parseSpecifiers()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(IDENTIFIER, "name in declaration")
	if err != nil {
		return nil, err
	}
	if p.peek().Type == LPAREN {
		return nil, parseErrorf(name.Span, "function %q must be declared at file scope", name.Lexeme)
	}
	decls, err := p.parseVarDeclarators(spec, name, false)
	if err != nil {
		return nil, err
	}
	return &DeclStmt{stmtBase: stmtBase{At: report.Over(spec.at, decls[len(decls)-1].At)}, Decls: decls}, nil
}

// parseParenCond parses "(" expr ")" after if/while.
func (p *Parser) parseParenCond(keyword string) (Expr, error) {
	if _, err := p.expect(LPAREN, `"(" after `+keyword); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN, `")" after condition`); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	start := p.advance()
	cond, err := p.parseParenCond("if")
	if err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{stmtBase: stmtBase{At: report.Over(start.Span, then.Span())}, Cond: cond, Then: then}
	if p.peek().Type == ELSE {
		p.advance()
		if stmt.Else, err = p.parseStatement(); err != nil {
			return nil, err
		}
		stmt.At = report.Over(start.Span, stmt.Else.Span())
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	start := p.advance()
	cond, err := p.parseParenCond("while")
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{stmtBase: stmtBase{At: report.Over(start.Span, body.Span())}, Cond: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (Stmt, error) {
	start := p.advance()
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(WHILE, `"while" after do body`); err != nil {
		return nil, err
	}
	cond, err := p.parseParenCond("while")
	if err != nil {
		return nil, err
	}
	end, err := p.expect(SEMICOLON, `";" after do-while`)
	if err != nil {
		return nil, err
	}
	return &DoWhileStmt{stmtBase: stmtBase{At: report.Over(start.Span, end.Span)}, Body: body, Cond: cond}, nil
}

// parseForStmt parses for (init; cond; step) body. Each clause may be empty.
func (p *Parser) parseForStmt() (Stmt, error) {
	start := p.advance()
	if _, err := p.expect(LPAREN, `"(" after for`); err != nil {
		return nil, err
	}
	stmt := &ForStmt{}

	switch {
	case isSpecifier(p.peek().Type):
		declTok := p.peek()
		decl, err := p.parseLocalDecl()
		if err != nil {
			return nil, err
		}
		for _, d := range decl.Decls {
			if d.Storage != StorageLocal {
				return nil, parseErrorf(declTok.Span, "storage class not allowed in for loop initializer")
			}
		}
		stmt.Init = decl
	case p.peek().Type == SEMICOLON:
		p.advance()
	default:
		init, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON, `";" after for initializer`); err != nil {
			return nil, err
		}
		stmt.Init = &ExprStmt{stmtBase: stmtBase{At: init.Span()}, Expr: init}
	}

	if p.peek().Type != SEMICOLON {
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Cond = cond
	}
	if _, err := p.expect(SEMICOLON, `";" after for condition`); err != nil {
		return nil, err
	}
	if p.peek().Type != RPAREN {
		step, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Step = step
	}
	if _, err := p.expect(RPAREN, `")" after for clauses`); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt.Body = body
	stmt.At = report.Over(start.Span, body.Span())
	return stmt, nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	start := p.advance()
	stmt := &ReturnStmt{stmtBase: stmtBase{At: start.Span}}
	if p.peek().Type != SEMICOLON {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}
	end, err := p.expect(SEMICOLON, `";" after return`)
	if err != nil {
		return nil, err
	}
	stmt.At = report.Over(start.Span, end.Span)
	return stmt, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case LBRACE:
		return p.parseBlock()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case DO:
		return p.parseDoWhile()
	case FOR:
		return p.parseForStmt()
	case RETURN:
		return p.parseReturn()

	case BREAK, CONTINUE:
		p.advance()
		end, err := p.expect(SEMICOLON, `";" after `+tok.Lexeme)
		if err != nil {
			return nil, err
		}
		base := stmtBase{At: report.Over(tok.Span, end.Span)}
		if tok.Type == BREAK {
			return &BreakStmt{base}, nil
		}
		return &ContinueStmt{base}, nil

	case SEMICOLON:
		p.advance()
		return &NullStmt{stmtBase{At: tok.Span}}, nil

	case INT, LONG, VOID, STATIC, EXTERN:
		return nil, parseErrorf(tok.Span, "declaration is not allowed here")
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	end, err := p.expect(SEMICOLON, `";" after expression`)
	if err != nil {
		return nil, err
	}
	return &ExprStmt{stmtBase: stmtBase{At: report.Over(expr.Span(), end.Span)}, Expr: expr}, nil
}

// Parse builds the AST for one translation unit. Only declarations are
// allowed at file scope; a name followed by "(" starts a function.
func Parse(tokens []Token) (*Program, error) {
	p := NewParser(tokens)
	prog := &Program{}
	for p.peek().Type != EOF {
		tok := p.peek()
		if !isSpecifier(tok.Type) {
			return nil, parseErrorf(tok.Span, "expected declaration, got %s", describe(tok))
		}
		spec, err := p.parseSpecifiers()
		if err != nil {
			return nil, err
		}
		name, err := p.expect(IDENTIFIER, "name in declaration")
		if err != nil {
			return nil, err
		}

		if p.peek().Type == LPAREN {
			fn, err := p.parseFunctionRest(spec, name)
			if err != nil {
				return nil, err
			}
			prog.Decls = append(prog.Decls, fn)
			continue
		}

		decls, err := p.parseVarDeclarators(spec, name, true)
		if err != nil {
			return nil, err
		}
		for _, d := range decls {
			prog.Decls = append(prog.Decls, d)
		}
	}
	return prog, nil
}
