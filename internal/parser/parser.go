package parser

import (
	"math"
	"strconv"

	"tally/internal/ast"
	"tally/internal/lexer"
	"tally/internal/token"
)

// Parser is a single-shot, fail-fast parser: the first ungrammatical
// construct stops the parse and no partial tree is returned.
type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token

	start   token.Position
	err     *Error
	handler ErrorHandler
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, start: l.Start()}
	// init cur/peek
	p.nextToken()
	p.nextToken()
	return p
}

// SetErrorHandler installs a collaborator notified of the parse failure.
func (p *Parser) SetErrorHandler(h ErrorHandler) {
	p.handler = h
}

// Parse parses a complete source text.
func Parse(src string) (*ast.StatementList, error) {
	return New(lexer.New(src)).ParseStatementList()
}

// ParseRange parses src[begin:end] (rune offsets); reported positions are
// relative to the whole of src.
func ParseRange(src string, begin, end int) (*ast.StatementList, error) {
	return New(lexer.NewRange(src, begin, end)).ParseStatementList()
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) failed() bool {
	return p.err != nil
}

func (p *Parser) fail(expected string) {
	p.failAt(p.cur.Pos, p.cur, expected)
}

func (p *Parser) failAt(pos token.Position, found token.Token, expected string) {
	if p.err != nil {
		return
	}
	p.err = &Error{
		Expected: expected,
		Found:    found,
		Pos:      pos,
		Start:    p.start,
	}
	if p.handler != nil {
		p.handler.HandleError(expected, pos, p.start)
	}
}

func (p *Parser) expect(kind token.Kind) bool {
	if p.cur.Kind != kind {
		p.fail(kind.Describe())
		return false
	}
	p.nextToken()
	return true
}

// ---------- Statements ----------

// ParseStatementList parses statement ';' { statement ';' } up to end of
// input. On failure it returns a nil list and an *Error.
func (p *Parser) ParseStatementList() (*ast.StatementList, error) {
	list := &ast.StatementList{}

	if p.cur.Kind == token.EOF {
		p.fail("statement")
		return nil, p.err
	}

	for p.cur.Kind != token.EOF {
		st := p.parseStatement()
		if p.failed() {
			return nil, p.err
		}
		list.Statements = append(list.Statements, st)

		if !p.expect(token.Semicolon) {
			return nil, p.err
		}
	}

	return list, nil
}

func (p *Parser) parseStatement() ast.Statement {
	if p.cur.Kind == token.Ident && p.peek.Kind == token.Assign {
		return p.parseAssignment()
	}
	x := p.parseExpression()
	if p.failed() {
		return nil
	}
	return x
}

func (p *Parser) parseAssignment() ast.Statement {
	nameTok := p.cur
	p.nextToken() // ident
	p.nextToken() // '='

	value := p.parseExpression()
	if p.failed() {
		return nil
	}
	return &ast.Assignment{
		Name:    nameTok.Lexeme,
		NamePos: nameTok.Pos,
		Value:   value,
	}
}

// ---------- Expressions ----------

func (p *Parser) parseExpression() *ast.Expression {
	first := p.parseUnary()
	if p.failed() {
		return nil
	}
	x := &ast.Expression{First: first}

	for {
		op, ok := ast.BinaryOperatorFor(p.cur.Kind)
		if !ok {
			return x
		}
		opTok := p.cur
		p.nextToken()
		right := p.parseUnary()
		if p.failed() {
			return nil
		}
		x.Rest = append(x.Rest, &ast.BinaryOp{
			OpPos: opTok.Pos,
			Op:    op,
			Right: right,
		})
	}
}

func (p *Parser) parseUnary() ast.Term {
	if op, ok := ast.UnaryOperatorFor(p.cur.Kind); ok {
		opTok := p.cur
		p.nextToken()
		x := p.parseUnary()
		if p.failed() {
			return nil
		}
		return &ast.UnaryExpr{
			OpPos: opTok.Pos,
			Op:    op,
			X:     x,
		}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Term {
	switch p.cur.Kind {
	case token.Float:
		tok := p.cur
		val, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil || math.IsInf(val, 0) {
			p.fail("number in floating-point range")
			return nil
		}
		p.nextToken()
		return &ast.FloatLiteral{
			Value:  val,
			LitPos: tok.Pos,
			Raw:    tok.Lexeme,
		}
	case token.Intrinsic:
		return p.parseIntrinsicCall()
	case token.Ident:
		tok := p.cur
		p.nextToken()
		return &ast.IdentExpr{
			Name:    tok.Lexeme,
			NamePos: tok.Pos,
		}
	case token.LParen:
		p.nextToken()
		x := p.parseExpression()
		if p.failed() {
			return nil
		}
		if !p.expect(token.RParen) {
			return nil
		}
		return x
	default:
		p.fail("expression")
		return nil
	}
}

// parseIntrinsicCall parses name '(' [expr {',' expr}] ')'. Once the '('
// is consumed a missing ')' is a hard error.
func (p *Parser) parseIntrinsicCall() ast.Term {
	nameTok := p.cur
	intrinsic, _ := ast.LookupIntrinsic(nameTok.Lexeme)
	p.nextToken()

	if p.cur.Kind != token.LParen {
		p.fail("'(' after " + nameTok.Lexeme)
		return nil
	}
	p.nextToken()

	var args []*ast.Expression
	if p.cur.Kind != token.RParen {
		for {
			arg := p.parseExpression()
			if p.failed() {
				return nil
			}
			args = append(args, arg)
			if p.cur.Kind == token.Comma {
				p.nextToken()
				continue
			}
			break
		}
	}

	rparen := p.cur
	if !p.expect(token.RParen) {
		return nil
	}

	if want := intrinsic.Arity(); len(args) != want {
		p.failAt(nameTok.Pos, nameTok, arityText(want)+" to "+nameTok.Lexeme)
		return nil
	}

	return &ast.IntrinsicCall{
		Intrinsic: intrinsic,
		NamePos:   nameTok.Pos,
		Args:      args,
		RParen:    rparen.Pos,
	}
}

func arityText(n int) string {
	if n == 1 {
		return "1 argument"
	}
	return strconv.Itoa(n) + " arguments"
}
