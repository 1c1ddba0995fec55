package expr

// Recursive descent over the C precedence ladder. Each level consumes its
// operators left to right; assignment and the ternary are right
// associative; the comma operator binds loosest and is excluded from call
// argument lists, where the comma is the separator.

type parser struct {
	toks   []token
	pos    int
	funcs  FuncTable
	vars   []*Variable
	byName map[string]*Variable
}

func (p *parser) parse() (node, error) {
	n, err := p.parseComma()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tkEOF {
		return nil, p.errorf(tok, "unexpected %s after expression", describe(tok))
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tkEOF {
		p.pos++
	}
	return tok
}

// acceptOp consumes the next token if it is one of the given operators.
func (p *parser) acceptOp(ops ...string) (string, bool) {
	tok := p.peek()
	if tok.kind != tkOp {
		return "", false
	}
	for _, op := range ops {
		if tok.val == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) errorf(tok token, format string, args ...interface{}) error {
	return lexError(tok.pos, format, args...)
}

func describe(tok token) string {
	switch tok.kind {
	case tkEOF:
		return "end of expression"
	case tkNumber:
		return "number"
	case tkString:
		return "string literal"
	case tkIdent:
		return "identifier " + tok.val
	case tkLParen:
		return `"("`
	case tkRParen:
		return `")"`
	case tkComma:
		return `","`
	default:
		return `operator "` + tok.val + `"`
	}
}

func (p *parser) parseComma() (node, error) {
	l, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tkComma {
		p.pos++
		r, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: ",", l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseAssign() (node, error) {
	tok := p.peek()
	l, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.acceptOp("="); !ok {
		return l, nil
	}
	v, ok := l.(varNode)
	if !ok {
		return nil, p.errorf(tok, "left side of assignment is not an identifier")
	}
	r, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return assignNode{v: v.v, rhs: r}, nil
}

func (p *parser) parseTernary() (node, error) {
	cond, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if _, ok := p.acceptOp("?"); !ok {
		return cond, nil
	}
	then, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if _, ok := p.acceptOp(":"); !ok {
		return nil, p.errorf(p.peek(), `expected ":" in ternary, found %s`, describe(p.peek()))
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return ternaryNode{cond: cond, then: then, els: els}, nil
}

// binaryLevels orders the left associative binary operators from loosest
// to tightest binding.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) parseBinary(level int) (node, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	l, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp(binaryLevels[level]...)
		if !ok {
			return l, nil
		}
		r, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
}

func (p *parser) parseUnary() (node, error) {
	if op, ok := p.acceptOp("-", "!", "~"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tkNumber:
		return numberNode(tok.num), nil

	case tkString:
		return stringNode(tok.val), nil

	case tkLParen:
		n, err := p.parseComma()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tkRParen {
			return nil, p.errorf(p.peek(), `expected ")", found %s`, describe(p.peek()))
		}
		p.pos++
		return n, nil

	case tkIdent:
		if p.peek().kind == tkLParen {
			return p.parseCall(tok)
		}
		return varNode{v: p.variable(tok.val)}, nil

	default:
		return nil, p.errorf(tok, "unexpected %s", describe(tok))
	}
}

func (p *parser) parseCall(name token) (node, error) {
	fn := p.funcs[name.val]
	if fn == nil {
		return nil, p.errorf(name, "unknown function %q", name.val)
	}
	p.pos++ // opening paren
	var args []node
	if p.peek().kind != tkRParen {
		for {
			a, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek().kind != tkComma {
				break
			}
			p.pos++
		}
	}
	if p.peek().kind != tkRParen {
		return nil, p.errorf(p.peek(), `expected ")" in call to %s, found %s`, name.val, describe(p.peek()))
	}
	p.pos++
	return callNode{fn: fn, args: args}, nil
}

// variable returns the shared cell for name, allocating it on first use.
// First use fixes the identifier's position in the ordered variable list.
func (p *parser) variable(name string) *Variable {
	if v := p.byName[name]; v != nil {
		return v
	}
	v := &Variable{Name: name}
	p.byName[name] = v
	p.vars = append(p.vars, v)
	return v
}
