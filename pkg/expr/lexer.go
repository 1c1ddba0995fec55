package expr

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tkEOF tokenKind = iota
	tkNumber
	tkString
	tkIdent
	tkOp
	tkLParen
	tkRParen
	tkComma
)

type token struct {
	kind tokenKind
	val  string  // operator text, identifier name or string literal contents
	num  float64 // valid when kind == tkNumber
	pos  int     // byte offset into the source text
}

// twoCharOps are matched before single character operators (maximal munch).
var twoCharOps = []string{"==", "!=", "<=", ">=", "<<", ">>", "&&", "||"}

const singleCharOps = "+-*/%<>&|^!~?:="

// ParseError describes why expression text failed to compile.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (offset %d)", e.Msg, e.Pos)
}

func lexError(pos int, format string, args ...interface{}) error {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
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

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++

		case c == '(':
			toks = append(toks, token{kind: tkLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tkRParen, pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tkComma, pos: i})
			i++

		case c == '"':
			s, n, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tkString, val: s, pos: i})
			i += n

		case isDigit(c):
			v, n, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tkNumber, num: v, pos: i})
			i += n

		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tkIdent, val: src[i:j], pos: i})
			i = j

		default:
			if op, n := lexOperator(src, i); n > 0 {
				toks = append(toks, token{kind: tkOp, val: op, pos: i})
				i += n
				break
			}
			return nil, lexError(i, "unexpected character %q", c)
		}
	}
	toks = append(toks, token{kind: tkEOF, pos: len(src)})
	return toks, nil
}

func lexOperator(src string, i int) (string, int) {
	for _, op := range twoCharOps {
		if strings.HasPrefix(src[i:], op) {
			return op, 2
		}
	}
	if strings.IndexByte(singleCharOps, src[i]) >= 0 {
		return src[i : i+1], 1
	}
	return "", 0
}

// lexString scans a double quoted literal starting at i. Only \" and \\
// escapes are recognized, anything else keeps the backslash.
func lexString(src string, i int) (string, int, error) {
	var sb strings.Builder
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '"':
			return sb.String(), j - i + 1, nil
		case '\\':
			if j+1 < len(src) && (src[j+1] == '"' || src[j+1] == '\\') {
				sb.WriteByte(src[j+1])
				j += 2
				continue
			}
			sb.WriteByte(src[j])
			j++
		default:
			sb.WriteByte(src[j])
			j++
		}
	}
	return "", 0, lexError(i, "unterminated string literal")
}

func lexNumber(src string, i int) (float64, int, error) {
	j := i
	if strings.HasPrefix(src[i:], "0x") || strings.HasPrefix(src[i:], "0X") {
		j = i + 2
		for j < len(src) && isHexDigit(src[j]) {
			j++
		}
		if j == i+2 {
			return 0, 0, lexError(i, "malformed hex literal")
		}
		u, err := strconv.ParseUint(src[i+2:j], 16, 64)
		if err != nil {
			return 0, 0, lexError(i, "malformed hex literal %q", src[i:j])
		}
		// Above 2^53 this conversion rounds; the language has no integer
		// type, see the package documentation.
		return float64(u), j - i, nil
	}

	for j < len(src) && isDigit(src[j]) {
		j++
	}
	if j < len(src) && src[j] == '.' {
		j++
		for j < len(src) && isDigit(src[j]) {
			j++
		}
	}
	if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
		k := j + 1
		if k < len(src) && (src[k] == '+' || src[k] == '-') {
			k++
		}
		if k < len(src) && isDigit(src[k]) {
			j = k
			for j < len(src) && isDigit(src[j]) {
				j++
			}
		}
	}
	v, err := strconv.ParseFloat(src[i:j], 64)
	if err != nil {
		return 0, 0, lexError(i, "malformed number %q", src[i:j])
	}
	return v, j - i, nil
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
