package alertql

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\n\r]+`},

	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`},

	{Name: "Operator", Pattern: `!=|!~|[=~]`},

	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},

	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_-]*`},
})

// pExpr is the top-level expression with OR precedence (lowest).
type pExpr struct {
	Left  *pAndExpr  `parser:"@@"`
	Right []*pOrTail `parser:"@@*"`
}

// pOrTail captures "or <and_expr>".
type pOrTail struct {
	Right *pAndExpr `parser:"'or':Ident @@"`
}

// pAndExpr handles AND precedence (higher than OR).
type pAndExpr struct {
	Left  *pTerm      `parser:"@@"`
	Right []*pAndTail `parser:"@@*"`
}

// pAndTail captures "and <term>".
type pAndTail struct {
	Right *pTerm `parser:"'and':Ident @@"`
}

// pTerm is either a grouped expression or a comparison.
type pTerm struct {
	Group      *pExpr       `parser:"( LParen @@ RParen"`
	Comparison *pComparison `parser:"| @@ )"`
}

type pComparison struct {
	Field    string  `parser:"@Ident"`
	Operator string  `parser:"@Operator"`
	Value    *pValue `parser:"@@"`
}

// pValue is a quoted string or a bare identifier.
type pValue struct {
	String *string `parser:"( @String"`
	Ident  *string `parser:"| @Ident )"`
}

var filterParser = participle.MustBuild[pExpr](
	participle.Lexer(filterLexer),
	participle.CaseInsensitive("Ident"),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Query is a parsed and validated filter expression ready for SQL
// generation.
type Query struct {
	root ASTNode
}

// Root exposes the expression tree, mainly for tests.
func (q *Query) Root() ASTNode {
	return q.root
}

// Parse parses and validates a filter expression.
func Parse(input string) (*Query, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ParseError{Code: ErrCodeSyntax, Message: "empty filter expression"}
	}

	parsed, err := filterParser.ParseString("", input)
	if err != nil {
		return nil, &ParseError{Code: ErrCodeSyntax, Message: err.Error()}
	}

	root, err := convertExpr(parsed)
	if err != nil {
		return nil, err
	}
	return &Query{root: root}, nil
}

func convertExpr(expr *pExpr) (ASTNode, error) {
	left, err := convertAndExpr(expr.Left)
	if err != nil {
		return nil, err
	}
	if len(expr.Right) == 0 {
		return left, nil
	}

	children := []ASTNode{left}
	for _, tail := range expr.Right {
		child, err := convertAndExpr(tail.Right)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &LogicalNode{Operator: BoolOr, Children: children}, nil
}

func convertAndExpr(and *pAndExpr) (ASTNode, error) {
	left, err := convertTerm(and.Left)
	if err != nil {
		return nil, err
	}
	if len(and.Right) == 0 {
		return left, nil
	}

	children := []ASTNode{left}
	for _, tail := range and.Right {
		child, err := convertTerm(tail.Right)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &LogicalNode{Operator: BoolAnd, Children: children}, nil
}

func convertTerm(term *pTerm) (ASTNode, error) {
	if term.Group != nil {
		inner, err := convertExpr(term.Group)
		if err != nil {
			return nil, err
		}
		return &GroupNode{Child: inner}, nil
	}
	return convertComparison(term.Comparison)
}

func convertComparison(cmp *pComparison) (ASTNode, error) {
	name := strings.ToLower(cmp.Field)
	spec, ok := fields[name]
	if !ok {
		return nil, &ParseError{
			Code:    ErrCodeUnknownField,
			Message: fmt.Sprintf("unknown field %q", cmp.Field),
		}
	}

	op := Operator(cmp.Operator)
	if spec.kind == kindEnum && op != OpEquals && op != OpNotEquals {
		return nil, &ParseError{
			Code:    ErrCodeBadOperator,
			Message: fmt.Sprintf("field %q does not support operator %q", name, cmp.Operator),
		}
	}

	value := cmp.Value.text()
	if spec.kind == kindEnum {
		value = strings.ToLower(value)
		if _, ok := spec.allowed[value]; !ok {
			return nil, &ParseError{
				Code:    ErrCodeBadValue,
				Message: fmt.Sprintf("invalid value %q for field %q", cmp.Value.text(), name),
			}
		}
	}

	return &ExpressionNode{Field: name, Operator: op, Value: value}, nil
}

func (v *pValue) text() string {
	if v == nil {
		return ""
	}
	if v.String != nil {
		s := *v.String
		if len(s) >= 2 {
			return unescapeString(s[1 : len(s)-1])
		}
		return s
	}
	if v.Ident != nil {
		return *v.Ident
	}
	return ""
}

// unescapeString handles escape sequences in string literals.
func unescapeString(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				result.WriteByte('\n')
			case 't':
				result.WriteByte('\t')
			case '\\':
				result.WriteByte('\\')
			case '"':
				result.WriteByte('"')
			case '\'':
				result.WriteByte('\'')
			default:
				result.WriteByte(s[i+1])
			}
			i += 2
		} else {
			result.WriteByte(s[i])
			i++
		}
	}
	return result.String()
}
