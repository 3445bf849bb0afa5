// Package alertql parses the alert listing filter language and compiles it
// into SQL conditions. The language is a small boolean expression grammar
// over alert fields, e.g.
//
//	severity=critical and (status=active or title~"deploy")
package alertql

// Operator represents comparison operators in a filter expression.
type Operator string

const (
	OpEquals      Operator = "="
	OpNotEquals   Operator = "!="
	OpContains    Operator = "~"
	OpNotContains Operator = "!~"
)

// BoolOperator represents boolean operators for combining conditions.
type BoolOperator string

const (
	BoolAnd BoolOperator = "AND"
	BoolOr  BoolOperator = "OR"
)

// ASTNode is the interface for all AST node types.
type ASTNode interface {
	nodeType() string
}

// ExpressionNode represents a single comparison, e.g. severity=critical.
type ExpressionNode struct {
	Field    string
	Operator Operator
	Value    string
}

func (e *ExpressionNode) nodeType() string { return "expression" }

// LogicalNode represents an AND/OR combination of nodes.
type LogicalNode struct {
	Operator BoolOperator
	Children []ASTNode
}

func (l *LogicalNode) nodeType() string { return "logical" }

// GroupNode represents a parenthesized sub-expression.
type GroupNode struct {
	Child ASTNode
}

func (g *GroupNode) nodeType() string { return "group" }

// ParseError describes why an expression was rejected.
type ParseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ParseError) Error() string {
	return e.Message
}

// Error codes for parse errors.
const (
	ErrCodeSyntax       = "SYNTAX_ERROR"
	ErrCodeUnknownField = "UNKNOWN_FIELD"
	ErrCodeBadOperator  = "UNSUPPORTED_OPERATOR"
	ErrCodeBadValue     = "INVALID_VALUE"
)

type fieldKind int

const (
	kindEnum fieldKind = iota
	kindText
)

type fieldSpec struct {
	column  string
	kind    fieldKind
	allowed map[string]struct{}
}

// fields maps filterable names to their column bindings. Enum fields accept
// only = and != with a closed value set; text fields additionally accept
// substring matching via ~ and !~.
var fields = map[string]fieldSpec{
	"severity": {
		column:  "severity",
		kind:    kindEnum,
		allowed: map[string]struct{}{"info": {}, "warning": {}, "critical": {}},
	},
	"status": {
		column:  "status",
		kind:    kindEnum,
		allowed: map[string]struct{}{"active": {}, "archived": {}},
	},
	"visibility": {
		column:  "visibility_kind",
		kind:    kindEnum,
		allowed: map[string]struct{}{"organization": {}, "team": {}, "user": {}},
	},
	"title": {
		column: "title",
		kind:   kindText,
	},
	"message": {
		column: "message",
		kind:   kindText,
	},
}
