package alertql

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// Apply compiles the expression into a WHERE clause fragment bound to the
// given builder. Values are registered as builder arguments so placeholders
// stay positional; no user input is ever interpolated into the SQL text.
func (q *Query) Apply(sb *sqlbuilder.SelectBuilder) (string, error) {
	return buildNode(sb, q.root)
}

func buildNode(sb *sqlbuilder.SelectBuilder, node ASTNode) (string, error) {
	switch n := node.(type) {
	case *ExpressionNode:
		return buildExpression(sb, n)
	case *GroupNode:
		return buildNode(sb, n.Child)
	case *LogicalNode:
		parts := make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			part, err := buildNode(sb, child)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		if n.Operator == BoolOr {
			return sb.Or(parts...), nil
		}
		return sb.And(parts...), nil
	default:
		return "", fmt.Errorf("unsupported filter node type %T", node)
	}
}

func buildExpression(sb *sqlbuilder.SelectBuilder, expr *ExpressionNode) (string, error) {
	spec, ok := fields[expr.Field]
	if !ok {
		return "", fmt.Errorf("unknown filter field %q", expr.Field)
	}

	switch expr.Operator {
	case OpEquals:
		return sb.Equal(spec.column, expr.Value), nil
	case OpNotEquals:
		return sb.NotEqual(spec.column, expr.Value), nil
	case OpContains:
		return fmt.Sprintf("%s LIKE %s ESCAPE '\\'", spec.column, sb.Var(likePattern(expr.Value))), nil
	case OpNotContains:
		return fmt.Sprintf("%s NOT LIKE %s ESCAPE '\\'", spec.column, sb.Var(likePattern(expr.Value))), nil
	default:
		return "", fmt.Errorf("unsupported operator %q", expr.Operator)
	}
}

// likePattern wraps the value for substring matching, escaping LIKE
// metacharacters in the user input.
func likePattern(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
	return "%" + escaped + "%"
}
