package alertql

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/huandu/go-sqlbuilder"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantCode string
	}{
		{name: "simple equality", input: `severity=critical`},
		{name: "bare value", input: `status=archived`},
		{name: "quoted value", input: `title~"deploy window"`},
		{name: "single quoted value", input: `title~'deploy'`},
		{name: "and combination", input: `severity=critical and status=active`},
		{name: "or combination", input: `severity=info or severity=warning`},
		{name: "grouping", input: `severity=critical and (status=active or title~"old")`},
		{name: "negated contains", input: `message!~"maintenance"`},
		{name: "visibility field", input: `visibility=team`},
		{name: "uppercase keyword", input: `severity=critical AND status=active`},

		{name: "empty input", input: ``, wantErr: true, wantCode: ErrCodeSyntax},
		{name: "blank input", input: `   `, wantErr: true, wantCode: ErrCodeSyntax},
		{name: "unknown field", input: `severty=critical`, wantErr: true, wantCode: ErrCodeUnknownField},
		{name: "bad enum value", input: `severity=urgent`, wantErr: true, wantCode: ErrCodeBadValue},
		{name: "contains on enum field", input: `severity~crit`, wantErr: true, wantCode: ErrCodeBadOperator},
		{name: "missing value", input: `severity=`, wantErr: true, wantCode: ErrCodeSyntax},
		{name: "missing operator", input: `severity critical`, wantErr: true, wantCode: ErrCodeSyntax},
		{name: "unbalanced paren", input: `(severity=critical`, wantErr: true, wantCode: ErrCodeSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got nil", tt.input)
				}
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("Parse(%q) error type = %T, want *ParseError", tt.input, err)
				}
				if parseErr.Code != tt.wantCode {
					t.Errorf("Parse(%q) error code = %q, want %q", tt.input, parseErr.Code, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if q.Root() == nil {
				t.Fatalf("Parse(%q) returned nil root", tt.input)
			}
		})
	}
}

func TestParsePrecedence(t *testing.T) {
	// a or b and c must parse as a or (b and c).
	q, err := Parse(`severity=info or severity=warning and status=active`)
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	or, ok := q.Root().(*LogicalNode)
	if !ok || or.Operator != BoolOr {
		t.Fatalf("root = %#v, want OR logical node", q.Root())
	}
	if len(or.Children) != 2 {
		t.Fatalf("OR children = %d, want 2", len(or.Children))
	}
	if _, ok := or.Children[0].(*ExpressionNode); !ok {
		t.Errorf("first OR child = %T, want *ExpressionNode", or.Children[0])
	}
	and, ok := or.Children[1].(*LogicalNode)
	if !ok || and.Operator != BoolAnd {
		t.Fatalf("second OR child = %#v, want AND logical node", or.Children[1])
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantContains []string
		wantArgs     []interface{}
	}{
		{
			name:         "equality binds value",
			input:        `severity=critical`,
			wantContains: []string{"severity = ?"},
			wantArgs:     []interface{}{"critical"},
		},
		{
			name:         "visibility maps to its column",
			input:        `visibility=organization`,
			wantContains: []string{"visibility_kind = ?"},
			wantArgs:     []interface{}{"organization"},
		},
		{
			name:         "contains builds like pattern",
			input:        `title~"deploy"`,
			wantContains: []string{"title LIKE ? ESCAPE"},
			wantArgs:     []interface{}{"%deploy%"},
		},
		{
			name:         "like metacharacters escaped",
			input:        `title~"100%"`,
			wantContains: []string{"title LIKE ? ESCAPE"},
			wantArgs:     []interface{}{`%100\%%`},
		},
		{
			name:         "and joins conditions",
			input:        `severity=critical and status=active`,
			wantContains: []string{"severity = ?", "AND", "status = ?"},
			wantArgs:     []interface{}{"critical", "active"},
		},
		{
			name:         "not contains",
			input:        `message!~"planned"`,
			wantContains: []string{"message NOT LIKE ? ESCAPE"},
			wantArgs:     []interface{}{"%planned%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}

			sb := sqlbuilder.NewSelectBuilder()
			sb.Select("id").From("alerts")
			clause, err := q.Apply(sb)
			if err != nil {
				t.Fatalf("Apply() unexpected error: %v", err)
			}
			sb.Where(clause)

			query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)
			for _, want := range tt.wantContains {
				if !strings.Contains(query, want) {
					t.Errorf("query %q does not contain %q", query, want)
				}
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %#v, want %#v", args, tt.wantArgs)
			}
		})
	}
}
