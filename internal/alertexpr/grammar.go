package alertexpr

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\n\r]+`},
	{Name: "Operator", Pattern: `>=|<=|[=><]`},
	{Name: "Number", Pattern: `[0-9]*\.?[0-9]+`},
	{Name: "Percent", Pattern: `%`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
})

// pExpr is "<eval_method> <bound>+".
type pExpr struct {
	Method string    `parser:"@Ident"`
	Bounds []*pBound `parser:"@@+"`
}

// pBound is "<operator> <number> [%]".
type pBound struct {
	Operator string `parser:"@Operator"`
	Value    string `parser:"@Number"`
	Percent  bool   `parser:"@Percent?"`
}

var exprParser = participle.MustBuild[pExpr](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
)
