package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/ncruces/go-strftime"

	"github.com/ByLCY/modulistica/binding"
)

// 模板语法：普通文本中以 {name.path} 或 {name.path:spec} 引用命名空间中的值，
// {{ 与 }} 分别表示字面量的 { 与 }。
var (
	templateLexer = lexer.MustStateful(lexer.Rules{
		"Root": {
			{Name: "Escaped", Pattern: `\{\{|\}\}`},
			{Name: "Open", Pattern: `\{`, Action: lexer.Push("Placeholder")},
			{Name: "Text", Pattern: `[^{}]+`},
		},
		"Placeholder": {
			{Name: "Whitespace", Pattern: `[ \t]+`},
			{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
			{Name: "Dot", Pattern: `\.`},
			{Name: "Spec", Pattern: `:[^}]*`},
			{Name: "Close", Pattern: `\}`, Action: lexer.Pop()},
		},
	})

	templateParser = participle.MustBuild[templateAST](
		participle.Lexer(templateLexer),
		participle.Elide("Whitespace"),
	)
)

type templateAST struct {
	Parts []*templatePart `parser:"@@*"`
}

type templatePart struct {
	Escaped *string      `parser:"  @Escaped"`
	Text    *string      `parser:"| @Text"`
	Expr    *Placeholder `parser:"| Open @@ Close"`
}

// Placeholder is one {root.path:spec} reference.
type Placeholder struct {
	Root string   `parser:"@Ident"`
	Path []string `parser:"( Dot @Ident )*"`
	Spec string   `parser:"@Spec?"`
}

// Template is a parsed template. A template whose source failed to parse keeps
// the error and reports it from Execute.
type Template struct {
	Source string
	ast    *templateAST
	err    error
}

// Env is the substitution namespace of a template.
type Env map[string]any

// TimeOfDay renders as HH:MM:SS.
type TimeOfDay time.Time

func (t TimeOfDay) String() string { return time.Time(t).Format(time.TimeOnly) }

// NewEnv builds the standard namespace: obj, now, date and time, plus extras.
// Extras never shadow the standard names.
func NewEnv(obj any, now time.Time, extra map[string]any) Env {
	env := Env{}
	for k, v := range extra {
		env[k] = v
	}
	env["obj"] = obj
	env["now"] = now
	env["date"] = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	env["time"] = TimeOfDay(now)
	return env
}

// ParseTemplate parses src and reports syntax errors.
func ParseTemplate(src string) (*Template, error) {
	ast, err := templateParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("模板解析失败 %q: %w", src, err)
	}
	return &Template{Source: src, ast: ast}, nil
}

// CompileTemplate parses src once; parse errors surface when the template is executed.
func CompileTemplate(src string) *Template {
	t, err := ParseTemplate(src)
	if err != nil {
		return &Template{Source: src, err: err}
	}
	return t
}

// Err returns the parse error, if any.
func (t *Template) Err() error {
	if t == nil {
		return nil
	}
	return t.err
}

// Execute substitutes every placeholder from env. Paths that resolve to nothing
// under a known root render as empty text; unknown roots and unusable format
// specs are errors.
func (t *Template) Execute(env Env) (string, error) {
	if t == nil {
		return "", nil
	}
	if t.err != nil {
		return "", t.err
	}
	var sb strings.Builder
	for _, part := range t.ast.Parts {
		switch {
		case part.Escaped != nil:
			sb.WriteString((*part.Escaped)[:1])
		case part.Text != nil:
			sb.WriteString(*part.Text)
		case part.Expr != nil:
			s, err := part.Expr.eval(env)
			if err != nil {
				return "", err
			}
			sb.WriteString(s)
		}
	}
	return sb.String(), nil
}

func (p *Placeholder) eval(env Env) (string, error) {
	root, ok := env[p.Root]
	if !ok {
		return "", fmt.Errorf("模板引用了未知名称 %q", p.Root)
	}
	value := root
	if len(p.Path) > 0 {
		value = binding.Lookup(root, strings.Join(p.Path, "."))
	}
	return applySpec(value, strings.TrimPrefix(p.Spec, ":"))
}

func applySpec(value any, spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return binding.Stringify(value), nil
	}
	switch v := value.(type) {
	case nil:
		return "", nil
	case time.Time:
		return strftime.Format(spec, v), nil
	case TimeOfDay:
		return strftime.Format(spec, time.Time(v)), nil
	case int, int32, int64, float32, float64:
		return formatNumber(v, spec)
	default:
		return binding.Stringify(v), nil
	}
}

// formatNumber supports the ".Nf" and "d" number specs.
func formatNumber(value any, spec string) (string, error) {
	var f float64
	switch n := value.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	}
	switch {
	case spec == "d":
		return strconv.FormatInt(int64(f), 10), nil
	case strings.HasPrefix(spec, ".") && strings.HasSuffix(spec, "f"):
		prec, err := strconv.Atoi(spec[1 : len(spec)-1])
		if err != nil || prec < 0 {
			return "", fmt.Errorf("无法识别的数字格式 %q", spec)
		}
		return strconv.FormatFloat(f, 'f', prec, 64), nil
	default:
		return "", fmt.Errorf("无法识别的数字格式 %q", spec)
	}
}
