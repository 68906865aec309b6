package parse

import (
	"strings"

	"github.com/urdwyrd/urd/ast"
	"github.com/urdwyrd/urd/diag"
	"github.com/urdwyrd/urd/span"
)

// line is one physical line of a file's content region after the
// frontmatter block, with indentation measured in 2-space units.
type line struct {
	number  int
	indent  int
	text    string // content after leading whitespace, trailing newline stripped
	hadTabs bool
}

// scanLines splits the content region into lines, computing indent level
// in 2-space units and flagging tab usage (tabs are not permitted for
// indentation per the PARSE contract).
func scanLines(body string, startLine int) []line {
	raw := strings.Split(body, "\n")
	out := make([]line, 0, len(raw))
	for i, text := range raw {
		text = strings.TrimRight(text, "\r")
		hadTabs := strings.HasPrefix(text, "\t") || strings.Contains(leadingWhitespace(text), "\t")
		lead := leadingWhitespace(text)
		indent := len(strings.ReplaceAll(lead, "\t", "  ")) / 2
		out = append(out, line{
			number:  startLine + i,
			indent:  indent,
			text:    strings.TrimLeft(text, " \t"),
			hadTabs: hadTabs,
		})
	}
	return out
}

func leadingWhitespace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}

// contentParser walks a slice of lines producing ContentNode trees.
type contentParser struct {
	path  string
	lines []line
	pos   int
	diags *diag.Collector
}

func parseContent(path string, lines []line, c *diag.Collector) []ast.ContentNode {
	p := &contentParser{path: path, lines: lines, diags: c}
	return p.parseBlock(-1)
}

func (p *contentParser) peek() (line, bool) {
	if p.pos >= len(p.lines) {
		return line{}, false
	}
	return p.lines[p.pos], true
}

// parseBlock consumes lines more indented than parentIndent, returning
// when a line at or below parentIndent is found (or input is exhausted).
func (p *contentParser) parseBlock(parentIndent int) []ast.ContentNode {
	var nodes []ast.ContentNode
	for {
		ln, ok := p.peek()
		if !ok {
			return nodes
		}
		if strings.TrimSpace(ln.text) == "" {
			p.pos++
			continue
		}
		if ln.indent <= parentIndent {
			return nodes
		}
		if ln.hadTabs {
			p.diags.Error(diag.NewCode(105), "tabs are not permitted for indentation", span.New(p.path, ln.number, 1))
		}
		nodes = append(nodes, p.parseOne(ln))
	}
}

func (p *contentParser) sp(ln line) span.Span {
	return span.New(p.path, ln.number, ln.indent*2+1)
}

func (p *contentParser) parseOne(ln line) ast.ContentNode {
	text := ln.text
	switch {
	case strings.HasPrefix(text, "### "):
		p.pos++
		body := strings.TrimSpace(strings.TrimPrefix(text, "### "))
		auto := strings.HasSuffix(body, "(auto)")
		if auto {
			body = strings.TrimSpace(strings.TrimSuffix(body, "(auto)"))
		}
		return ast.ContentNode{Kind: ast.NodePhaseHeading, PhaseHeading: &ast.PhaseHeading{DisplayName: body, Auto: auto, Span: p.sp(ln)}}
	case strings.HasPrefix(text, "## "):
		p.pos++
		return ast.ContentNode{Kind: ast.NodeSequenceHeading, SequenceHeading: &ast.SequenceHeading{DisplayName: strings.TrimSpace(strings.TrimPrefix(text, "## ")), Span: p.sp(ln)}}
	case strings.HasPrefix(text, "# "):
		p.pos++
		return ast.ContentNode{Kind: ast.NodeLocationHeading, LocationHeading: &ast.LocationHeading{DisplayName: strings.TrimSpace(strings.TrimPrefix(text, "# ")), Span: p.sp(ln)}}
	case strings.HasPrefix(text, "== "):
		p.pos++
		return ast.ContentNode{Kind: ast.NodeSectionLabel, SectionLabel: &ast.SectionLabel{Name: strings.TrimSpace(strings.TrimPrefix(text, "== ")), Span: p.sp(ln)}}
	case strings.HasPrefix(text, "//"):
		p.pos++
		return ast.ContentNode{Kind: ast.NodeComment, Comment: &ast.Comment{Text: strings.TrimSpace(strings.TrimPrefix(text, "//")), Span: p.sp(ln)}}
	case strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]"):
		p.pos++
		inner := strings.TrimSuffix(strings.TrimPrefix(text, "["), "]")
		var refs []string
		for _, part := range strings.Split(inner, ",") {
			ref := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "@"))
			if ref != "" {
				refs = append(refs, ref)
			}
		}
		anns := make([]*ast.Annotation, len(refs))
		return ast.ContentNode{Kind: ast.NodeEntityPresence, EntityPresence: &ast.EntityPresence{EntityRefs: refs, Annotations: anns, Span: p.sp(ln)}}
	case strings.HasPrefix(text, "* ") || strings.HasPrefix(text, "+ ") || text == "*" || text == "+":
		return p.parseChoice(ln)
	case text == "? any:" || strings.HasPrefix(text, "? any:"):
		return p.parseOrBlock(ln)
	case strings.HasPrefix(text, "? "):
		p.pos++
		expr := parseConditionExpr(strings.TrimSpace(strings.TrimPrefix(text, "? ")), p.sp(ln), p.diags)
		return ast.ContentNode{Kind: ast.NodeCondition, Condition: &ast.Condition{Expr: expr, IndentLevel: ln.indent, Span: p.sp(ln)}}
	case strings.HasPrefix(text, "> "):
		p.pos++
		eff := parseEffect(strings.TrimSpace(strings.TrimPrefix(text, "> ")), p.sp(ln), p.diags)
		return ast.ContentNode{Kind: ast.NodeEffect, Effect: &ast.Effect{EffectType: eff, IndentLevel: ln.indent, Span: p.sp(ln)}}
	case strings.HasPrefix(text, "-> "):
		return p.parseArrow(ln)
	case strings.HasPrefix(text, "! "):
		p.pos++
		return ast.ContentNode{Kind: ast.NodeBlockedMessage, BlockedMessage: &ast.BlockedMessage{Text: strings.TrimSpace(strings.TrimPrefix(text, "! ")), IndentLevel: ln.indent, Span: p.sp(ln)}}
	case strings.HasPrefix(text, "rule ") && strings.HasSuffix(strings.TrimSpace(text), ":"):
		return p.parseRuleBlock(ln)
	case strings.HasPrefix(text, "@"):
		return p.parseEntityLine(ln)
	default:
		p.pos++
		return ast.ContentNode{Kind: ast.NodeProse, Prose: &ast.Prose{Text: text, Span: p.sp(ln)}}
	}
}

func (p *contentParser) parseChoice(ln line) ast.ContentNode {
	p.pos++
	sticky := strings.HasPrefix(ln.text, "+")
	rest := strings.TrimSpace(ln.text[1:])
	label := rest
	var target, targetType *string
	if idx := strings.Index(rest, "->"); idx >= 0 {
		label = strings.TrimSpace(rest[:idx])
		t := strings.TrimSpace(rest[idx+2:])
		target = &t
		tt := "section"
		if strings.HasPrefix(t, "exit:") {
			tt = "exit"
			trimmed := strings.TrimPrefix(t, "exit:")
			target = &trimmed
		}
		targetType = &tt
	}
	children := p.parseBlock(ln.indent)
	return ast.ContentNode{Kind: ast.NodeChoice, Choice: &ast.Choice{
		Sticky: sticky, Label: label, Target: target, TargetType: targetType,
		Content: children, IndentLevel: ln.indent, Span: p.sp(ln),
	}}
}

func (p *contentParser) parseOrBlock(ln line) ast.ContentNode {
	p.pos++
	var exprs []ast.ConditionExpr
	for {
		next, ok := p.peek()
		if !ok || next.indent <= ln.indent {
			break
		}
		exprs = append(exprs, parseConditionExpr(strings.TrimSpace(strings.TrimPrefix(next.text, "- ")), p.sp(next), p.diags))
		p.pos++
	}
	return ast.ContentNode{Kind: ast.NodeOrConditionBlock, OrConditionBlock: &ast.OrConditionBlock{Conditions: exprs, IndentLevel: ln.indent, Span: p.sp(ln)}}
}

func (p *contentParser) parseArrow(ln line) ast.ContentNode {
	rest := strings.TrimSpace(strings.TrimPrefix(ln.text, "-> "))
	if idx := strings.Index(rest, ":"); idx >= 0 && !strings.HasPrefix(rest, "exit:") {
		p.pos++
		direction := strings.TrimSpace(rest[:idx])
		destination := strings.TrimSpace(rest[idx+1:])
		children := p.parseBlock(ln.indent)
		return ast.ContentNode{Kind: ast.NodeExitDeclaration, ExitDeclaration: &ast.ExitDeclaration{
			Direction: direction, Destination: destination, Children: children, Span: p.sp(ln),
		}}
	}
	p.pos++
	exitQualified := strings.HasPrefix(rest, "exit:")
	target := strings.TrimPrefix(rest, "exit:")
	return ast.ContentNode{Kind: ast.NodeJump, Jump: &ast.Jump{Target: target, IsExitQualified: exitQualified, IndentLevel: ln.indent, Span: p.sp(ln)}}
}

func (p *contentParser) parseRuleBlock(ln line) ast.ContentNode {
	p.pos++
	name := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(ln.text, "rule ")), ":")
	rb := &ast.RuleBlock{Name: name, Span: p.sp(ln)}
	for {
		next, ok := p.peek()
		if !ok || next.indent <= ln.indent {
			break
		}
		switch {
		case strings.HasPrefix(next.text, "actor:"):
			rb.Actor = strings.TrimSpace(strings.TrimPrefix(next.text, "actor:"))
			p.pos++
		case strings.HasPrefix(next.text, "trigger:"):
			rb.Trigger = strings.TrimSpace(strings.TrimPrefix(next.text, "trigger:"))
			p.pos++
		case strings.HasPrefix(next.text, "select"):
			rb.Select = p.parseSelectClause(next)
		case strings.HasPrefix(next.text, "where:"):
			expr := parseConditionExpr(strings.TrimSpace(strings.TrimPrefix(next.text, "where:")), p.sp(next), p.diags)
			rb.WhereClauses = append(rb.WhereClauses, expr)
			p.pos++
		case strings.HasPrefix(next.text, "> "):
			eff := parseEffect(strings.TrimSpace(strings.TrimPrefix(next.text, "> ")), p.sp(next), p.diags)
			rb.Effects = append(rb.Effects, ast.Effect{EffectType: eff, IndentLevel: next.indent, Span: p.sp(next)})
			p.pos++
		default:
			p.pos++
		}
	}
	return ast.ContentNode{Kind: ast.NodeRuleBlock, RuleBlock: rb}
}

func (p *contentParser) parseSelectClause(ln line) *ast.SelectClause {
	p.pos++
	sc := &ast.SelectClause{Span: p.sp(ln)}
	body := strings.TrimSpace(strings.TrimPrefix(ln.text, "select"))
	body = strings.TrimPrefix(body, "s")
	fromIdx := strings.Index(body, "from")
	var varPart, refsPart string
	if fromIdx >= 0 {
		varPart = strings.TrimSpace(body[:fromIdx])
		refsPart = strings.TrimSpace(body[fromIdx+len("from"):])
	} else {
		varPart = strings.TrimSpace(body)
	}
	sc.Variable = strings.TrimSpace(varPart)
	if whereIdx := strings.Index(refsPart, "where"); whereIdx >= 0 {
		refsOnly := strings.TrimSpace(refsPart[:whereIdx])
		sc.EntityRefs = splitRefs(refsOnly)
	} else {
		sc.EntityRefs = splitRefs(refsPart)
	}
	for {
		next, ok := p.peek()
		if !ok || next.indent <= ln.indent {
			break
		}
		if strings.HasPrefix(next.text, "where:") {
			expr := parseConditionExpr(strings.TrimSpace(strings.TrimPrefix(next.text, "where:")), p.sp(next), p.diags)
			sc.WhereClauses = append(sc.WhereClauses, expr)
			p.pos++
			continue
		}
		break
	}
	return sc
}

func splitRefs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		ref := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "@"))
		if ref != "" {
			out = append(out, ref)
		}
	}
	return out
}

// parseEntityLine handles `@id: speech text` and `@id stage direction text`.
func (p *contentParser) parseEntityLine(ln line) ast.ContentNode {
	p.pos++
	text := ln.text
	rest := strings.TrimPrefix(text, "@")
	idEnd := strings.IndexAny(rest, ": ")
	if idEnd < 0 {
		return ast.ContentNode{Kind: ast.NodeProse, Prose: &ast.Prose{Text: text, Span: p.sp(ln)}}
	}
	id := rest[:idEnd]
	remainder := rest[idEnd:]
	if strings.HasPrefix(remainder, ":") {
		return ast.ContentNode{Kind: ast.NodeEntitySpeech, EntitySpeech: &ast.EntitySpeech{
			EntityRef: id, Text: strings.TrimSpace(strings.TrimPrefix(remainder, ":")), Span: p.sp(ln),
		}}
	}
	return ast.ContentNode{Kind: ast.NodeStageDirection, StageDirection: &ast.StageDirection{
		EntityRef: id, Text: strings.TrimSpace(remainder), Span: p.sp(ln),
	}}
}

var comparisonOps = []string{"<=", ">=", "==", "!=", "<", ">"}

func parseConditionExpr(text string, sp span.Span, c *diag.Collector) ast.ConditionExpr {
	switch {
	case strings.HasPrefix(text, "exhausted "):
		name := strings.TrimSpace(strings.TrimPrefix(text, "exhausted "))
		return ast.ConditionExpr{Kind: ast.ExprExhaustionCheck, ExhaustionCheck: &ast.ExhaustionCheck{SectionName: name, Span: sp}}
	case strings.Contains(text, " not in "):
		parts := strings.SplitN(text, " not in ", 2)
		return ast.ConditionExpr{Kind: ast.ExprContainmentCheck, ContainmentCheck: &ast.ContainmentCheck{
			EntityRef: trimRef(parts[0]), ContainerRef: strings.TrimSpace(parts[1]), Negated: true, Span: sp,
		}}
	case strings.Contains(text, " in "):
		parts := strings.SplitN(text, " in ", 2)
		return ast.ConditionExpr{Kind: ast.ExprContainmentCheck, ContainmentCheck: &ast.ContainmentCheck{
			EntityRef: trimRef(parts[0]), ContainerRef: strings.TrimSpace(parts[1]), Negated: false, Span: sp,
		}}
	default:
		for _, op := range comparisonOps {
			if idx := strings.Index(text, op); idx >= 0 {
				left := strings.TrimSpace(text[:idx])
				right := strings.TrimSpace(text[idx+len(op):])
				entity, prop := splitEntityProperty(left)
				return ast.ConditionExpr{Kind: ast.ExprPropertyComparison, PropertyComparison: &ast.PropertyComparison{
					EntityRef: entity, Property: prop, Operator: op, Value: right, Span: sp,
				}}
			}
		}
		c.Error(diag.NewCode(106), "unrecognised condition expression: '"+text+"'", sp)
		return ast.ConditionExpr{Kind: ast.ExprExhaustionCheck, ExhaustionCheck: &ast.ExhaustionCheck{SectionName: "", Span: sp}}
	}
}

func trimRef(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}

func splitEntityProperty(s string) (entity, property string) {
	s = trimRef(s)
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}

func parseEffect(text string, sp span.Span, c *diag.Collector) ast.EffectType {
	switch {
	case strings.HasPrefix(text, "move "):
		rest := strings.TrimSpace(strings.TrimPrefix(text, "move "))
		if idx := strings.Index(rest, "->"); idx >= 0 {
			entity := trimRef(rest[:idx])
			dest := strings.TrimSpace(rest[idx+2:])
			return ast.EffectType{Kind: ast.EffectMove, EntityRef: entity, DestinationRef: dest}
		}
	case strings.HasPrefix(text, "reveal "):
		target := trimRef(strings.TrimSpace(strings.TrimPrefix(text, "reveal ")))
		return ast.EffectType{Kind: ast.EffectReveal, TargetProp: target}
	case strings.HasPrefix(text, "destroy "):
		entity := trimRef(strings.TrimSpace(strings.TrimPrefix(text, "destroy ")))
		return ast.EffectType{Kind: ast.EffectDestroy, EntityRef: entity}
	default:
		for _, op := range []string{"=", "+", "-"} {
			if idx := strings.Index(text, op); idx >= 0 {
				left := strings.TrimSpace(text[:idx])
				right := strings.TrimSpace(text[idx+len(op):])
				if left != "" && right != "" {
					return ast.EffectType{Kind: ast.EffectSet, TargetProp: trimRef(left), Operator: op, ValueExpr: right}
				}
			}
		}
	}
	c.Error(diag.NewCode(107), "unrecognised effect expression: '"+text+"'", sp)
	return ast.EffectType{Kind: ast.EffectDestroy}
}
