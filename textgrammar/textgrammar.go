// Package textgrammar reads and writes the human-readable grammar text
// format of spec.md §6: one rule per logical line, an optional DCP line
// immediately following starting with "::". Grammar files are read as
// ISO-8859-1 (Latin-1, a strict one-byte-per-rune subset of Unicode, so
// no third-party charset library is warranted for the decode -- see
// DESIGN.md) and written as UTF-8.
//
//	[<weight>] <Nont>(<arg>;<arg>;…) -> <RhsNont> <RhsNont> …
//	:: <DcpRule>; <DcpRule>; …
package textgrammar

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dekarrin/lcfrsdcp/grammar"
	"github.com/dekarrin/lcfrsdcp/internal/util"
	"github.com/dekarrin/lcfrsdcp/symbol"
)

// Write renders g's rules to w in the grammar text format, UTF-8. The
// start nonterminal's rules are written first, so that Read, which takes
// the first rule's LHS as the start symbol, restores g's start symbol.
func Write(w io.Writer, g *grammar.Grammar) error {
	bw := bufio.NewWriter(w)
	rules := append([]*grammar.Rule(nil), g.RulesForLHS(g.Start())...)
	for _, r := range g.Rules() {
		if r.LHS != g.Start() {
			rules = append(rules, r)
		}
	}
	for _, r := range rules {
		argParts := make([]string, len(r.Args))
		for i, a := range r.Args {
			argParts[i] = a.String()
		}
		if _, err := fmt.Fprintf(bw, "%g %s(%s) -> %s\n", r.Weight, r.LHS, strings.Join(argParts, ";"), strings.Join(r.RHS, " ")); err != nil {
			return err
		}
		if len(r.DCP) > 0 {
			// Build the DCP line speculatively, writing each rule's
			// separator and rendering eagerly, then undo both if the
			// rule turns out to have no RHS (a bare "LHS=" attribute
			// isn't worth keeping in the line) rather than checking in
			// advance.
			var usb util.UndoableStringBuilder
			wrote := false
			for _, dr := range r.DCP {
				ops := 0
				if wrote {
					usb.WriteString("; ")
					ops++
				}
				usb.WriteString(dr.String())
				ops++
				if len(dr.RHS) == 0 {
					for ; ops > 0; ops-- {
						usb.Undo()
					}
					continue
				}
				wrote = true
			}
			if usb.Len() > 0 {
				if _, err := fmt.Fprintf(bw, ":: %s\n", usb.String()); err != nil {
					return err
				}
			}
		}
	}
	return bw.Flush()
}

// Read parses the grammar text format from r, read as ISO-8859-1, into
// a fresh Grammar whose start symbol is the first rule's LHS.
func Read(r io.Reader) (*grammar.Grammar, error) {
	br := bufio.NewReader(&latin1Reader{r: r})
	g := grammar.New()

	var pendingLHS string
	var pendingArgs []symbol.Arg
	var pendingRHS []string
	var pendingWeight float64
	havePending := false

	flush := func() error {
		if !havePending {
			return nil
		}
		if _, err := g.AddRule(pendingLHS, pendingArgs, pendingRHS, pendingWeight, nil); err != nil {
			return err
		}
		havePending = false
		return nil
	}

	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		lineNo++
		trimmed := strings.TrimRight(strings.TrimSpace(line), "\r\n")
		if trimmed == "" {
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		if strings.HasPrefix(trimmed, "::") {
			if !havePending {
				return nil, fmt.Errorf("textgrammar: line %d: DCP line with no preceding rule", lineNo)
			}
			dcp, perr := parseDCPRules(strings.TrimSpace(trimmed[2:]))
			if perr != nil {
				return nil, fmt.Errorf("textgrammar: line %d: %w", lineNo, perr)
			}
			if ferr := flushWithDCP(g, pendingLHS, pendingArgs, pendingRHS, pendingWeight, dcp); ferr != nil {
				return nil, ferr
			}
			havePending = false
		} else {
			if ferr := flush(); ferr != nil {
				return nil, ferr
			}
			lhs, args, rhs, weight, perr := parseRuleLine(trimmed)
			if perr != nil {
				return nil, fmt.Errorf("textgrammar: line %d: %w", lineNo, perr)
			}
			pendingLHS, pendingArgs, pendingRHS, pendingWeight = lhs, args, rhs, weight
			havePending = true
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if ferr := flush(); ferr != nil {
		return nil, ferr
	}
	return g, nil
}

func flushWithDCP(g *grammar.Grammar, lhs string, args []symbol.Arg, rhs []string, weight float64, dcp []symbol.DCPRule) error {
	_, err := g.AddRule(lhs, args, rhs, weight, dcp)
	return err
}

// parseRuleLine parses "[<weight>] <Nont>(<arg>;<arg>;…) -> <RhsNont> …".
// An individual <arg> may itself contain internal whitespace (Arg.String
// joins a multi-element component, e.g. a concatenation of two RHS
// spans, with a space), so the line is walked by paren position rather
// than split wholesale on whitespace.
func parseRuleLine(line string) (lhs string, args []symbol.Arg, rhs []string, weight float64, err error) {
	weight = 1.0
	rest := strings.TrimSpace(line)
	if rest == "" {
		return "", nil, nil, 0, fmt.Errorf("empty rule line")
	}

	if sp := strings.IndexByte(rest, ' '); sp >= 0 {
		if w, werr := strconv.ParseFloat(rest[:sp], 64); werr == nil {
			weight = w
			rest = strings.TrimSpace(rest[sp+1:])
		}
	}

	open := strings.IndexByte(rest, '(')
	if open < 0 {
		return "", nil, nil, 0, fmt.Errorf("malformed rule line %q: expected Nont(args)", line)
	}
	lhs = strings.TrimSpace(rest[:open])

	closeRel := strings.IndexByte(rest[open+1:], ')')
	if closeRel < 0 {
		return "", nil, nil, 0, fmt.Errorf("malformed rule line %q: unterminated args", line)
	}
	closeAt := open + 1 + closeRel

	argsText := rest[open+1 : closeAt]
	for _, argStr := range strings.Split(argsText, ";") {
		arg, aerr := parseArg(argStr)
		if aerr != nil {
			return "", nil, nil, 0, aerr
		}
		args = append(args, arg)
	}

	tail := strings.TrimSpace(rest[closeAt+1:])
	if !strings.HasPrefix(tail, "->") {
		return "", nil, nil, 0, fmt.Errorf("missing '->' in rule line %q", line)
	}
	rhs = strings.Fields(strings.TrimSpace(tail[2:]))
	return lhs, args, rhs, weight, nil
}

func parseArg(s string) (symbol.Arg, error) {
	var arg symbol.Arg
	for _, tok := range strings.Fields(s) {
		if strings.HasPrefix(tok, "<") {
			v, err := parseLCFRSVar(tok)
			if err != nil {
				return nil, err
			}
			arg = append(arg, v)
		} else {
			arg = append(arg, symbol.Terminal(tok))
		}
	}
	return arg, nil
}

func parseLCFRSVar(tok string) (symbol.LCFRSVar, error) {
	if !strings.HasPrefix(tok, "<") || !strings.HasSuffix(tok, ">") {
		return symbol.LCFRSVar{}, fmt.Errorf("malformed variable %q", tok)
	}
	inner := tok[1 : len(tok)-1]
	parts := strings.Split(inner, ",")
	if len(parts) != 2 {
		return symbol.LCFRSVar{}, fmt.Errorf("malformed variable %q: expected <i,j>", tok)
	}
	i, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return symbol.LCFRSVar{}, fmt.Errorf("malformed variable %q: %w", tok, err)
	}
	j, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return symbol.LCFRSVar{}, fmt.Errorf("malformed variable %q: %w", tok, err)
	}
	return symbol.LCFRSVar{I: i, J: j}, nil
}

// parseDCPRules parses "<j>=<term> <term>…; <i,j>=<term>…" into a list
// of symbol.DCPRule.
func parseDCPRules(s string) ([]symbol.DCPRule, error) {
	var out []symbol.DCPRule
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return nil, fmt.Errorf("malformed DCP rule %q: missing '='", part)
		}
		lhs, err := parseDCPLHS(strings.TrimSpace(part[:eq]))
		if err != nil {
			return nil, err
		}
		rhsToks := tokenizeTerms(strings.TrimSpace(part[eq+1:]))
		rhs, _, err := parseTermSeq(rhsToks, 0, len(rhsToks))
		if err != nil {
			return nil, err
		}
		out = append(out, symbol.DCPRule{LHS: lhs, RHS: rhs})
	}
	return out, nil
}

func parseDCPLHS(s string) (symbol.DCPVar, error) {
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		return parseLCFRSVarAsDCP(s)
	}
	j, err := strconv.Atoi(s)
	if err != nil {
		return symbol.DCPVar{}, fmt.Errorf("malformed DCP LHS %q: expected <j>, <i,j>, or a bare integer", s)
	}
	return symbol.DCPVar{I: -1, J: j}, nil
}

// parseLCFRSVarAsDCP parses a DCP variable reference, which may be
// either the two-component LCFRSVar form "<i,j>" (an RHS attribute
// reference) or the one-component form "<j>" (an LHS/self reference,
// equivalent to "<-1,j>" -- this is the form symbol.DCPVar.String()
// itself emits when I == -1).
func parseLCFRSVarAsDCP(tok string) (symbol.DCPVar, error) {
	if !strings.HasPrefix(tok, "<") || !strings.HasSuffix(tok, ">") {
		return symbol.DCPVar{}, fmt.Errorf("malformed DCP variable %q", tok)
	}
	inner := tok[1 : len(tok)-1]
	parts := strings.Split(inner, ",")
	switch len(parts) {
	case 1:
		j, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return symbol.DCPVar{}, fmt.Errorf("malformed DCP variable %q: %w", tok, err)
		}
		return symbol.DCPVar{I: -1, J: j}, nil
	case 2:
		v, err := parseLCFRSVar(tok)
		if err != nil {
			return symbol.DCPVar{}, err
		}
		return symbol.DCPVar{I: v.I, J: v.J}, nil
	default:
		return symbol.DCPVar{}, fmt.Errorf("malformed DCP variable %q", tok)
	}
}

// tokenizeTerms splits a DCP term sequence into parenthesis/bracket/
// angle-bracket-aware tokens, treating "(", ")" as standalone tokens so
// parseTermSeq can walk nesting explicitly.
func tokenizeTerms(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	depth := 0
	for _, r := range s {
		switch r {
		case '<':
			cur.WriteRune(r)
			depth++
		case '>':
			cur.WriteRune(r)
			depth--
		case '(', ')':
			flush()
			toks = append(toks, string(r))
		case ' ', '\t':
			if depth > 0 {
				cur.WriteRune(r)
			} else {
				flush()
			}
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

// parseTermSeq parses zero or more terms from toks[start:end], stopping
// at a top-level ")" or the end of the slice, and returns the parsed
// elements plus the index just past the last consumed token.
func parseTermSeq(toks []string, start, end int) ([]symbol.DCPElement, int, error) {
	var out []symbol.DCPElement
	i := start
	for i < end {
		if toks[i] == ")" {
			break
		}
		el, next, err := parseTerm(toks, i, end)
		if err != nil {
			return nil, i, err
		}
		out = append(out, el)
		i = next
	}
	return out, i, nil
}

func parseTerm(toks []string, i, end int) (symbol.DCPElement, int, error) {
	if i >= end {
		return nil, i, fmt.Errorf("unexpected end of DCP term sequence")
	}
	tok := toks[i]

	isIndex := strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]")
	isVar := strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">")

	// A bare "[k]" or "<i,j>" is itself a term unless followed by "(",
	// in which case it is the headed form of a DCPTerm with children
	// ("[k](child child …)").
	if (isIndex || isVar) && !(i+1 < end && toks[i+1] == "(") {
		if isIndex {
			k, err := strconv.Atoi(tok[1 : len(tok)-1])
			if err != nil {
				return nil, i, fmt.Errorf("malformed index term %q: %w", tok, err)
			}
			return symbol.DCPIndex{K: k}, i + 1, nil
		}
		v, err := parseLCFRSVarAsDCP(tok)
		if err != nil {
			return nil, i, err
		}
		return v, i + 1, nil
	}

	// head term: IDENT or "[k]" followed by "(" term* ")", or a bare IDENT.
	if i+1 < end && toks[i+1] == "(" {
		children, next, err := parseTermSeq(toks, i+2, end)
		if err != nil {
			return nil, i, err
		}
		if next >= end || toks[next] != ")" {
			return nil, i, fmt.Errorf("unterminated term %q: missing ')'", tok)
		}
		if isIndex {
			k, err := strconv.Atoi(tok[1 : len(tok)-1])
			if err != nil {
				return nil, i, fmt.Errorf("malformed index term %q: %w", tok, err)
			}
			idx := symbol.DCPIndex{K: k}
			return symbol.DCPTerm{HeadIndex: &idx, Children: children}, next + 1, nil
		}
		head, edge := splitEdgeLabel(tok)
		return symbol.DCPTerm{Head: head, EdgeLabel: edge, Children: children}, next + 1, nil
	}

	head, edge := splitEdgeLabel(tok)
	return symbol.DCPTerm{Head: head, EdgeLabel: edge}, i + 1, nil
}

// splitEdgeLabel undoes DCPTerm.String()'s "Head:EdgeLabel" rendering for
// a bare-head term, recovering the two fields separately instead of
// folding the label into Head verbatim.
func splitEdgeLabel(tok string) (head, edge string) {
	if idx := strings.IndexByte(tok, ':'); idx >= 0 {
		return tok[:idx], tok[idx+1:]
	}
	return tok, ""
}

// latin1Reader decodes an ISO-8859-1 byte stream to UTF-8 on the fly:
// every Latin-1 code point maps directly onto the identical Unicode
// code point, so the conversion is a plain byte->rune widening with no
// table lookups required. Since a single input byte can widen to two
// UTF-8 bytes, decoded output too big for the caller's buffer is held
// in pending until the next Read call.
type latin1Reader struct {
	r       io.Reader
	pending []byte
	readErr error
}

func (l *latin1Reader) Read(p []byte) (int, error) {
	if len(l.pending) == 0 && l.readErr == nil {
		buf := make([]byte, 4096)
		n, err := l.r.Read(buf)
		l.readErr = err
		if n > 0 {
			var sb strings.Builder
			for _, b := range buf[:n] {
				sb.WriteRune(rune(b))
			}
			l.pending = append(l.pending, sb.String()...)
		}
	}
	if len(l.pending) > 0 {
		n := copy(p, l.pending)
		l.pending = l.pending[n:]
		return n, nil
	}
	return 0, l.readErr
}
