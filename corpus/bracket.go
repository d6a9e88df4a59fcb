package corpus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dekarrin/lcfrsdcp/gtree"
)

// ReadBracket parses one bracket-notation constituent tree, e.g.
// "(S (NP Piet) (VP helpen (VP lezen (NP Marie))))", and returns it as
// a gtree.Tree. A leaf may be annotated "word@pos" (e.g. "Piet@0") to
// fix its surface yield position explicitly, independent of its
// position in the bracketing -- the mechanism this reader uses to
// represent cross-serial / discontinuous constituents, which ordinary
// nested bracket notation cannot otherwise express. Leaves with no
// "@pos" annotation are assigned positions in left-to-right
// encounter order, interleaved with any explicitly positioned leaves.
func ReadBracket(src string) (gtree.Tree, error) {
	toks := tokenizeBracket(src)
	if len(toks) == 0 {
		return nil, fmt.Errorf("corpus: empty bracket tree")
	}

	t := newMemTree()
	var nextID int
	newNodeID := func() gtree.NodeID {
		id := gtree.NodeID(fmt.Sprintf("n%d", nextID))
		nextID++
		return id
	}

	type pending struct {
		id  gtree.NodeID
		pos int
		has bool
	}
	var leaves []pending

	idx := 0
	var parse func() (gtree.NodeID, error)
	parse = func() (gtree.NodeID, error) {
		if idx >= len(toks) || toks[idx] != "(" {
			return "", fmt.Errorf("corpus: expected '(' at token %d", idx)
		}
		idx++ // consume '('
		if idx >= len(toks) {
			return "", fmt.Errorf("corpus: unexpected end of input after '('")
		}
		label := toks[idx]
		idx++

		id := newNodeID()
		var childIDs []gtree.NodeID
		for idx < len(toks) && toks[idx] != ")" {
			if toks[idx] == "(" {
				cid, err := parse()
				if err != nil {
					return "", err
				}
				childIDs = append(childIDs, cid)
				continue
			}
			// bare leaf token
			word, explicitPos, hasPos, err := splitLeafToken(toks[idx])
			if err != nil {
				return "", err
			}
			idx++
			leafID := newNodeID()
			t.tokens[leafID] = gtree.Token{Form: word, POS: label, Category: label}
			if hasPos {
				leaves = append(leaves, pending{id: leafID, pos: explicitPos, has: true})
			} else {
				leaves = append(leaves, pending{id: leafID, has: false})
			}
			childIDs = append(childIDs, leafID)
		}
		if idx >= len(toks) || toks[idx] != ")" {
			return "", fmt.Errorf("corpus: expected ')' to close node %q", label)
		}
		idx++ // consume ')'

		if len(childIDs) == 0 {
			return "", fmt.Errorf("corpus: node %q has no children or leaf", label)
		}
		t.tokens[id] = gtree.Token{Category: label}
		for _, c := range childIDs {
			t.attach(id, c)
		}
		return id, nil
	}

	root, err := parse()
	if err != nil {
		return nil, err
	}
	if idx != len(toks) {
		return nil, fmt.Errorf("corpus: trailing tokens after root close paren")
	}
	t.root = root

	total := len(leaves)
	filled := make([]bool, total)
	ordered := make([]gtree.NodeID, total)
	for _, l := range leaves {
		if !l.has {
			continue
		}
		if l.pos < 0 || l.pos >= total {
			return nil, fmt.Errorf("corpus: explicit leaf position %d out of range [0,%d)", l.pos, total)
		}
		if filled[l.pos] {
			return nil, fmt.Errorf("corpus: two leaves both claim explicit position %d", l.pos)
		}
		ordered[l.pos] = l.id
		filled[l.pos] = true
	}
	next := 0
	for _, l := range leaves {
		if l.has {
			continue
		}
		for filled[next] {
			next++
		}
		ordered[next] = l.id
		filled[next] = true
	}
	for i := range filled {
		if !filled[i] {
			return nil, fmt.Errorf("corpus: could not resolve a contiguous 0..n-1 leaf position assignment")
		}
	}

	t.finalize(ordered)
	return t, nil
}

func splitLeafToken(tok string) (word string, pos int, hasPos bool, err error) {
	if i := strings.LastIndex(tok, "@"); i > 0 {
		p, perr := strconv.Atoi(tok[i+1:])
		if perr == nil {
			return tok[:i], p, true, nil
		}
	}
	return tok, 0, false, nil
}

func tokenizeBracket(src string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}
