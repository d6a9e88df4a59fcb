package corpus

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dekarrin/lcfrsdcp/gtree"
)

// ReadCoNLL reads one CoNLL-X formatted sentence (ID FORM LEMMA CPOSTAG
// POSTAG FEATS HEAD DEPREL [PHEAD PDEPREL], tab or space separated,
// blank line terminated) from r and returns it as a gtree.Tree whose
// nodes are simultaneously yield positions (leaves, in ID order) and
// dependency governors (with their dependents as tree Children) -- a
// dependency tree has no separate notion of "internal node".
func ReadCoNLL(r io.Reader) (gtree.Tree, error) {
	scanner := bufio.NewScanner(r)

	type row struct {
		id, head         int
		form, pos, deprel string
	}
	var rows []row
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if len(rows) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 8 {
			return nil, fmt.Errorf("corpus: malformed CoNLL-X row %q: need at least 8 fields", line)
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("corpus: bad ID field %q: %w", fields[0], err)
		}
		head, err := strconv.Atoi(fields[6])
		if err != nil {
			return nil, fmt.Errorf("corpus: bad HEAD field %q: %w", fields[6], err)
		}
		rows = append(rows, row{id: id, form: fields[1], pos: fields[4], head: head, deprel: fields[7]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, io.EOF
	}

	t := newMemTree()
	idOf := func(n int) gtree.NodeID { return gtree.NodeID(fmt.Sprintf("w%d", n)) }

	var rootID gtree.NodeID
	var haveRoot bool
	leaves := make([]gtree.NodeID, 0, len(rows))
	for _, r := range rows {
		id := idOf(r.id)
		t.tokens[id] = gtree.Token{Form: r.form, POS: r.pos, Category: r.pos, EdgeLabel: r.deprel}
		leaves = append(leaves, id)
		if r.head == 0 {
			if haveRoot {
				return nil, fmt.Errorf("corpus: CoNLL sentence has more than one root (HEAD=0) token")
			}
			rootID = id
			haveRoot = true
		}
	}
	if !haveRoot {
		return nil, fmt.Errorf("corpus: CoNLL sentence has no root (HEAD=0) token")
	}
	for _, r := range rows {
		if r.head == 0 {
			continue
		}
		t.attach(idOf(r.head), idOf(r.id))
	}
	t.root = rootID
	t.finalize(leaves)
	return t, nil
}
