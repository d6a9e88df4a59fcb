/*
Lcfrsparse runs the induce -> parse -> evaluate -> score loop end to
end over one treebank: it induces an LCFRS+DCP grammar from every
sentence of the corpus (or loads one previously written, if --grammar
names an existing file), reparses each sentence's own yield, folds the
resulting derivation into an output tree, and reports labelled-span
accuracy against the corpus itself as gold. It is a demonstration
front-end, not a held-out evaluation harness.

Usage:

	lcfrsparse [flags]

The flags are:

	-g, --grammar FILE
		Grammar text file (§6 format). If FILE exists it is loaded and
		no induction is performed; otherwise a grammar is induced from
		--input and, if --grammar was given, written there.

	-i, --input FILE
		Corpus file to induce from and evaluate against.

	-f, --format FORMAT
		Corpus format: "bracket" or "conll". Defaults to "bracket".

	-s, --strategy STRATEGY
		Recursive partitioning strategy: "left", "right", "direct",
		"fanout", or "cfg". Defaults to "cfg".

	--fanout N
		Fanout bound used by the "fanout" strategy. Defaults to 2.

	-l, --labeling LABELING
		Terminal-labeling strategy: "form", "pos", "coarse-pos", or
		"unk-threshold". Defaults to "form".

	--seed N
		Seed for the partitioner's random number source. The CLI always
		uses the rightmost-first tie-break policy, which does not draw
		from it, so the seed does not change the result.

	-v, --verbose
		Print each sentence's matched gold constituents.

A TOML config file may be given instead of or alongside flags via
-c/--config; flags take precedence over config values.
*/
package main

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/dekarrin/lcfrsdcp/accuracy"
	"github.com/dekarrin/lcfrsdcp/chart"
	"github.com/dekarrin/lcfrsdcp/corpus"
	"github.com/dekarrin/lcfrsdcp/eval"
	"github.com/dekarrin/lcfrsdcp/grammar"
	"github.com/dekarrin/lcfrsdcp/gtree"
	"github.com/dekarrin/lcfrsdcp/hybridtree"
	"github.com/dekarrin/lcfrsdcp/induce"
	"github.com/dekarrin/lcfrsdcp/internal/util"
	"github.com/dekarrin/lcfrsdcp/labeling"
	"github.com/dekarrin/lcfrsdcp/partition"
	"github.com/dekarrin/lcfrsdcp/textgrammar"
)

const (
	ExitSuccess = iota
	ExitConfigError
	ExitCorpusError
	ExitInductionError
)

// Config is the TOML-loadable form of the run; CLI flags override any
// field a flag was explicitly given for.
type Config struct {
	Grammar  string `toml:"grammar"`
	Input    string `toml:"input"`
	Format   string `toml:"format"`
	Strategy string `toml:"strategy"`
	Fanout   int    `toml:"fanout"`
	Labeling string `toml:"labeling"`
	Seed     int64  `toml:"seed"`
}

var (
	flagConfig   = pflag.StringP("config", "c", "", "TOML config file to read defaults from.")
	flagGrammar  = pflag.StringP("grammar", "g", "", "Grammar text file to load, or write the induced grammar to.")
	flagInput    = pflag.StringP("input", "i", "", "Corpus file to induce from and evaluate against.")
	flagFormat   = pflag.StringP("format", "f", "", "Corpus format: bracket or conll.")
	flagStrategy = pflag.StringP("strategy", "s", "", "Partitioning strategy: left, right, direct, fanout, or cfg.")
	flagFanout   = pflag.Int("fanout", 0, "Fanout bound for the fanout strategy.")
	flagLabeling = pflag.StringP("labeling", "l", "", "Terminal-labeling strategy: form, pos, coarse-pos, or unk-threshold.")
	flagSeed     = pflag.Int64("seed", 0, "Seed for the partitioner's random source (unused by the rightmost-first policy the CLI applies).")
	flagVerbose  = pflag.BoolP("verbose", "v", false, "Print each sentence's matched gold constituents.")
)

func main() {
	pflag.Parse()

	cfg := Config{Format: "bracket", Strategy: "cfg", Fanout: 2, Labeling: "form"}
	if *flagConfig != "" {
		if _, err := toml.DecodeFile(*flagConfig, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: could not read config %q: %s\n", *flagConfig, err.Error())
			os.Exit(ExitConfigError)
		}
	}
	if pflag.Lookup("grammar").Changed {
		cfg.Grammar = *flagGrammar
	}
	if pflag.Lookup("input").Changed {
		cfg.Input = *flagInput
	}
	if pflag.Lookup("format").Changed {
		cfg.Format = *flagFormat
	}
	if pflag.Lookup("strategy").Changed {
		cfg.Strategy = *flagStrategy
	}
	if pflag.Lookup("fanout").Changed {
		cfg.Fanout = *flagFanout
	}
	if pflag.Lookup("labeling").Changed {
		cfg.Labeling = *flagLabeling
	}
	if pflag.Lookup("seed").Changed {
		cfg.Seed = *flagSeed
	}

	if cfg.Input == "" {
		fmt.Fprintln(os.Stderr, "ERROR: --input is required\nDo -h for help.")
		os.Exit(ExitConfigError)
	}

	lab, err := labeling.ByName(cfg.Labeling)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		os.Exit(ExitConfigError)
	}

	trees, err := readCorpus(cfg.Input, cfg.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: could not read corpus %q: %s\n", cfg.Input, err.Error())
		os.Exit(ExitCorpusError)
	}
	if len(trees) == 0 {
		fmt.Fprintf(os.Stderr, "ERROR: corpus %q contains no sentences\n", cfg.Input)
		os.Exit(ExitCorpusError)
	}

	var g *grammar.Grammar
	if cfg.Grammar != "" {
		if f, openErr := os.Open(cfg.Grammar); openErr == nil {
			g, err = textgrammar.Read(f)
			f.Close()
			if err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: could not parse grammar %q: %s\n", cfg.Grammar, err.Error())
				os.Exit(ExitConfigError)
			}
		}
	}
	if g == nil {
		g = grammar.WithStart("START")
		opts := partition.FanoutLimitOptions{
			Policy: partition.RightmostFirst,
			Rng:    rand.New(rand.NewSource(cfg.Seed)),
		}
		for _, t := range trees {
			if err := induceOne(g, t, lab, cfg.Strategy, cfg.Fanout, opts); err != nil {
				fmt.Fprintf(os.Stderr, "ERROR: induction failed: %s\n", err.Error())
				os.Exit(ExitInductionError)
			}
		}
		if cfg.Grammar != "" {
			out, createErr := os.Create(cfg.Grammar)
			if createErr != nil {
				fmt.Fprintf(os.Stderr, "ERROR: could not write grammar %q: %s\n", cfg.Grammar, createErr.Error())
				os.Exit(ExitConfigError)
			}
			writeErr := textgrammar.Write(out, g)
			out.Close()
			if writeErr != nil {
				fmt.Fprintf(os.Stderr, "ERROR: could not write grammar %q: %s\n", cfg.Grammar, writeErr.Error())
				os.Exit(ExitConfigError)
			}
		}
	}

	scorer := accuracy.NewScorer(accuracy.Penalizing)
	for _, t := range trees {
		found, recognized, parseErr := parseAndFold(g, t, lab)
		gold := goldSpans(t)
		if parseErr != nil || !recognized {
			scorer.Score(nil, gold)
			continue
		}
		scorer.Score(found, gold)
		if *flagVerbose {
			matched := matchedLabels(found, gold)
			fmt.Printf("found %d of %d gold constituents: %s\n", len(matched), len(gold), util.MakeTextList(matched))
		}
	}

	macro := scorer.MacroAverage()
	micro := scorer.MicroAverage()
	fmt.Printf("sentences scored: %d\n", scorer.Sentences())
	fmt.Printf("macro precision=%.4f recall=%.4f f1=%.4f\n", macro.Precision, macro.Recall, macro.F1)
	fmt.Printf("micro precision=%.4f recall=%.4f f1=%.4f\n", micro.Precision, micro.Recall, micro.F1)
	os.Exit(ExitSuccess)
}

func readCorpus(path, format string) ([]gtree.Tree, error) {
	switch format {
	case "conll":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		// One reader per sentence: ReadCoNLL's scanner buffers past the
		// sentence it returns, so a shared reader would lose later ones.
		var trees []gtree.Tree
		var block []string
		for _, line := range strings.Split(string(data)+"\n", "\n") {
			if trimmed := trimSpaceASCII(line); trimmed != "" {
				if trimmed[0] != '#' {
					block = append(block, trimmed)
				}
				continue
			}
			if len(block) == 0 {
				continue
			}
			t, err := corpus.ReadCoNLL(strings.NewReader(strings.Join(block, "\n")))
			if err != nil {
				return nil, err
			}
			trees = append(trees, t)
			block = nil
		}
		return trees, nil
	case "bracket", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var trees []gtree.Tree
		for _, line := range splitNonEmptyLines(string(data)) {
			t, err := corpus.ReadBracket(line)
			if err != nil {
				return nil, err
			}
			trees = append(trees, t)
		}
		return trees, nil
	default:
		return nil, fmt.Errorf("unsupported corpus format %q", format)
	}
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			line := s[start:i]
			start = i + 1
			trimmed := trimSpaceASCII(line)
			if trimmed != "" {
				lines = append(lines, trimmed)
			}
		}
	}
	return lines
}

func trimSpaceASCII(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t' || s[j-1] == '\r') {
		j--
	}
	return s[i:j]
}

func buildPartitioning(t gtree.Tree, strategy string, fanout int, opts partition.FanoutLimitOptions) (*partition.Partitioning, error) {
	n := len(t.IDYield())
	switch strategy {
	case "left":
		return partition.LeftBranching(n), nil
	case "right":
		return partition.RightBranching(n), nil
	case "direct":
		return partition.DirectExtraction(t, t.Root()), nil
	case "fanout":
		base := partition.DirectExtraction(t, t.Root())
		return partition.FanoutLimit(base, fanout, opts), nil
	case "cfg", "":
		base := partition.DirectExtraction(t, t.Root())
		return partition.CFG(base), nil
	default:
		return nil, fmt.Errorf("unsupported partitioning strategy %q", strategy)
	}
}

// isDependencyTree distinguishes the two corpus.MemTree shapes this
// CLI reads: in a dependency tree every node, including the root, is
// itself a yield position; in a constituent tree only the leaves are.
func isDependencyTree(t gtree.Tree) bool {
	return t.IsLeaf(t.Root())
}

func induceOne(g *grammar.Grammar, t gtree.Tree, lab labeling.Labeling, strategy string, fanout int, opts partition.FanoutLimitOptions) error {
	p, err := buildPartitioning(t, strategy, fanout, opts)
	if err != nil {
		return err
	}
	if isDependencyTree(t) {
		ind := induce.NewDependencyInducer(t, lab, g)
		_, err = ind.Induce(p)
	} else {
		ind := induce.NewConstituentInducer(t, lab, induce.Strict, g)
		_, err = ind.Induce(p)
	}
	return err
}

func parseAndFold(g *grammar.Grammar, t gtree.Tree, lab labeling.Labeling) ([]accuracy.Span, bool, error) {
	idYield := t.IDYield()
	input := make([]string, len(idYield))
	tokens := make([]hybridtree.Token, len(idYield))
	for i, id := range idYield {
		tok := t.NodeToken(id)
		input[i] = lab.Label(tok, false)
		tokens[i] = hybridtree.Token{Pos: i, Form: tok.Form, POS: tok.POS, EdgeLabel: tok.EdgeLabel}
	}

	parser := chart.New(g, input)
	if err := parser.Parse(); err != nil {
		return nil, false, err
	}
	if !parser.Recognized() {
		return nil, false, nil
	}

	deriv, err := parser.Derivation()
	if err != nil {
		return nil, false, err
	}
	values, err := eval.New(deriv).Eval()
	if err != nil {
		return nil, false, err
	}
	out, err := eval.Fold(values, tokens)
	if err != nil {
		return nil, false, err
	}
	return accuracy.FromHybridTree(out), true, nil
}

// goldSpans computes the labelled-span set of a gold gtree.Tree the same
// way hybridtree.LabelledSpans does for its own tree shape: one span
// per non-leaf node, covering the min/max yield position under it.
func goldSpans(t gtree.Tree) []accuracy.Span {
	var spans []accuracy.Span
	var walk func(id gtree.NodeID) []int
	walk = func(id gtree.NodeID) []int {
		var positions []int
		if t.IsLeaf(id) {
			positions = append(positions, t.LeafIndex(id))
		}
		children := t.Children(id)
		for _, c := range children {
			positions = append(positions, walk(c)...)
		}
		if len(children) == 0 {
			return positions
		}
		sort.Ints(positions)
		tok := t.NodeToken(id)
		label := tok.Category
		if label == "" {
			label = tok.POS
		}
		spans = append(spans, accuracy.Span{Label: label, Low: positions[0], High: positions[len(positions)-1]})
		return positions
	}
	walk(t.Root())
	return spans
}

// matchedLabels returns the labels of gold spans that also appear in
// found, in gold order, for --verbose per-sentence reporting.
func matchedLabels(found, gold []accuracy.Span) []string {
	foundSet := make(map[accuracy.Span]bool, len(found))
	for _, s := range found {
		foundSet[s] = true
	}
	var labels []string
	for _, s := range gold {
		if foundSet[s] {
			labels = append(labels, s.Label)
		}
	}
	return labels
}
