// Package labeling provides terminal-labeling strategies: the external
// collaborator contract of mapping a token to the string an LCFRS
// terminal will carry. The core consumes only the Labeling interface;
// the concrete strategies here (form, POS, coarse POS, unk-thresholded)
// are supplied to flesh out a runnable end-to-end pipeline, grounded on
// the strategies enumerated in the panda-parser original source's
// terminal_labeling module.
package labeling

import (
	"fmt"
	"strings"

	"github.com/dekarrin/lcfrsdcp/gtree"
)

// Labeling maps an input token to the terminal string the grammar should
// use for it. BackoffMode, when true, asks the strategy to use a
// lower-resolution label set for the same token stream (e.g. collapse
// rare forms to their POS).
type Labeling interface {
	Label(tok gtree.Token, backoffMode bool) string
	Name() string
}

// FormLabeling labels every token with its literal surface form.
type FormLabeling struct{}

func (FormLabeling) Name() string { return "form" }

func (FormLabeling) Label(tok gtree.Token, backoffMode bool) string {
	if backoffMode {
		return tok.POS
	}
	return tok.Form
}

// POSLabeling labels every token with its part-of-speech tag, ignoring
// the surface form entirely.
type POSLabeling struct{}

func (POSLabeling) Name() string { return "pos" }

func (POSLabeling) Label(tok gtree.Token, _ bool) string {
	return tok.POS
}

// CoarsePOSLabeling collapses a fine-grained POS tagset to a coarser one
// by truncating to a configurable prefix length (the "Stanford-style"
// collapse used by the original terminal_labeling module, e.g. mapping
// NNP/NNPS/NN/NNS all down to "N").
type CoarsePOSLabeling struct {
	PrefixLen int
}

func (CoarsePOSLabeling) Name() string { return "coarse-pos" }

func (c CoarsePOSLabeling) Label(tok gtree.Token, _ bool) string {
	n := c.PrefixLen
	if n <= 0 {
		n = 1
	}
	if len(tok.POS) <= n {
		return tok.POS
	}
	return tok.POS[:n]
}

// UnkThresholdLabeling labels with the surface form unless the form's
// corpus frequency is below Threshold, in which case it returns "UNK-"
// followed by the upper-cased POS tag (the standard "replace rare words
// with an unknown-word class" strategy). Frequency counts must be supplied by the caller since the
// core has no corpus-statistics component of its own.
type UnkThresholdLabeling struct {
	Threshold int
	FormFreq  map[string]int
}

func (UnkThresholdLabeling) Name() string { return "unk-threshold" }

func (u UnkThresholdLabeling) Label(tok gtree.Token, backoffMode bool) string {
	if backoffMode {
		return tok.POS
	}
	if u.FormFreq[tok.Form] < u.Threshold {
		return fmt.Sprintf("UNK-%s", strings.ToUpper(tok.POS))
	}
	return tok.Form
}

// ByName resolves one of the built-in strategies by its Name(), for CLI
// / config-driven selection.
func ByName(name string) (Labeling, error) {
	switch name {
	case "form":
		return FormLabeling{}, nil
	case "pos":
		return POSLabeling{}, nil
	case "coarse-pos":
		return CoarsePOSLabeling{PrefixLen: 1}, nil
	case "unk-threshold":
		return UnkThresholdLabeling{Threshold: 1}, nil
	default:
		return nil, fmt.Errorf("labeling: unknown strategy %q", name)
	}
}
