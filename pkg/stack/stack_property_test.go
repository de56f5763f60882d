package stack

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/sealedsins/sealed-away/pkg/node"
)

func stringNodes(words []string) []node.Node {
	out := make([]node.Node, len(words))
	for i, w := range words {
		out[i] = node.String(w)
	}
	return out
}

// TestPropertyPatchKeepsPCInBounds checks that Patch always leaves a frame's
// program counter within [0, len(newCode)], for any old code, any pc within
// the old code's bounds, and any new code.
func TestPropertyPatchKeepsPCInBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("0 <= Patch(frame, new).PC <= len(new)", prop.ForAll(
		func(oldWords, newWords []string, pcFrac float64) bool {
			oldList := &node.List{Items: stringNodes(oldWords)}
			newList := &node.List{Items: stringNodes(newWords)}
			pc := 0
			if len(oldWords) > 0 {
				pc = int(pcFrac * float64(len(oldWords)))
			}
			f := &Frame{List: oldList, PC: pc}

			s := New()
			s.Patch(f, newList)

			return f.PC >= 0 && f.PC <= len(newWords)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// TestPropertyPatchIsNoOpOnIdenticalCode checks that patching a frame with
// an unchanged code list never moves its program counter.
func TestPropertyPatchIsNoOpOnIdenticalCode(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Patch(frame, identicalCode).PC == frame.PC", prop.ForAll(
		func(words []string, pcFrac float64) bool {
			oldList := &node.List{Items: stringNodes(words)}
			sameList := &node.List{Items: stringNodes(words)}
			pc := 0
			if len(words) > 0 {
				pc = int(pcFrac * float64(len(words)))
			}
			f := &Frame{List: oldList, PC: pc}

			s := New()
			s.Patch(f, sameList)

			return f.PC == pc
		},
		gen.SliceOf(gen.AlphaString()),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
