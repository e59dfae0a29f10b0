// Package gen produces random well-formed instruction sequences for
// synthesized processes.
package gen

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/me/coresim/pkg/model"
)

// alphabet is the fixed variable pool synthesized programs draw from.
var alphabet = []string{"x", "y", "z", "a", "b", "c"}

// maxForDepth caps FOR nesting in generated programs. This is a
// generator constraint; the interpreter accepts deeper nesting.
const maxForDepth = 3

// Generator samples instruction sequences. Safe for concurrent use; a
// single seeded source makes runs reproducible in tests.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Generator over the given source.
func New(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Count draws an instruction count uniformly from [min, max].
func (g *Generator) Count(min, max int) int {
	if max <= min {
		return min
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return min + g.rng.Intn(max-min+1)
}

// Instructions builds a program of exactly n instructions for the named
// process: up to three leading DECLAREs over the variable alphabet,
// then a uniform mix of all opcodes. Each FOR counts as one instruction
// regardless of body length.
func (g *Generator) Instructions(name string, n int) []model.Instruction {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]model.Instruction, 0, n)
	leading := 3
	if n < leading {
		leading = n
	}
	for i := 0; i < leading; i++ {
		out = append(out, g.declare())
	}
	for len(out) < n {
		out = append(out, g.any(name, 1))
	}
	return out
}

// any samples one instruction uniformly over the full opcode set,
// descending into FOR bodies up to the nesting cap.
func (g *Generator) any(name string, depth int) model.Instruction {
	switch g.rng.Intn(6) {
	case 0:
		return g.declare()
	case 1:
		return g.arith(model.OpAdd)
	case 2:
		return g.arith(model.OpSubtract)
	case 3:
		return model.Print(fmt.Sprintf("Hello world from %s!", name))
	case 4:
		return model.Sleep(uint64(1 + g.rng.Intn(5)))
	default:
		if depth >= maxForDepth {
			// Too deep for another FOR; fall back to a simple opcode.
			return g.simple(name)
		}
		repeat := 1 + g.rng.Intn(5)
		bodyLen := 1 + g.rng.Intn(3)
		body := make([]model.Instruction, 0, bodyLen)
		for i := 0; i < bodyLen; i++ {
			body = append(body, g.any(name, depth+1))
		}
		return model.For(body, repeat)
	}
}

// simple samples one non-FOR instruction.
func (g *Generator) simple(name string) model.Instruction {
	switch g.rng.Intn(5) {
	case 0:
		return g.declare()
	case 1:
		return g.arith(model.OpAdd)
	case 2:
		return g.arith(model.OpSubtract)
	case 3:
		return model.Print(fmt.Sprintf("Hello world from %s!", name))
	default:
		return model.Sleep(uint64(1 + g.rng.Intn(5)))
	}
}

// declare emits DECLARE <var> <literal in [1,20]>.
func (g *Generator) declare() model.Instruction {
	return model.Declare(g.variable(), int64(1+g.rng.Intn(20)))
}

// arith emits ADD/SUBTRACT with each source independently a declared
// variable or a literal in [0,20].
func (g *Generator) arith(op model.Opcode) model.Instruction {
	in := model.Instruction{Op: op, Dest: g.variable(), Src1: g.operand(), Src2: g.operand()}
	return in
}

func (g *Generator) operand() model.Operand {
	if g.rng.Intn(2) == 0 {
		return model.Ref(g.variable())
	}
	return model.Lit(int64(g.rng.Intn(21)))
}

func (g *Generator) variable() string {
	return alphabet[g.rng.Intn(len(alphabet))]
}
