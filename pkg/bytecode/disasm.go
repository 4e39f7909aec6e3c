package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a Chunk's code buffer as human-readable text, one
// instruction per line, prefixed by its PC. Variable-width ops with no
// fixed-width entry are rendered with their count byte and raw operand
// bytes; this is a debugging aid only, not used by emission or the
// runtime.
func Disassemble(c *Chunk) string {
	var b strings.Builder
	pc := 0
	for pc < len(c.Code) {
		op := Op(c.Code[pc])
		fmt.Fprintf(&b, "%04d  %s", pc, op)
		width := FixedOperandWidth(op)
		if width >= 0 {
			for i := 0; i < width; i++ {
				fmt.Fprintf(&b, " %02x", c.Code[pc+1+i])
			}
			pc += 1 + width
		} else {
			count := int(c.Code[pc+1])
			fmt.Fprintf(&b, " n=%d", count)
			pc += 2 + count
			for i := pc - count; i < pc; i++ {
				fmt.Fprintf(&b, " %02x", c.Code[i])
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
