package parser

// blockContext tracks the nested-block bookkeeping the layout rules need:
// the current indentation depth (in units of one 4-space INDENT) and
// which kind of statement list is open, so break/continue can be
// rejected outside a loop.
type blockContext struct {
	depth    int
	loopDeep int // number of enclosing while loops
}

func (b *blockContext) enter() { b.depth++ }
func (b *blockContext) leave() { b.depth-- }

func (b *blockContext) enterLoop() { b.loopDeep++ }
func (b *blockContext) leaveLoop() { b.loopDeep-- }

func (b *blockContext) inLoop() bool { return b.loopDeep > 0 }
