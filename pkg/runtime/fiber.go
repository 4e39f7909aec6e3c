// Package runtime implements spec.md §4.6's FiberRuntimeModel: the stack
// layout, frame-pointer chain, try-frame stack, and the three unwind
// routines a single cooperative fiber needs, plus the coinit/coyield/
// coresume/coreturn protocol that the emitted ops of the same name target.
// It stops at the call *protocol* — it never interprets an opcode; the
// instruction-dispatch loop that walks a Chunk's Code buffer is an
// external collaborator (spec.md §1) and is the one that actually runs
// release bytecode, via the Releaser hooks below.
//
// Grounded on vm/interpreter.go's CallFrame (IP/BP/HomeFrame/HomeBP is
// directly the model for retFp/retPc/box-capture addressing here) and
// vm/exception.go's ExceptionHandler linked list (the model for TryFrame
// stacking and throw-trace walking). The teacher's actual concurrency
// (vm/concurrency.go) is goroutine/channel based; per spec.md §5's
// single-threaded cooperative mandate this is deliberately not followed:
// coinit/coyield/coresume/coreturn are synchronous stack switches, never a
// goroutine or channel.
package runtime

import "github.com/chazu/emberc/pkg/bytecode"

// Value is one register slot's contents. The dispatch loop owns the
// actual encoding (NaN-boxing or otherwise); this package only moves
// slots between frames and never inspects their bits.
type Value uint64

// NoneDst is the sentinel parentDstLocal/CatchSlot meaning "drop the
// value" (spec.md §3's Fiber invariant, §4.6's coreturn).
const NoneDst = -1

// CallFrame is one activation record on a Fiber's stack, addressed by a
// frame-relative register window into the Fiber's flat Stack.
//
// Grounded on vm/interpreter.go's CallFrame.
type CallFrame struct {
	Chunk *bytecode.Chunk
	IP    int // next instruction to execute, an offset into Chunk.Code
	BP    int // base of this frame's register window in the owning Fiber's Stack

	// HomeFrame/HomeBP/HomeSelf let a block/lambda body address its
	// enclosing method's receiver and captured locals without a full
	// closure environment allocation, mirroring vm/interpreter.go's
	// non-local-return addressing.
	HomeFrame *CallFrame
	HomeBP    int
	HomeSelf  Value

	Captures []Value // copied in at coinit/call time from the closure's capture list

	RetFP int // the frame pointer to restore into Fiber.Current on return
	RetPC int // the IP to resume at in the caller's chunk

	// EndLocalsPC is this frame's PC of the block-end release sequence,
	// consulted by the throw unwinder when it pops this frame (spec.md
	// §4.8).
	EndLocalsPC int
}

// PanicType tags what kind of runtime unwind is in progress (spec.md §7).
type PanicType uint8

const (
	PanicNone PanicType = iota
	PanicUncaughtException
	PanicStackOverflow
	PanicTypeError
	PanicFiberMisuse
)

// Panic is a runtime-kind error, realizing spec.md §7's runtime error
// shape, generalized from the teacher's errors []string accumulation to
// a structured value matching vm/exception.go's SignaledException.
type Panic struct {
	Type    PanicType
	Payload Value // the thrown exception object's opaque slot value
}

func (p Panic) Error() string {
	switch p.Type {
	case PanicUncaughtException:
		return "uncaught exception"
	case PanicStackOverflow:
		return "stack overflow"
	case PanicTypeError:
		return "type error"
	case PanicFiberMisuse:
		return "fiber protocol violation"
	default:
		return "panic"
	}
}

// TryFrame is one entry on a Fiber's exception-handler stack, pushed when
// entering a try block and popped on normal exit or by UnwindThrow.
//
// Grounded on vm/exception.go's ExceptionHandler linked list.
type TryFrame struct {
	HandlerPC  int // PC of the catch body within the owning frame's Chunk
	FrameDepth int // len(Fiber.Frames) at push time — throw unwinds frames above this
	CatchSlot  int // register slot the caught exception value is copied into, or NoneDst
	Prev       *TryFrame
}

// ThrowEntry is one (pc,fp) pair recorded while a throw unwinds through a
// frame, for later diagnostic rendering (spec.md §3's "throw trace").
type ThrowEntry struct {
	PC int
	FP int
}

// FiberState is spec.md §5's fiber lifecycle state.
type FiberState uint8

const (
	FiberSuspended FiberState = iota // not yet started, or yielded
	FiberRunning
	FiberDone
	FiberFailed
)

const defaultStackSize = 256

// fiberArgBase is the register offset coinit copies a new fiber's
// arguments to (spec.md §4.6: "copies args into the new stack starting
// at slot 5"). It is one slot wider than the ordinary call protocol's
// param base (spec.md §4.6 item 1: "callStart + 4") because a freshly
// coinit'd stack has no caller frame to borrow a return-info slot from;
// the extra slot is reserved for the fiber's own header word.
const fiberArgBase = 5

// Fiber is spec.md §4.6's single cooperative execution context: one flat
// register stack, a frame-pointer chain through Frames, and a try-frame
// stack. No mutex, no channel — only the fiber the Scheduler marks
// Current may be mutated (spec.md §5).
type Fiber struct {
	Stack  []Value
	Frames []*CallFrame
	Tries  *TryFrame

	State       FiberState
	ResumeValue Value // value coresume passed in, or coreturn's result
	Panic       *Panic

	ThrowTrace []ThrowEntry

	// Parent is the fiber that resumed this one, for coreturn/coyield to
	// deposit a value into (spec.md §3's "stackOffset + parentDstLocal
	// identifies the slot in the parent fiber").
	Parent         *Fiber
	ParentDstLocal int // NoneDst to drop the value

	NumArgs  int // argument count copied in by Coinit, for the "never resumed" teardown case
	RefCount int // spec.md §3: "freed when their reference count reaches zero"
}

// NewFiber allocates a Fiber with an empty stack sized to
// defaultStackSize registers, grown on demand by growStack.
func NewFiber() *Fiber {
	return &Fiber{Stack: make([]Value, defaultStackSize), State: FiberSuspended, ParentDstLocal: NoneDst, RefCount: 1}
}

// Current returns the innermost active CallFrame, or nil if the fiber has
// no frames (not yet started, or just returned from its last frame).
func (f *Fiber) Current() *CallFrame {
	if len(f.Frames) == 0 {
		return nil
	}
	return f.Frames[len(f.Frames)-1]
}

// growStack grows the Stack by at least 1.5x per step until it can hold
// bp+needed registers.
// Frame BPs/RetFPs are indices into this slice, not pointers, so growth
// only needs to preserve existing contents — spec.md §4.6's "every
// on-stack saved retFp pointer is rewritten" rewrite step is a no-op
// under this representation and is deliberately not implemented.
func (f *Fiber) growStack(bp, needed int) {
	required := bp + needed
	if required <= len(f.Stack) {
		return
	}
	newSize := len(f.Stack)
	if newSize == 0 {
		newSize = 16
	}
	for newSize < required {
		newSize = newSize + newSize/2 + 1 // >= 1.5x growth, spec.md §4.6
	}
	if newSize < 16 {
		newSize = 16
	}
	grown := make([]Value, newSize)
	copy(grown, f.Stack)
	f.Stack = grown
}

// PushFrame opens a new CallFrame for chunk at a register window directly
// above the caller's, reserving chunk.NumLocals registers, and returns it.
func (f *Fiber) PushFrame(chunk *bytecode.Chunk, captures []Value, retPC int) *CallFrame {
	bp := 0
	if cur := f.Current(); cur != nil {
		bp = cur.BP + cur.Chunk.NumLocals
	}
	f.growStack(bp, chunk.NumLocals)
	frame := &CallFrame{
		Chunk:       chunk,
		BP:          bp,
		Captures:    captures,
		RetPC:       retPC,
		EndLocalsPC: -1,
	}
	if cur := f.Current(); cur != nil {
		frame.RetFP = cur.BP
	} else {
		frame.RetFP = -1
	}
	f.Frames = append(f.Frames, frame)
	return frame
}

// PopFrame removes and returns the innermost frame (spec.md §4.6's
// ret0/ret1: "both restore pc/fp from the saved slots" — the caller reads
// the popped frame's RetPC/RetFP to do that).
func (f *Fiber) PopFrame() *CallFrame {
	if len(f.Frames) == 0 {
		return nil
	}
	frame := f.Frames[len(f.Frames)-1]
	f.Frames = f.Frames[:len(f.Frames)-1]
	return frame
}

// PushTry records a new exception handler scoped to the current frame
// (spec.md §3's TryFrame, pushed on try-region entry).
func (f *Fiber) PushTry(handlerPC, catchSlot int) *TryFrame {
	tf := &TryFrame{HandlerPC: handlerPC, FrameDepth: len(f.Frames), CatchSlot: catchSlot, Prev: f.Tries}
	f.Tries = tf
	return tf
}

// PopTry pops the innermost handler on normal try-region exit.
func (f *Fiber) PopTry() {
	if f.Tries != nil {
		f.Tries = f.Tries.Prev
	}
}

// Releaser is the host dispatch loop's hook for actually running release
// bytecode during an unwind — this package decides *which* frames and
// *when*, the host decides *how* (it owns the opcode switch, spec.md §1).
type Releaser interface {
	// ReleaseTemps runs frame's temp-release plan for the locals live at
	// frame.IP (spec.md §4.6's per-frame-release part (a)).
	ReleaseTemps(frame *CallFrame)
	// ReleaseEndLocals runs the release sequence at frame.EndLocalsPC
	// (spec.md §4.6's per-frame-release part (b)).
	ReleaseEndLocals(frame *CallFrame)
	// ReleaseArgSlots releases only the argument slots of a fiber that
	// was abandoned immediately after Coinit, before ever being resumed
	// (spec.md §4.6's fiber-teardown case 2).
	ReleaseArgSlots(f *Fiber)
}

// UnwindThrow implements spec.md §4.6's throw unwinder: pop frames above
// the topmost try-frame, running per-frame release and recording a throw
// trace entry for each, then deliver payload to the catching frame's
// catch slot and jump its IP to the handler. Returns false (and leaves
// the fiber to enter its panic state) if there is no try-frame.
func (f *Fiber) UnwindThrow(payload Value, r Releaser) bool {
	h := f.Tries
	if h == nil {
		return false
	}
	for len(f.Frames) > h.FrameDepth {
		frame := f.Frames[len(f.Frames)-1]
		r.ReleaseTemps(frame)
		f.ThrowTrace = append(f.ThrowTrace, ThrowEntry{PC: frame.IP, FP: frame.BP})
		r.ReleaseEndLocals(frame)
		f.Frames = f.Frames[:len(f.Frames)-1]
	}
	catchFrame := f.Current()
	if catchFrame == nil {
		return false
	}
	r.ReleaseTemps(catchFrame)
	f.ThrowTrace = append(f.ThrowTrace, ThrowEntry{PC: catchFrame.IP, FP: catchFrame.BP})
	if h.CatchSlot != NoneDst {
		f.Stack[catchFrame.BP+h.CatchSlot] = payload
	}
	catchFrame.IP = h.HandlerPC
	f.Tries = h.Prev
	return true
}

// Teardown implements spec.md §4.6's fiber-abandonment unwind: a fiber
// whose refcount reaches zero while not in a terminal state has its
// pending locals released exactly once before its stack is freed.
func (f *Fiber) Teardown(r Releaser) {
	switch f.State {
	case FiberSuspended:
		if len(f.Frames) == 0 {
			r.ReleaseArgSlots(f)
		} else {
			for _, frame := range f.Frames {
				r.ReleaseEndLocals(frame)
			}
		}
	case FiberRunning, FiberDone, FiberFailed:
		// FiberRunning cannot legally be torn down (it is Current); Done/
		// Failed already ran their releases on the path that got them
		// there.
	}
	f.Stack = nil
	f.Frames = nil
	f.State = FiberDone
}

// Retain bumps the fiber handle's refcount (spec.md §5's ARC discipline
// applied to the Fiber object itself).
func (f *Fiber) Retain() {
	f.RefCount++
}

// Release drops the fiber handle's refcount, tearing it down via r once
// it reaches zero.
func (f *Fiber) Release(r Releaser) {
	f.RefCount--
	if f.RefCount <= 0 {
		f.Teardown(r)
	}
}

// Scheduler holds the single currently-executing fiber (spec.md §5:
// "exactly one fiber is current at any moment"). It carries no mutex and
// no channel: coresume/coyield/coreturn are synchronous, single-threaded
// stack switches.
type Scheduler struct {
	Current *Fiber
}

// NewScheduler starts a Scheduler with main as the initial running fiber.
func NewScheduler(main *Fiber) *Scheduler {
	main.State = FiberRunning
	return &Scheduler{Current: main}
}

// Coinit implements spec.md §4.6's fiber creation: allocates a fresh
// stack sized to at least max(16, numArgs+5), copies args in starting at
// fiberArgBase, and returns a handle with refcount 1. The caller (host
// loop) pushes the fiber's initial CallFrame itself before first resuming
// it.
func (s *Scheduler) Coinit(args []Value) *Fiber {
	child := NewFiber()
	needed := len(args) + fiberArgBase
	if needed < 16 {
		needed = 16
	}
	child.growStack(0, needed)
	copy(child.Stack[fiberArgBase:], args)
	child.NumArgs = len(args)
	return child
}

// Coresume implements spec.md §4.6's fiber switch: retains target
// implicitly (the caller already holds a reference via the Fiber value
// it passed), suspends the current fiber, and makes target Current.
// For a fresh (never-yielded) fiber the host loop pushes its entry
// CallFrame itself before resuming execution there; a fiber parked at a
// prior Coyield resumes from its own top frame.
func (s *Scheduler) Coresume(target *Fiber, parentDstLocal int) {
	caller := s.Current
	target.Parent = caller
	target.ParentDstLocal = parentDstLocal
	target.State = FiberRunning
	if caller != nil {
		caller.State = FiberSuspended
	}
	s.Current = target
}

// Coyield implements spec.md §4.6's yield: saves resumeIP (the PC just
// past the coyield op, supplied by the host loop since this package does
// not know instruction widths) into the current frame, suspends the
// current fiber, returns control to its parent, and writes none (via the
// caller's Releaser-free zero Value — yield values are unsupported per
// spec.md §4.6) into the parent's parentDstLocal slot.
func (s *Scheduler) Coyield(resumeIP int) {
	cur := s.Current
	if frame := cur.Current(); frame != nil {
		frame.IP = resumeIP
	}
	cur.State = FiberSuspended
	parent := cur.Parent
	if parent != nil {
		if cur.ParentDstLocal != NoneDst {
			if pf := parent.Current(); pf != nil {
				parent.Stack[pf.BP+cur.ParentDstLocal] = Value(0) // none
			}
		}
		parent.State = FiberRunning
	}
	s.Current = parent
}

// Coreturn implements spec.md §4.6's fiber completion: marks cur Done,
// deposits result into the parent's parentDstLocal slot, or releases it
// via release if parentDstLocal is NoneDst, and resumes the parent.
func (s *Scheduler) Coreturn(result Value, release func(Value)) {
	cur := s.Current
	cur.State = FiberDone
	parent := cur.Parent
	if parent != nil {
		if cur.ParentDstLocal != NoneDst {
			if pf := parent.Current(); pf != nil {
				parent.Stack[pf.BP+cur.ParentDstLocal] = result
			}
		} else if release != nil {
			release(result)
		}
		parent.State = FiberRunning
	}
	s.Current = parent
}
