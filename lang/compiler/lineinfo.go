package compiler

// Line-info is stored as a byte per instruction: either a small signed delta
// from the previous instruction's line, or the sentinel absLineInfo marking
// that the real number is recorded out-of-band in absLineInfo entries. A new
// absolute anchor is forced at least every maxInstWithoutAbs instructions so
// a line lookup never has to scan back arbitrarily far.
const (
	limLineDiff      = 0x7f        // fits one signed byte minus the sentinel
	absLineInfo      = limLineDiff // sentinel value meaning "see abs table"
	maxInstWithoutAbs = 120
)

// absLineEntry anchors the line number for the instruction at pc.
type absLineEntry struct {
	pc   int
	line int
}

// lineRecorder tracks per-instruction source lines for one function being
// compiled, mirroring the delta/absolute scheme described in §4.B.
type lineRecorder struct {
	lineInfo    []int8 // one entry per instruction, delta or absLineInfo
	absLineInfo []absLineEntry
	lastLine    int
	lastPC      int // pc of the last instruction that got an absolute anchor; 0 (the function start) until the first one
}

func (lr *lineRecorder) reset() {
	lr.lineInfo = lr.lineInfo[:0]
	lr.absLineInfo = lr.absLineInfo[:0]
	lr.lastLine = 0
	lr.lastPC = 0
}

// record appends the line-info entry for the instruction just emitted at pc.
func (lr *lineRecorder) record(pc, line int) {
	diff := line - lr.lastLine
	if pc-lr.lastPC >= maxInstWithoutAbs || diff < -limLineDiff || diff >= limLineDiff {
		lr.absLineInfo = append(lr.absLineInfo, absLineEntry{pc: pc, line: line})
		lr.lineInfo = append(lr.lineInfo, absLineInfo)
		lr.lastPC = pc
	} else {
		lr.lineInfo = append(lr.lineInfo, int8(diff))
	}
	lr.lastLine = line
}

// removeLast undoes the most recent record call, used when a just-emitted
// instruction is merged into its predecessor (mergeLoadNil, mergeConcat).
// The line of a removed absolute anchor must equal line; this
// asserts rather than silently diverging, since a mismatch means a caller
// forgot to also patch the absolute anchor it introduced.
func (lr *lineRecorder) removeLast(line int) {
	n := len(lr.lineInfo) - 1
	delta := lr.lineInfo[n]
	lr.lineInfo = lr.lineInfo[:n]
	if delta == absLineInfo {
		m := len(lr.absLineInfo) - 1
		if lr.absLineInfo[m].line != line {
			panic("compiler: line recorder desync on removeLast")
		}
		lr.absLineInfo = lr.absLineInfo[:m]
		lr.lastPC = 0
		if m > 0 {
			lr.lastPC = lr.absLineInfo[m-1].pc
		}
		lr.lastLine = lr.lineAt(n - 1)
		return
	}
	lr.lastLine -= int(delta)
}

// lineAt reconstructs the source line for instruction pc by walking forward
// from the nearest preceding absolute anchor (or program start).
func (lr *lineRecorder) lineAt(pc int) int {
	if pc < 0 || pc >= len(lr.lineInfo) {
		return 0
	}
	anchor := -1
	anchorLine := 0
	for _, e := range lr.absLineInfo {
		if e.pc > pc {
			break
		}
		anchor = e.pc
		anchorLine = e.line
	}
	line := anchorLine
	for i := anchor + 1; i <= pc; i++ {
		if lr.lineInfo[i] == absLineInfo {
			for _, e := range lr.absLineInfo {
				if e.pc == i {
					line = e.line
					break
				}
			}
			continue
		}
		line += int(lr.lineInfo[i])
	}
	return line
}
