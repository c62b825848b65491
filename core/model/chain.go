package model

import (
	"fmt"
	"slices"
	"time"
)

type PhaseKind uint8

const (
	PhaseApplyExtrinsic PhaseKind = 0
	PhaseFinalization   PhaseKind = 1
	PhaseInitialization PhaseKind = 2
)

func (k PhaseKind) String() string {
	switch k {
	case PhaseApplyExtrinsic:
		return "ApplyExtrinsic"
	case PhaseFinalization:
		return "Finalization"
	case PhaseInitialization:
		return "Initialization"
	}
	return fmt.Sprintf("Phase(%d)", uint8(k))
}

// Phase tells which stage of block execution emitted an event. ExtrinsicIndex is
// only meaningful for PhaseApplyExtrinsic.
type Phase struct {
	Kind           PhaseKind
	ExtrinsicIndex uint32
}

func ApplyExtrinsic(index uint32) Phase {
	return Phase{Kind: PhaseApplyExtrinsic, ExtrinsicIndex: index}
}

// AppliesTo reports whether the phase is ApplyExtrinsic(index).
func (p Phase) AppliesTo(index int) bool {
	return p.Kind == PhaseApplyExtrinsic && index >= 0 && int64(p.ExtrinsicIndex) == int64(index)
}

func (p Phase) String() string {
	if p.Kind == PhaseApplyExtrinsic {
		return fmt.Sprintf("ApplyExtrinsic(%d)", p.ExtrinsicIndex)
	}
	return p.Kind.String()
}

type BlockEvent struct {
	Phase       Phase
	Section     string
	Method      string
	PalletIndex uint8
	EventIndex  uint8
	Data        Composite
	Topics      []string
}

func (e *BlockEvent) Is(section, method string) bool {
	return e.Section == section && e.Method == method
}

// FilterEvents returns the events of section whose method is one of methods, in block order.
// With no methods every event of the section matches.
func FilterEvents(events []*BlockEvent, section string, methods ...string) []*BlockEvent {
	var out []*BlockEvent
	for _, ev := range events {
		if ev.Section != section {
			continue
		}
		if len(methods) == 0 || slices.Contains(methods, ev.Method) {
			out = append(out, ev)
		}
	}
	return out
}

func (e *BlockEvent) Name() string {
	return e.Section + "." + e.Method
}

type ExtrinsicRef struct {
	Index   int
	Hash    string
	Raw     []byte
	Signed  bool
	Section string
	Method  string
	Args    Composite
}

type Block struct {
	Hash       string
	Number     uint64
	ParentHash string
	Extrinsics []*ExtrinsicRef
}

// FindExtrinsic returns the index of the first extrinsic with the given hash, or -1.
func (b *Block) FindExtrinsic(hash string) int {
	for i, ext := range b.Extrinsics {
		if equalHex(ext.Hash, hash) {
			return i
		}
	}
	return -1
}

type ImportedAux struct {
	HeaderOnly                 bool `json:"header_only"`
	ClearJustificationRequests bool `json:"clear_justification_requests"`
	NeedsJustification         bool `json:"needs_justification"`
	BadJustification           bool `json:"bad_justification"`
	IsNewBest                  bool `json:"is_new_best"`
}

// CreatedBlock is the engine_createBlock result.
type CreatedBlock struct {
	Hash string      `json:"hash"`
	Aux  ImportedAux `json:"aux"`
}

type SealedBlock struct {
	Hash     string        `json:"hash" yaml:"hash"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

func (b SealedBlock) DurationMs() int64 {
	return b.Duration.Milliseconds()
}
