package scsmap

import (
	"github.com/cory-johannsen/scsmap/internal/codec"
	"github.com/cory-johannsen/scsmap/internal/flagfield"
	"github.com/cory-johannsen/scsmap/internal/maperr"
	"github.com/cory-johannsen/scsmap/internal/token"
)

// ActionType controls how a trigger action is chained.
type ActionType uint32

// Action types.
const (
	ActionDefault ActionType = iota
	ActionCondition
	ActionFallback
	ActionMandatory
	ActionConditionRetry
)

// noParams replaces the numeric parameter count when an action has no
// parameters of any kind. The record ends right after it.
const noParams = 0xFFFFFFFF

const (
	actionTypeOffset = 0
	actionTypeWidth  = 4
)

// triggerActionMinSize is the smallest encoded action: name and marker.
const triggerActionMinSize = 8 + 4

// TriggerAction is one action run by a Trigger.
type TriggerAction struct {
	Name token.Token
	// Bare marks an action stored without any parameter section. It is set
	// when decoding such a record and makes encoding emit the marker again.
	// Setting any parameter list clears it on encode.
	Bare         bool
	NumParams    []float32
	StringParams []string
	TargetTags   []token.Token
	TargetRange  float32
	Flags        flagfield.FlagField
}

// Type returns the action type stored in the low four flag bits.
func (a *TriggerAction) Type() ActionType {
	return ActionType(a.Flags.Subfield(actionTypeOffset, actionTypeWidth))
}

// SetType sets the action type.
//
// Postcondition: returns a RangeError and leaves the flags unchanged when t > 15.
func (a *TriggerAction) SetType(t ActionType) error {
	return a.Flags.SetSubfield(actionTypeOffset, actionTypeWidth, uint32(t))
}

func (a *TriggerAction) isBare() bool {
	return a.Bare && len(a.NumParams) == 0 && len(a.StringParams) == 0 &&
		len(a.TargetTags) == 0 && a.TargetRange == 0 && a.Flags == 0
}

func readTriggerAction(r *codec.Reader) TriggerAction {
	a := TriggerAction{Name: r.Token()}
	start := r.Offset()
	n := r.U32()
	if r.Err() != nil {
		return a
	}
	if n == noParams {
		a.Bare = true
		return a
	}
	if uint64(n)*4 > uint64(r.Len()) {
		r.Fail(maperr.Formatf(start, "bad list count %d: %d bytes left", n, r.Len()))
		return a
	}
	for i := uint32(0); i < n; i++ {
		a.NumParams = append(a.NumParams, r.F32())
	}
	a.StringParams = codec.ReadList(r, 8, (*codec.Reader).Str)
	a.TargetTags = r.Tokens()
	a.TargetRange = r.F32()
	a.Flags = r.Flags()
	return a
}

func writeTriggerAction(w *codec.Writer, a TriggerAction) {
	w.Token(a.Name)
	if a.isBare() {
		w.U32(noParams)
		return
	}
	w.F32s(a.NumParams)
	codec.WriteList(w, a.StringParams, (*codec.Writer).Str)
	w.Tokens(a.TargetTags)
	w.F32(a.TargetRange)
	w.Flags(a.Flags)
}
