package notification

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// Message kinds.
const (
	KindInitial = "initial"
	KindWord    = "word"
	KindState   = "state"
)

// Message field names.
const (
	FieldSequenceNo = "sequence_no"
	FieldKind       = "kind"
	FieldWord       = "word"
	FieldPosition   = "position"
	FieldTotal      = "total"
	FieldState      = "state"
	FieldEvent      = "event"
)

// NewWordMessage builds the notification for a displayed word.
func NewWordMessage(word string, position int) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldKind:     structpb.NewStringValue(KindWord),
		FieldWord:     structpb.NewStringValue(word),
		FieldPosition: structpb.NewNumberValue(float64(position)),
	}}
}

// NewStateMessage builds the notification for a playback state change.
// event names what caused the change, e.g. "started" or "completed".
func NewStateMessage(kind, state, event string, position, total int) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldKind:     structpb.NewStringValue(kind),
		FieldState:    structpb.NewStringValue(state),
		FieldEvent:    structpb.NewStringValue(event),
		FieldPosition: structpb.NewNumberValue(float64(position)),
		FieldTotal:    structpb.NewNumberValue(float64(total)),
	}}
}

// SequenceNo returns the sequence number stamped on msg, or 0.
func SequenceNo(msg *structpb.Struct) uint64 {
	v, ok := msg.GetFields()[FieldSequenceNo]
	if !ok {
		return 0
	}
	return uint64(v.GetNumberValue())
}

func setSequenceNo(msg *structpb.Struct, seq uint64) {
	if msg.Fields == nil {
		msg.Fields = make(map[string]*structpb.Value)
	}
	msg.Fields[FieldSequenceNo] = structpb.NewNumberValue(float64(seq))
}
