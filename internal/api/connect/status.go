package connect

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/flashread/internal/app/notification"
	"github.com/osa030/flashread/internal/app/session"
)

// StatusToStruct converts a session status to its wire form.
func StatusToStruct(status *session.Status) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldState:      structpb.NewStringValue(status.State.String()),
		FieldActivity:   structpb.NewStringValue(status.Activity.String()),
		FieldPosition:   structpb.NewNumberValue(float64(status.Position)),
		FieldTotal:      structpb.NewNumberValue(float64(status.Total)),
		FieldWPM:        structpb.NewNumberValue(float64(status.WPM)),
		FieldIntervalMs: structpb.NewNumberValue(float64(status.Interval.Milliseconds())),
		FieldWord:       structpb.NewStringValue(status.Word),
		FieldMessage:    structpb.NewStringValue(status.Message),
		FieldEvent:      structpb.NewStringValue(status.Event),
		FieldOrigin:     structpb.NewStringValue(status.Origin),
	}}
}

// initialMessage is the first message of every subscription.
func initialMessage(status *session.Status) *structpb.Struct {
	msg := StatusToStruct(status)
	msg.Fields[notification.FieldKind] = structpb.NewStringValue(notification.KindInitial)
	return msg
}
