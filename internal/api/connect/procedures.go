package connect

const (
	// ReaderServiceName is the fully-qualified name of the reader service.
	ReaderServiceName = "flashread.v1.ReaderService"

	ProcedureLoadText  = "/" + ReaderServiceName + "/LoadText"
	ProcedureSetSpeed  = "/" + ReaderServiceName + "/SetSpeed"
	ProcedureStart     = "/" + ReaderServiceName + "/Start"
	ProcedurePause     = "/" + ReaderServiceName + "/Pause"
	ProcedureRewind    = "/" + ReaderServiceName + "/Rewind"
	ProcedureFetch     = "/" + ReaderServiceName + "/Fetch"
	ProcedureGetStatus = "/" + ReaderServiceName + "/GetStatus"
	ProcedureSubscribe = "/" + ReaderServiceName + "/Subscribe"
)

// Status and fetch request field names.
const (
	FieldState      = "state"
	FieldActivity   = "activity"
	FieldPosition   = "position"
	FieldTotal      = "total"
	FieldWPM        = "wpm"
	FieldIntervalMs = "interval_ms"
	FieldWord       = "word"
	FieldMessage    = "message"
	FieldEvent      = "event"
	FieldOrigin     = "origin"

	FieldEmail    = "email"
	FieldPassword = "password"
	FieldURL      = "url"
)
