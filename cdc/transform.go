package cdc

// Row is an Event shaped into the sink's column layout. PayloadJSON carries
// the full event payload verbatim; any raw byte fields inside it were
// already base64- or array-encoded by the capture side when it built the
// event's JSON, following encoding/json's own []byte convention. SHA is
// pulled out separately so a sink can filter on it (e.g. a push-down
// predicate) without decoding the payload.
type Row struct {
	EventID     string
	EventType   EventType
	Source      string
	Timestamp   int64
	Sequence    uint64
	Version     int
	PayloadJSON string
	SHA         string
}

// Transformer maps Events to Rows.
type Transformer struct{}

// Transform shapes e into its row form.
func (Transformer) Transform(e Event) Row {
	return Row{
		EventID:     e.ID,
		EventType:   e.Type,
		Source:      e.Source,
		Timestamp:   e.Timestamp,
		Sequence:    e.Sequence,
		Version:     e.Version,
		PayloadJSON: string(e.Payload),
		SHA:         e.SHA,
	}
}

// TransformBatch maps a whole batch, preserving insertion (sequence) order.
func (t Transformer) TransformBatch(events []Event) []Row {
	rows := make([]Row, len(events))
	for i, e := range events {
		rows[i] = t.Transform(e)
	}
	return rows
}
