package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timestamp accepts every serialized time seen in backups: RFC 3339 strings,
// Firestore {seconds, nanoseconds} objects and epoch milliseconds.
type timestamp struct {
	time.Time
}

type firestoreTime struct {
	Seconds      *int64 `json:"seconds"`
	Nanoseconds  int64  `json:"nanoseconds"`
	USeconds     *int64 `json:"_seconds"`
	UNanoseconds int64  `json:"_nanoseconds"`
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q", s)
		}
		t.Time = parsed.UTC()
		return nil

	case '{':
		var ft firestoreTime
		if err := json.Unmarshal(b, &ft); err != nil {
			return err
		}
		switch {
		case ft.Seconds != nil:
			t.Time = time.Unix(*ft.Seconds, ft.Nanoseconds).UTC()
		case ft.USeconds != nil:
			t.Time = time.Unix(*ft.USeconds, ft.UNanoseconds).UTC()
		default:
			return fmt.Errorf("invalid timestamp object %s", b)
		}
		return nil

	default:
		var ms json.Number
		if err := json.Unmarshal(b, &ms); err != nil {
			return fmt.Errorf("invalid timestamp %s", b)
		}
		n, err := ms.Int64()
		if err != nil {
			return fmt.Errorf("invalid timestamp %s", b)
		}
		t.Time = time.UnixMilli(n).UTC()
		return nil
	}
}
