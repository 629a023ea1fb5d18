package utils

import (
	"errors"
	"testing"
	"time"
)

func TestUserCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 2, 3, 4, 5, 6, 7, time.UTC)
	id := "e42b6ed3-0af3-49f0-9dcd-37aa7ed8c980"

	enc, err := EncodeUserCursor(createdAt, id)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeUserCursor(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !got.CreatedAt.Equal(createdAt) || got.ID != id {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestDecodeUserCursorRejectsGarbage(t *testing.T) {
	badID, _ := EncodeUserCursor(time.Now(), "not-a-uuid")
	zeroTime, _ := EncodeUserCursor(time.Time{}, "e42b6ed3-0af3-49f0-9dcd-37aa7ed8c980")

	for name, in := range map[string]string{
		"empty":     "",
		"not_b64":   "%%%",
		"not_json":  "bm90LWpzb24",
		"bad_id":    badID,
		"zero_time": zeroTime,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeUserCursor(in); !errors.Is(err, ErrInvalidCursor) {
				t.Fatalf("expected ErrInvalidCursor, got %v", err)
			}
		})
	}
}
