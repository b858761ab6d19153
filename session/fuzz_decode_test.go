package session

import (
	"testing"
	"time"
)

// FuzzSessionDecode exercises the binary session decoder with arbitrary inputs.
func FuzzSessionDecode(f *testing.F) {
	sess := &Session{
		AccessToken:  "header.payload.signature",
		RefreshToken: "rt-fuzz",
		UserID:       "user1",
		Username:     "alice",
		LoggedIn:     true,
		UpdatedAt:    time.UnixMilli(1700000000000),
	}
	encoded, err := Encode(sess)
	if err == nil {
		f.Add(encoded)
	}

	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{2})
	f.Add([]byte{1, 0, 255, 255})

	if len(encoded) > 10 {
		f.Add(encoded[:10])
	}
	if len(encoded) > 30 {
		f.Add(encoded[:30])
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		if _, err := Encode(s); err != nil {
			t.Fatalf("re-encode decoded session: %v", err)
		}
	})
}
