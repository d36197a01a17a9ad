package wire

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{Type: TextMessage, Payload: []byte("hello")}

	var buf bytes.Buffer
	if err := WriteFrame(&buf, f); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != f.Type || !bytes.Equal(got.Payload, f.Payload) {
		t.Errorf("got %+v, want %+v", got, f)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var hdr [6]byte
	hdr[0], hdr[1] = byte(TextMessage>>8), byte(TextMessage)
	hdr[2], hdr[3], hdr[4], hdr[5] = 0xff, 0xff, 0xff, 0xff

	_, err := ReadFrame(bytes.NewReader(hdr[:]))
	if err == nil {
		t.Fatal("expected error for oversized frame length")
	}
}

func TestVoiceHeaderRoundTrip(t *testing.T) {
	cases := []struct {
		typ    VoiceType
		target uint8
	}{
		{VoiceOpus, 0},
		{VoiceOpus, 31},
		{VoicePing, 15},
	}
	for _, c := range cases {
		b := EncodeVoiceHeader(c.typ, c.target)
		gotType, gotTarget := DecodeVoiceHeader(b)
		if gotType != c.typ || gotTarget != c.target {
			t.Errorf("roundtrip(%v,%d) = (%v,%d)", c.typ, c.target, gotType, gotTarget)
		}
	}
}

func TestProtocolVersionRoundTrip(t *testing.T) {
	v := ProtocolVersion{Major: 1, Minor: 42}
	got := DecodeProtocolVersion(v.Encode())
	if got != v {
		t.Errorf("got %+v, want %+v", got, v)
	}
}

func TestVersionRecordRoundTrip(t *testing.T) {
	r := VersionRecord{Version: ProtocolVersion{Major: 1, Minor: 0}, Release: "murmurhfd", OS: "linux"}
	got, err := DecodeVersionRecord(r.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got != r {
		t.Errorf("got %+v, want %+v", got, r)
	}
}

func TestACLRecordRoundTrip(t *testing.T) {
	r := ACLRecord{
		ChannelID: 1,
		Rows: []ACLRow{
			{ChannelID: 1, UserID: 42, HasUser: true, Allow: 3, Deny: 0, ApplySubs: true},
			{ChannelID: 1, Group: "moderator", Allow: 7, Deny: 1, ApplyHere: true},
		},
	}
	got, err := DecodeACLRecord(r.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != len(r.Rows) {
		t.Fatalf("got %d rows, want %d", len(got.Rows), len(r.Rows))
	}
	for i := range r.Rows {
		if got.Rows[i] != r.Rows[i] {
			t.Errorf("row %d: got %+v, want %+v", i, got.Rows[i], r.Rows[i])
		}
	}
}

func TestVoiceTargetRecordRoundTrip(t *testing.T) {
	r := VoiceTargetRecord{
		Slot:     3,
		Sessions: []int32{1, 2, 3},
		Channels: []VoiceTargetChannel{{ChannelID: 5, Recursive: true, Group: "relay"}},
	}
	got, err := DecodeVoiceTargetRecord(r.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if got.Slot != r.Slot || len(got.Sessions) != 3 || len(got.Channels) != 1 {
		t.Errorf("got %+v, want %+v", got, r)
	}
}
