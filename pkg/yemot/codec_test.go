package yemot

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeMessagesKindTags(t *testing.T) {
	msgs := []Msg{
		{Kind: MsgText, Data: "hello"},
		{Kind: MsgFile, Data: "000"},
		{Kind: MsgSpeech, Data: "shalom"},
		{Kind: MsgDigits, Data: "123"},
		{Kind: MsgNumber, Data: "45"},
		{Kind: MsgAlpha, Data: "abc"},
	}

	got, err := EncodeMessages(msgs, false)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	want := "t-hello.f-000.s-shalom.d-123.n-45.a-abc"
	if got != want {
		t.Fatalf("unexpected encoding: got %q want %q", got, want)
	}
}

func TestEncodeMessagesTruncatesAfterGoToFolder(t *testing.T) {
	msgs := []Msg{
		{Kind: MsgText, Data: "bye"},
		{Kind: MsgGoToFolder, Data: "/1"},
		{Kind: MsgText, Data: "never played"},
		{Kind: MsgFile, Data: "001"},
	}

	got, err := EncodeMessages(msgs, false)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	want := "t-bye.g-/1"
	if got != want {
		t.Fatalf("expected truncation after go_to_folder: got %q want %q", got, want)
	}
}

func TestEncodeMessagesEmptyList(t *testing.T) {
	if _, err := EncodeMessages(nil, false); err == nil {
		t.Fatal("expected error for empty message list")
	}
}

func TestEncodeMessagesUnknownKind(t *testing.T) {
	_, err := EncodeMessages([]Msg{{Kind: "shout", Data: "x"}}, false)
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
	if encErr.Field != "type" {
		t.Fatalf("unexpected field: %s", encErr.Field)
	}
}

func TestEncodeMessagesInvalidCharsFail(t *testing.T) {
	_, err := EncodeMessages([]Msg{{Kind: MsgText, Data: "it's broken"}}, false)
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError for invalid chars, got %v", err)
	}
}

func TestEncodeMessagesInvalidCharsStripped(t *testing.T) {
	got, err := EncodeMessages([]Msg{{Kind: MsgText, Data: `it's "broken" - a.b&c|d`}}, true)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	if strings.ContainsAny(got[2:], `.-"'&|`) {
		t.Fatalf("invalid chars survived sanitization: %q", got)
	}
}

func TestEncodeMessagesPerMessageSanitization(t *testing.T) {
	got, err := EncodeMessages([]Msg{{Kind: MsgText, Data: "a-b", RemoveInvalidChars: true}}, false)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	if got != "t-ab" {
		t.Fatalf("unexpected encoding: got %q want %q", got, "t-ab")
	}
}

func TestEncodeMessagesSanitizationIdempotentOnCleanInput(t *testing.T) {
	msgs := []Msg{{Kind: MsgText, Data: "all clean here"}}

	off, err := EncodeMessages(msgs, false)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	on, err := EncodeMessages(msgs, true)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	if off != on {
		t.Fatalf("sanitization changed clean input: %q vs %q", off, on)
	}
}

func TestEncodeMessagesOnlySanitizesTextAndSpeech(t *testing.T) {
	// A digits payload with an invalid char must fail even with
	// sanitization on.
	if _, err := EncodeMessages([]Msg{{Kind: MsgDigits, Data: "1-2"}}, true); err == nil {
		t.Fatal("expected error for invalid char in digits payload")
	}
}

func TestEncodeZmanim(t *testing.T) {
	got, err := EncodeMessages([]Msg{{Kind: MsgZmanim, Data: ZmanimData{}}}, false)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	if got != "z-T,IL/Jerusalem,," {
		t.Fatalf("unexpected zmanim defaults: %q", got)
	}

	got, err = EncodeMessages([]Msg{{Kind: MsgZmanim, Data: &ZmanimData{
		Time:       "sunset",
		Zone:       "IL/Haifa",
		Difference: "-H1",
	}}}, false)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	if got != "z-sunset,IL/Haifa,-,H1" {
		t.Fatalf("unexpected zmanim encoding: %q", got)
	}
}

func TestEncodeZmanimInvalid(t *testing.T) {
	if _, err := EncodeMessages([]Msg{{Kind: MsgZmanim, Data: "sunset"}}, false); err == nil {
		t.Fatal("expected error for string zmanim payload")
	}
	if _, err := EncodeMessages([]Msg{{Kind: MsgZmanim, Data: ZmanimData{Difference: "1H"}}}, false); err == nil {
		t.Fatal("expected error for malformed difference")
	}
}

func TestEncodeMusicOnHold(t *testing.T) {
	got, err := EncodeMessages([]Msg{{Kind: MsgMusicOnHold, Data: MusicOnHoldData{MusicName: "lobby"}}}, false)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	if got != "h-lobby" {
		t.Fatalf("unexpected encoding: %q", got)
	}

	got, err = EncodeMessages([]Msg{{Kind: MsgMusicOnHold, Data: MusicOnHoldData{MusicName: "lobby", MaxSec: 30}}}, false)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	if got != "h-lobby,30" {
		t.Fatalf("unexpected encoding: %q", got)
	}

	if _, err := EncodeMessages([]Msg{{Kind: MsgMusicOnHold, Data: "lobby"}}, false); err == nil {
		t.Fatal("expected error for string music_on_hold payload")
	}
	if _, err := EncodeMessages([]Msg{{Kind: MsgMusicOnHold, Data: MusicOnHoldData{}}}, false); err == nil {
		t.Fatal("expected error for missing music name")
	}
}

func TestEncodeSystemMessage(t *testing.T) {
	got, err := EncodeMessages([]Msg{{Kind: MsgSystemMessage, Data: "M1399"}}, false)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	if got != "m-1399" {
		t.Fatalf("unexpected encoding: %q", got)
	}

	got, err = EncodeMessages([]Msg{{Kind: MsgSystemMessage, Data: 1005}}, false)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	if got != "m-1005" {
		t.Fatalf("unexpected encoding: %q", got)
	}

	if _, err := EncodeMessages([]Msg{{Kind: MsgSystemMessage, Data: "Mxyz"}}, false); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
	if _, err := EncodeMessages([]Msg{{Kind: MsgSystemMessage, Data: "M123"}}, false); err == nil {
		t.Fatal("expected error for 3-digit id")
	}
}

func TestEncodeDate(t *testing.T) {
	got, err := EncodeMessages([]Msg{
		{Kind: MsgDate, Data: "01/02/2023"},
		{Kind: MsgDateH, Data: "01/02/2023"},
	}, false)
	if err != nil {
		t.Fatalf("EncodeMessages err: %v", err)
	}
	if got != "date-01/02/2023.dateH-01/02/2023" {
		t.Fatalf("unexpected encoding: %q", got)
	}

	if _, err := EncodeMessages([]Msg{{Kind: MsgDate, Data: "1/2/2023"}}, false); err == nil {
		t.Fatal("expected error for short date")
	}
	if _, err := EncodeMessages([]Msg{{Kind: MsgDate, Data: 20230201}}, false); err == nil {
		t.Fatal("expected error for non-string date")
	}
}

func effectiveTapDefaults(t *testing.T) TapOptions {
	t.Helper()
	eff, err := effectiveRead(libraryDefaults().Read, nil)
	if err != nil {
		t.Fatalf("effectiveRead err: %v", err)
	}
	return eff.Tap
}

func TestTapReadLineDefaults(t *testing.T) {
	got := tapReadLine("t-hello world", "val_1", false, effectiveTapDefaults(t))
	want := "read=t-hello world=val_1,no,,1,7,No,no,no,,,,,None,"
	if got != want {
		t.Fatalf("unexpected read line:\ngot  %q\nwant %q", got, want)
	}
}

func TestTapReadLineAllOptions(t *testing.T) {
	emptyVal := "NULL"
	o := mergeTapOptions(libraryDefaults().Read.Tap, TapOptions{
		MaxDigits:           1,
		DigitsAllowed:       []string{"1", "2", "3"},
		AmountAttempts:      3,
		AllowEmpty:          true,
		EmptyVal:            &emptyVal,
		BlockChangeKeyboard: true,
	})

	got := tapReadLine("t-hello world", "val_1", false, o)
	want := "read=t-hello world=val_1,no,1,1,7,No,no,no,,1.2.3,3,Ok,NULL,InsertLettersTypeChangeNo"
	if got != want {
		t.Fatalf("unexpected read line:\ngot  %q\nwant %q", got, want)
	}
}

func TestTapReadLineBlockedKeys(t *testing.T) {
	o := mergeTapOptions(libraryDefaults().Read.Tap, TapOptions{
		BlockAsteriskKey:   true,
		BlockZeroKey:       true,
		TypingPlaybackMode: "Digits",
	})

	got := tapReadLine("t-hello world", "val_1", false, o)
	want := "read=t-hello world=val_1,no,,1,7,Digits,yes,yes,,,,,None,"
	if got != want {
		t.Fatalf("unexpected read line:\ngot  %q\nwant %q", got, want)
	}
}

func TestTapReadLinePlaybackPresets(t *testing.T) {
	cases := []struct {
		mode     string
		min, max string
	}{
		{"Date", "8", "8"},
		{"HebrewDate", "8", "8"},
		{"Time", "4", "4"},
		{"TeudatZehut", "8", "9"},
		{"Phone", "9", "10"},
	}

	for _, tc := range cases {
		// Explicit digit counts lose against the preset.
		o := mergeTapOptions(libraryDefaults().Read.Tap, TapOptions{
			TypingPlaybackMode: tc.mode,
			MinDigits:          2,
			MaxDigits:          3,
		})
		got := tapReadLine("t-x", "val_1", false, o)
		want := "read=t-x=val_1,no," + tc.max + "," + tc.min + ",7," + tc.mode + ",no,no,,,,,None,"
		if got != want {
			t.Fatalf("%s preset:\ngot  %q\nwant %q", tc.mode, got, want)
		}
	}
}

func TestSttReadLine(t *testing.T) {
	got, err := sttReadLine("t-speak", "val_1", false, SttOptions{Lang: "he"})
	if err != nil {
		t.Fatalf("sttReadLine err: %v", err)
	}
	want := "read=t-speak=val_1,no,voice,he,,,,"
	if got != want {
		t.Fatalf("unexpected read line:\ngot  %q\nwant %q", got, want)
	}

	blockTyping := true
	got, err = sttReadLine("t-speak", "val_2", true, SttOptions{BlockTyping: &blockTyping, MaxDigits: 5})
	if err != nil {
		t.Fatalf("sttReadLine err: %v", err)
	}
	want = "read=t-speak=val_2,yes,voice,,no,5,,"
	if got != want {
		t.Fatalf("unexpected read line:\ngot  %q\nwant %q", got, want)
	}
}

func TestSttReadLineOptionConflicts(t *testing.T) {
	blockTyping := false
	if _, err := sttReadLine("t-x", "val_1", false, SttOptions{
		UseRecordsRecognitionEngine: true,
		BlockTyping:                 &blockTyping,
	}); err == nil {
		t.Fatal("expected conflict error for block_typing with recognition engine")
	}

	if _, err := sttReadLine("t-x", "val_1", false, SttOptions{QuietMax: 3}); err == nil {
		t.Fatal("expected error for quiet_max without recognition engine")
	}
	if _, err := sttReadLine("t-x", "val_1", false, SttOptions{LengthMax: 9}); err == nil {
		t.Fatal("expected error for length_max without recognition engine")
	}

	got, err := sttReadLine("t-x", "val_1", false, SttOptions{
		UseRecordsRecognitionEngine: true,
		QuietMax:                    3,
		LengthMax:                   9,
	})
	if err != nil {
		t.Fatalf("sttReadLine err: %v", err)
	}
	if got != "read=t-x=val_1,no,voice,,,,3,9" {
		t.Fatalf("unexpected read line: %q", got)
	}
}

func TestRecordReadLine(t *testing.T) {
	got := recordReadLine("t-record now", "val_1", false, RecordOptions{})
	want := "read=t-record now=val_1,no,record,,,,yes,,,"
	if got != want {
		t.Fatalf("unexpected read line:\ngot  %q\nwant %q", got, want)
	}

	noSave := false
	got = recordReadLine("t-record now", "val_1", false, RecordOptions{
		Path:                 "5",
		FileName:             "street",
		NoSaveMenu:           true,
		SaveOnHangup:         &noSave,
		AppendToExistingFile: true,
		LengthMin:            2,
		LengthMax:            60,
	})
	want = "read=t-record now=val_1,no,record,5,street,no,,yes,2,60"
	if got != want {
		t.Fatalf("unexpected read line:\ngot  %q\nwant %q", got, want)
	}
}

func TestTerminalLines(t *testing.T) {
	if got := goToFolderLine("/1"); got != "go_to_folder=/1" {
		t.Fatalf("unexpected go_to_folder line: %q", got)
	}
	if got := routingYemotLine("0771234567"); got != "routing_yemot=0771234567" {
		t.Fatalf("unexpected routing line: %q", got)
	}
	if got := idListMessageLine("t-bye"); got != "id_list_message=t-bye&" {
		t.Fatalf("unexpected playback line: %q", got)
	}
}
