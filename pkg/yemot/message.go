package yemot

// MsgKind identifies what a playable message contains. The wire tag for
// each kind is the short prefix yemot expects before the payload.
type MsgKind string

const (
	MsgFile          MsgKind = "file"
	MsgText          MsgKind = "text"
	MsgSpeech        MsgKind = "speech"
	MsgDigits        MsgKind = "digits"
	MsgNumber        MsgKind = "number"
	MsgAlpha         MsgKind = "alpha"
	MsgZmanim        MsgKind = "zmanim"
	MsgGoToFolder    MsgKind = "go_to_folder"
	MsgSystemMessage MsgKind = "system_message"
	MsgMusicOnHold   MsgKind = "music_on_hold"
	MsgDate          MsgKind = "date"
	MsgDateH         MsgKind = "dateH"
)

// msgKindTags maps each kind to its wire prefix.
var msgKindTags = map[MsgKind]string{
	MsgFile:          "f",
	MsgText:          "t",
	MsgSpeech:        "s",
	MsgDigits:        "d",
	MsgNumber:        "n",
	MsgAlpha:         "a",
	MsgZmanim:        "z",
	MsgGoToFolder:    "g",
	MsgSystemMessage: "m",
	MsgMusicOnHold:   "h",
	MsgDate:          "date",
	MsgDateH:         "dateH",
}

// Msg is one playable message in a prompt or playback list.
//
// Data is a string for the simple kinds. MsgZmanim requires a ZmanimData
// payload and MsgMusicOnHold requires a MusicOnHoldData payload; anything
// else there fails encoding.
type Msg struct {
	Kind MsgKind
	Data any
	// RemoveInvalidChars strips characters yemot cannot play from this
	// message's text instead of failing the whole encode.
	RemoveInvalidChars bool
}

// ZmanimData describes a halachic-time announcement.
type ZmanimData struct {
	// Time is the zman name, e.g. "sunset". Empty means "T" (current time).
	Time string
	// Zone is the locale, defaulting to "IL/Jerusalem".
	Zone string
	// Difference offsets the zman, e.g. "-H1" or "+m30". The format is a
	// sign followed by one of Y/M/D/H/m/S/s and an amount.
	Difference string
}

// MusicOnHoldData plays a named music channel, optionally capped in seconds.
type MusicOnHoldData struct {
	MusicName string
	MaxSec    int
}
