package yemot

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Characters yemot refuses to play inside message payloads.
var invalidCharsRE = regexp.MustCompile(`[.\-"'&|]`)

var (
	zmanimDifferenceRE = regexp.MustCompile(`^(-|\+)([YMDHmSs]\d+)$`)
	dateFormatRE       = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
)

// EncodeMessages renders a message list into the dot-separated payload that
// goes inside read= and id_list_message= lines. Each message is prefixed by
// its kind tag. Encoding stops right after a go_to_folder message: the
// platform's behavior for anything following one is undefined, so trailing
// messages are dropped.
//
// removeInvalidChars turns character sanitization on for every text and
// speech message; Msg.RemoveInvalidChars turns it on per message. With
// sanitization off, a payload containing an invalid character fails with
// an EncodingError.
func EncodeMessages(msgs []Msg, removeInvalidChars bool) (string, error) {
	if len(msgs) == 0 {
		return "", encodingErrorf("messages", "message list is empty")
	}

	var parts []string
	for _, m := range msgs {
		tag, ok := msgKindTags[m.Kind]
		if !ok {
			return "", encodingErrorf("type", "%q is not a valid message type (valid types: %s)", m.Kind, validKindList())
		}

		payload, err := encodePayload(m, removeInvalidChars)
		if err != nil {
			return "", err
		}
		parts = append(parts, tag+"-"+payload)

		if m.Kind == MsgGoToFolder {
			break
		}
	}
	return strings.Join(parts, "."), nil
}

func validKindList() string {
	kinds := make([]string, 0, len(msgKindTags))
	for k := range msgKindTags {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	return strings.Join(kinds, ", ")
}

func encodePayload(m Msg, removeInvalidChars bool) (string, error) {
	switch m.Kind {
	case MsgZmanim:
		return encodeZmanim(m.Data)
	case MsgMusicOnHold:
		return encodeMusicOnHold(m.Data)
	case MsgSystemMessage:
		return encodeSystemMessage(m.Data)
	case MsgDate, MsgDateH:
		s, err := stringPayload(m)
		if err != nil {
			return "", err
		}
		if !dateFormatRE.MatchString(s) {
			return "", encodingErrorf("data", "%q is not a valid date, expected DD/MM/YYYY", s)
		}
		return s, nil
	default:
		s, err := stringPayload(m)
		if err != nil {
			return "", err
		}
		return cleanText(m, removeInvalidChars, s)
	}
}

func stringPayload(m Msg) (string, error) {
	s, ok := m.Data.(string)
	if !ok {
		return "", encodingErrorf("data", "in %q type, data should be a string, got %T", m.Kind, m.Data)
	}
	return s, nil
}

// cleanText enforces the invalid-character policy on a textual payload.
// Only text and speech messages are eligible for stripping; every other
// kind must already be clean.
func cleanText(m Msg, removeInvalidChars bool, s string) (string, error) {
	matched := invalidCharsRE.FindAllString(s, -1)
	if len(matched) == 0 {
		return s, nil
	}

	sanitizable := m.Kind == MsgText || m.Kind == MsgSpeech
	if sanitizable && (m.RemoveInvalidChars || removeInvalidChars) {
		log.Printf("[yemot] removed invalid characters (%s) from message text %q", strings.Join(matched, " "), s)
		return invalidCharsRE.ReplaceAllString(s, ""), nil
	}
	return "", encodingErrorf("data", "message %q has invalid characters for yemot: %s", s, strings.Join(matched, ", "))
}

func encodeZmanim(data any) (string, error) {
	var z ZmanimData
	switch v := data.(type) {
	case ZmanimData:
		z = v
	case *ZmanimData:
		z = *v
	default:
		return "", encodingErrorf("data", `in "zmanim" type, data should be a ZmanimData, got %T`, data)
	}

	zmanTime := z.Time
	if zmanTime == "" {
		zmanTime = "T"
	}
	zone := z.Zone
	if zone == "" {
		zone = "IL/Jerusalem"
	}

	sign, amount := "", ""
	if z.Difference != "" {
		m := zmanimDifferenceRE.FindStringSubmatch(z.Difference)
		if m == nil {
			return "", encodingErrorf("difference", "%q is not a valid zmanim difference", z.Difference)
		}
		sign, amount = m[1], m[2]
	}

	return strings.Join([]string{zmanTime, zone, sign, amount}, ","), nil
}

func encodeMusicOnHold(data any) (string, error) {
	var h MusicOnHoldData
	switch v := data.(type) {
	case MusicOnHoldData:
		h = v
	case *MusicOnHoldData:
		h = *v
	default:
		return "", encodingErrorf("data", `in "music_on_hold" type, data should be a MusicOnHoldData, got %T`, data)
	}

	if h.MusicName == "" {
		return "", encodingErrorf("musicName", `in "music_on_hold" type, data.MusicName should be a non-empty string`)
	}
	if h.MaxSec < 0 {
		return "", encodingErrorf("maxSec", `in "music_on_hold" type, data.MaxSec should be a non-negative integer`)
	}
	if h.MaxSec > 0 {
		return fmt.Sprintf("%s,%d", h.MusicName, h.MaxSec), nil
	}
	return h.MusicName, nil
}

func encodeSystemMessage(data any) (string, error) {
	var raw string
	switch v := data.(type) {
	case string:
		raw = v
	case int:
		raw = strconv.Itoa(v)
	default:
		return "", encodingErrorf("data", `in "system_message" type, data should be a string or int, got %T`, data)
	}

	id := strings.TrimSpace(strings.TrimPrefix(raw, "M"))
	if _, err := strconv.Atoi(id); err != nil {
		return "", encodingErrorf("data", "%q is not a valid system message id", raw)
	}
	if len(id) != 4 {
		return "", encodingErrorf("data", "%q is not a valid system message id - it should be 4 digits, got %d", raw, len(id))
	}
	return id, nil
}

// Digit-count pairs the platform forces for certain typing playback modes.
// Documented yemot convention; explicit min/max options are overridden.
var playbackPresets = map[string]struct{ minDigits, maxDigits int }{
	"Date":        {8, 8},
	"HebrewDate":  {8, 8},
	"Time":        {4, 4},
	"TeudatZehut": {8, 9},
	"Phone":       {9, 10},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// intField renders n for the CSV option list, where zero means "not set".
func intField(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// tapReadLine builds the read= line for a keypad read. Field order is fixed
// by the platform and must not change.
func tapReadLine(combined, valName string, reEnter bool, o TapOptions) string {
	if p, ok := playbackPresets[o.TypingPlaybackMode]; ok {
		o.MinDigits, o.MaxDigits = p.minDigits, p.maxDigits
	}

	minDigits := o.MinDigits
	if minDigits == 0 {
		minDigits = 1
	}
	secWait := o.SecWait
	if secWait == 0 {
		secWait = 7
	}
	playbackMode := o.TypingPlaybackMode
	if playbackMode == "" {
		playbackMode = "No"
	}
	emptyVal := "None"
	if o.EmptyVal != nil {
		emptyVal = *o.EmptyVal
	}
	allowEmpty := ""
	if o.AllowEmpty {
		allowEmpty = "Ok"
	}
	blockKeyboard := ""
	if o.BlockChangeKeyboard {
		blockKeyboard = "InsertLettersTypeChangeNo"
	}

	fields := []string{
		valName,
		yesNo(reEnter),
		intField(o.MaxDigits),
		strconv.Itoa(minDigits),
		strconv.Itoa(secWait),
		playbackMode,
		yesNo(o.BlockAsteriskKey),
		yesNo(o.BlockZeroKey),
		o.ReplaceChar,
		strings.Join(o.DigitsAllowed, "."),
		intField(o.AmountAttempts),
		allowEmpty,
		emptyVal,
		blockKeyboard,
	}
	return "read=" + combined + "=" + strings.Join(fields, ",")
}

// sttReadLine builds the read= line for a speech-to-text read. It rejects
// option combinations the platform does not support.
func sttReadLine(combined, valName string, reEnter bool, o SttOptions) (string, error) {
	if o.UseRecordsRecognitionEngine {
		if o.BlockTyping != nil {
			return "", encodingErrorf("block_typing", "block_typing is not available when use_records_recognition_engine is on - typing is always blocked by the records recognition engine")
		}
	} else {
		if o.QuietMax != 0 {
			return "", encodingErrorf("quiet_max", "quiet_max is only available when use_records_recognition_engine is on")
		}
		if o.LengthMax != 0 {
			return "", encodingErrorf("length_max", "length_max is only available when use_records_recognition_engine is on")
		}
	}

	blockTyping := ""
	if o.BlockTyping != nil && *o.BlockTyping {
		blockTyping = "no"
	}

	fields := []string{
		valName,
		yesNo(reEnter),
		"voice",
		o.Lang,
		blockTyping,
		intField(o.MaxDigits),
		intField(o.QuietMax),
		intField(o.LengthMax),
	}
	return "read=" + combined + "=" + strings.Join(fields, ","), nil
}

// recordReadLine builds the read= line for a recording read.
func recordReadLine(combined, valName string, reEnter bool, o RecordOptions) string {
	saveOnHangup := true
	if o.SaveOnHangup != nil {
		saveOnHangup = *o.SaveOnHangup
	}

	noSaveMenu := ""
	if o.NoSaveMenu {
		noSaveMenu = "no"
	}
	save := ""
	if saveOnHangup {
		save = "yes"
	}
	appendFile := ""
	if o.AppendToExistingFile {
		appendFile = "yes"
	}

	fields := []string{
		valName,
		yesNo(reEnter),
		"record",
		o.Path,
		o.FileName,
		noSaveMenu,
		save,
		appendFile,
		intField(o.LengthMin),
		intField(o.LengthMax),
	}
	return "read=" + combined + "=" + strings.Join(fields, ",")
}

func idListMessageLine(combined string) string {
	return "id_list_message=" + combined + "&"
}

func goToFolderLine(target string) string {
	return "go_to_folder=" + target
}

func routingYemotLine(number string) string {
	return "routing_yemot=" + number
}
