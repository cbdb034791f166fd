package yemot

import (
	"fmt"
	"time"
)

// ReadMode selects how the caller answers a Read.
type ReadMode string

const (
	// ModeTap reads keypad digits.
	ModeTap ReadMode = "tap"
	// ModeStt reads a speech utterance through speech-to-text.
	ModeStt ReadMode = "stt"
	// ModeRecord records the caller into a file.
	ModeRecord ReadMode = "record"
)

// TapOptions configures a keypad read. Zero values mean "use the default";
// pointer fields exist where the zero value is itself meaningful.
type TapOptions struct {
	MaxDigits int
	MinDigits int
	// SecWait is how long yemot waits for the first keypress, in seconds.
	SecWait int
	// TypingPlaybackMode controls how typed input is read back, e.g.
	// "Number", "Digits", "HebrewKeyboard". Some modes ("Date", "Time",
	// "Phone", "TeudatZehut", "HebrewDate") force fixed digit counts.
	TypingPlaybackMode  string
	BlockAsteriskKey    bool
	BlockZeroKey        bool
	ReplaceChar         string
	DigitsAllowed       []string
	AmountAttempts      int
	AllowEmpty          bool
	// EmptyVal is the value yemot submits when the caller enters nothing
	// and AllowEmpty is on. nil means the platform default "None".
	EmptyVal            *string
	BlockChangeKeyboard bool
}

// SttOptions configures a speech-to-text read.
type SttOptions struct {
	Lang string
	// BlockTyping disables answering by keypad. It may not be set at all
	// when UseRecordsRecognitionEngine is on.
	BlockTyping                 *bool
	MaxDigits                   int
	UseRecordsRecognitionEngine bool
	// QuietMax and LengthMax are only valid with the records recognition
	// engine.
	QuietMax  int
	LengthMax int
}

// RecordOptions configures a recording read.
type RecordOptions struct {
	Path     string
	FileName string
	// NoSaveMenu skips the save/re-record confirmation menu.
	NoSaveMenu bool
	// SaveOnHangup keeps the recording if the caller hangs up mid-way.
	// nil means the default, which is to save.
	SaveOnHangup         *bool
	AppendToExistingFile bool
	LengthMin            int
	LengthMax            int
}

// ReadOptions carries the per-call overrides for one Read invocation.
// Only the bag matching the read mode is consulted.
type ReadOptions struct {
	// ValName names the submitted value. Empty auto-generates val_1,
	// val_2, ... per call.
	ValName         string
	ReEnterIfExists bool
	// RemoveInvalidChars overrides the session sanitization policy for
	// this read's messages. nil inherits.
	RemoveInvalidChars *bool
	// Timeout overrides how long this layer waits for the answer request
	// before giving up with a timeout signal. nil inherits; zero waits
	// forever.
	Timeout *time.Duration

	Tap    TapOptions
	Stt    SttOptions
	Record RecordOptions
}

// ReadDefaults is the read-related slice of a defaults cascade level.
type ReadDefaults struct {
	// Timeout bounds the wait for the caller's next request. Zero means
	// wait forever.
	Timeout            time.Duration
	RemoveInvalidChars bool
	Tap                TapOptions
	Stt                SttOptions
	Record             RecordOptions
}

// IDListMessageDefaults configures playback defaults.
type IDListMessageDefaults struct {
	RemoveInvalidChars bool
}

// Defaults is one level of the configuration cascade: library defaults,
// router-level overrides, and per-call overrides, in increasing
// precedence. Merging is pure; see MergeDefaults.
type Defaults struct {
	// PrintLog turns on per-call lifecycle logging.
	PrintLog      bool
	Read          ReadDefaults
	IDListMessage IDListMessageDefaults
}

// libraryDefaults is the lowest cascade level, matching the platform's
// documented behavior for omitted options.
func libraryDefaults() Defaults {
	return Defaults{
		Read: ReadDefaults{
			Tap: TapOptions{
				MinDigits:          1,
				SecWait:            7,
				TypingPlaybackMode: "No",
			},
		},
	}
}

// MergeDefaults overlays override on base, field by field. Zero-valued
// override fields inherit from base; set fields win. The result is a new
// value, neither input is mutated.
func MergeDefaults(base, override Defaults) Defaults {
	out := base
	if override.PrintLog {
		out.PrintLog = true
	}
	if override.Read.Timeout != 0 {
		out.Read.Timeout = override.Read.Timeout
	}
	if override.Read.RemoveInvalidChars {
		out.Read.RemoveInvalidChars = true
	}
	out.Read.Tap = mergeTapOptions(base.Read.Tap, override.Read.Tap)
	out.Read.Stt = mergeSttOptions(base.Read.Stt, override.Read.Stt)
	out.Read.Record = mergeRecordOptions(base.Read.Record, override.Read.Record)
	if override.IDListMessage.RemoveInvalidChars {
		out.IDListMessage.RemoveInvalidChars = true
	}
	return out
}

func mergeTapOptions(base, override TapOptions) TapOptions {
	out := base
	if override.MaxDigits != 0 {
		out.MaxDigits = override.MaxDigits
	}
	if override.MinDigits != 0 {
		out.MinDigits = override.MinDigits
	}
	if override.SecWait != 0 {
		out.SecWait = override.SecWait
	}
	if override.TypingPlaybackMode != "" {
		out.TypingPlaybackMode = override.TypingPlaybackMode
	}
	if override.BlockAsteriskKey {
		out.BlockAsteriskKey = true
	}
	if override.BlockZeroKey {
		out.BlockZeroKey = true
	}
	if override.ReplaceChar != "" {
		out.ReplaceChar = override.ReplaceChar
	}
	if override.DigitsAllowed != nil {
		out.DigitsAllowed = override.DigitsAllowed
	}
	if override.AmountAttempts != 0 {
		out.AmountAttempts = override.AmountAttempts
	}
	if override.AllowEmpty {
		out.AllowEmpty = true
	}
	if override.EmptyVal != nil {
		out.EmptyVal = override.EmptyVal
	}
	if override.BlockChangeKeyboard {
		out.BlockChangeKeyboard = true
	}
	return out
}

func mergeSttOptions(base, override SttOptions) SttOptions {
	out := base
	if override.Lang != "" {
		out.Lang = override.Lang
	}
	if override.BlockTyping != nil {
		out.BlockTyping = override.BlockTyping
	}
	if override.MaxDigits != 0 {
		out.MaxDigits = override.MaxDigits
	}
	if override.UseRecordsRecognitionEngine {
		out.UseRecordsRecognitionEngine = true
	}
	if override.QuietMax != 0 {
		out.QuietMax = override.QuietMax
	}
	if override.LengthMax != 0 {
		out.LengthMax = override.LengthMax
	}
	return out
}

func mergeRecordOptions(base, override RecordOptions) RecordOptions {
	out := base
	if override.Path != "" {
		out.Path = override.Path
	}
	if override.FileName != "" {
		out.FileName = override.FileName
	}
	if override.NoSaveMenu {
		out.NoSaveMenu = true
	}
	if override.SaveOnHangup != nil {
		out.SaveOnHangup = override.SaveOnHangup
	}
	if override.AppendToExistingFile {
		out.AppendToExistingFile = true
	}
	if override.LengthMin != 0 {
		out.LengthMin = override.LengthMin
	}
	if override.LengthMax != 0 {
		out.LengthMax = override.LengthMax
	}
	return out
}

// effectiveRead resolves one Read invocation's options against the call's
// defaults. Returned values are fully defaulted and ready for encoding.
func effectiveRead(defaults ReadDefaults, opts *ReadOptions) (ReadDefaults, error) {
	eff := defaults
	if opts == nil {
		return eff, nil
	}
	if opts.Timeout != nil {
		if *opts.Timeout < 0 {
			return ReadDefaults{}, fmt.Errorf("yemot: read timeout must not be negative, got %s", *opts.Timeout)
		}
		eff.Timeout = *opts.Timeout
	}
	if opts.RemoveInvalidChars != nil {
		eff.RemoveInvalidChars = *opts.RemoveInvalidChars
	}
	eff.Tap = mergeTapOptions(defaults.Tap, opts.Tap)
	eff.Stt = mergeSttOptions(defaults.Stt, opts.Stt)
	eff.Record = mergeRecordOptions(defaults.Record, opts.Record)
	return eff, nil
}

// IDListMessageOptions configures a playback operation.
type IDListMessageOptions struct {
	// RemoveInvalidChars overrides the session sanitization policy for
	// this playback's messages. nil inherits.
	RemoveInvalidChars *bool
	// PrependToNextAction buffers the playback text in front of the next
	// response line instead of playing-and-exiting.
	PrependToNextAction bool
}
