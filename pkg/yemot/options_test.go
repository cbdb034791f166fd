package yemot

import (
	"testing"
	"time"
)

func TestMergeDefaultsCascade(t *testing.T) {
	routerLevel := Defaults{
		PrintLog: true,
		Read: ReadDefaults{
			Timeout: 30 * time.Second,
			Tap:     TapOptions{MaxDigits: 4, SecWait: 10},
		},
	}

	merged := MergeDefaults(libraryDefaults(), routerLevel)

	if !merged.PrintLog {
		t.Fatal("PrintLog override lost")
	}
	if merged.Read.Timeout != 30*time.Second {
		t.Fatalf("Timeout = %s, want 30s", merged.Read.Timeout)
	}
	if merged.Read.Tap.MaxDigits != 4 {
		t.Fatalf("MaxDigits = %d, want 4", merged.Read.Tap.MaxDigits)
	}
	if merged.Read.Tap.SecWait != 10 {
		t.Fatalf("SecWait = %d, want 10", merged.Read.Tap.SecWait)
	}
	// Untouched fields inherit the lower level.
	if merged.Read.Tap.MinDigits != 1 {
		t.Fatalf("MinDigits = %d, want inherited 1", merged.Read.Tap.MinDigits)
	}
	if merged.Read.Tap.TypingPlaybackMode != "No" {
		t.Fatalf("TypingPlaybackMode = %q, want inherited \"No\"", merged.Read.Tap.TypingPlaybackMode)
	}
}

func TestMergeDefaultsDoesNotMutateInputs(t *testing.T) {
	base := libraryDefaults()
	override := Defaults{Read: ReadDefaults{Tap: TapOptions{SecWait: 3}}}

	_ = MergeDefaults(base, override)

	if base.Read.Tap.SecWait != 7 {
		t.Fatalf("base mutated: SecWait = %d", base.Read.Tap.SecWait)
	}
	if override.Read.Tap.MinDigits != 0 {
		t.Fatalf("override mutated: MinDigits = %d", override.Read.Tap.MinDigits)
	}
}

func TestMergeTapOptionsPointerFields(t *testing.T) {
	star := "*"
	out := mergeTapOptions(TapOptions{}, TapOptions{EmptyVal: &star})
	if out.EmptyVal == nil || *out.EmptyVal != "*" {
		t.Fatalf("EmptyVal override lost: %v", out.EmptyVal)
	}

	// nil override inherits the base pointer.
	out = mergeTapOptions(out, TapOptions{MaxDigits: 2})
	if out.EmptyVal == nil || *out.EmptyVal != "*" {
		t.Fatalf("EmptyVal inheritance lost: %v", out.EmptyVal)
	}
}

func TestEffectiveReadPerCallOverrides(t *testing.T) {
	defaults := ReadDefaults{
		Timeout: time.Minute,
		Tap:     TapOptions{MinDigits: 1, SecWait: 7, TypingPlaybackMode: "No"},
	}

	perCall := 5 * time.Second
	sanitize := true
	eff, err := effectiveRead(defaults, &ReadOptions{
		Timeout:            &perCall,
		RemoveInvalidChars: &sanitize,
		Tap:                TapOptions{MaxDigits: 2, MinDigits: 2},
	})
	if err != nil {
		t.Fatalf("effectiveRead err: %v", err)
	}

	if eff.Timeout != 5*time.Second {
		t.Fatalf("Timeout = %s, want per-call 5s", eff.Timeout)
	}
	if !eff.RemoveInvalidChars {
		t.Fatal("RemoveInvalidChars override lost")
	}
	if eff.Tap.MaxDigits != 2 || eff.Tap.MinDigits != 2 {
		t.Fatalf("tap overrides lost: %+v", eff.Tap)
	}
	if eff.Tap.SecWait != 7 {
		t.Fatalf("SecWait = %d, want inherited 7", eff.Tap.SecWait)
	}
}

func TestEffectiveReadZeroTimeoutDisablesWait(t *testing.T) {
	zero := time.Duration(0)
	eff, err := effectiveRead(ReadDefaults{Timeout: time.Minute}, &ReadOptions{Timeout: &zero})
	if err != nil {
		t.Fatalf("effectiveRead err: %v", err)
	}
	if eff.Timeout != 0 {
		t.Fatalf("Timeout = %s, want 0", eff.Timeout)
	}
}

func TestEffectiveReadRejectsNegativeTimeout(t *testing.T) {
	bad := -time.Second
	if _, err := effectiveRead(ReadDefaults{}, &ReadOptions{Timeout: &bad}); err == nil {
		t.Fatal("expected error for negative timeout")
	}
}
