package sms

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "already canonical", input: "254712345678", want: "254712345678"},
		{name: "leading zero", input: "0712345678", want: "254712345678"},
		{name: "bare nine digits", input: "712345678", want: "254712345678"},
		{name: "plus prefix", input: "+254712345678", want: "254712345678"},
		{name: "spaces and dashes", input: "0712 345-678", want: "254712345678"},
		{name: "empty", input: "", wantErr: true},
		{name: "letters", input: "abc", wantErr: true},
		{name: "too short", input: "07123", wantErr: true},
		{name: "too long", input: "25471234567890", wantErr: true},
		{name: "wrong prefix local", input: "0112345678", wantErr: true},
		{name: "wrong country code", input: "255712345678", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Normalize(%q) = %q, want error", tc.input, got)
				}
				var ne *NormalizationError
				if !errors.As(err, &ne) {
					t.Fatalf("Normalize(%q) error type = %T, want *NormalizationError", tc.input, err)
				}
				if ne.Raw != tc.input {
					t.Errorf("NormalizationError.Raw = %q, want %q", ne.Raw, tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q) unexpected error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"0712345678", "712345678", "254712345678", "+254 712 345 678"}
	for _, in := range inputs {
		first, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		second, err := Normalize(first)
		if err != nil {
			t.Fatalf("Normalize(Normalize(%q)): %v", in, err)
		}
		if first != second {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, first, second)
		}
	}
}

func TestIsCanonical(t *testing.T) {
	cases := map[string]bool{
		"254712345678": true,
		"0712345678":   false,
		"712345678":    false,
		"25471234567":  false,
		"254812345678": false,
		"":             false,
	}
	for phone, want := range cases {
		if got := IsCanonical(phone); got != want {
			t.Errorf("IsCanonical(%q) = %v, want %v", phone, got, want)
		}
	}
}
