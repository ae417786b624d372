package sip

import "testing"

func TestParseErrorKindString(t *testing.T) {
	cases := map[ParseErrorKind]string{
		KindUnsupportedVersion:     "unsupported_version",
		KindMalformedStartLine:     "malformed_start_line",
		KindMissingHeader:          "missing_required_header",
		KindEncodedBodyUnsupported: "encoded_body_unsupported",
		ParseErrorKind(99):         "Unknown(99)",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("ParseErrorKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestParseErrorMessageIncludesDetail(t *testing.T) {
	err := newParseError(KindMissingHeader, "Via")
	if err.Error() != "sip: parse error: missing_required_header: Via" {
		t.Fatalf("unexpected error message: %q", err.Error())
	}
}
