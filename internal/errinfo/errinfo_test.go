package errinfo

import "testing"

func TestValidationKindsNotRetryable(t *testing.T) {
	cases := []*ErrorInfo{
		NoDocumentLoaded(),
		NoWorkspaceOpen(),
		TargetNotFound("needle"),
		InvalidPattern("(unclosed"),
		SnapshotNotFound("abc"),
		RangeInvalid("start 5 > end 2"),
		SizeLimitExceeded("11534336 > 10485760"),
	}
	for _, info := range cases {
		if info.Retryable {
			t.Fatalf("%s should not be retryable", info.ErrorCode)
		}
	}
}

func TestTransientKindsRetryable(t *testing.T) {
	for _, info := range []*ErrorInfo{
		FileReadFailed("io timeout"),
		FileWriteFailed("disk busy"),
		NetworkUnavailable("offline"),
	} {
		if !info.Retryable {
			t.Fatalf("%s should be retryable", info.ErrorCode)
		}
		if len(info.Actions) == 0 || info.Actions[0] != ActionRetry {
			t.Fatalf("%s should suggest retry", info.ErrorCode)
		}
	}
}

func TestRemediationActions(t *testing.T) {
	if got := NoDocumentLoaded().Actions[0]; got != ActionLoadDocument {
		t.Fatalf("expected load_document action, got %s", got)
	}
	if got := NoWorkspaceOpen().Actions[0]; got != ActionOpenFolder {
		t.Fatalf("expected open_folder action, got %s", got)
	}
	if got := InvalidPattern("x").Actions[0]; got != ActionCheckPattern {
		t.Fatalf("expected check_pattern action, got %s", got)
	}
}

func TestFromPassesStructuredThrough(t *testing.T) {
	orig := TargetNotFound("needle")
	if From(orig) != orig {
		t.Fatalf("expected identity mapping for structured error")
	}
	mapped := From(errString("boom"))
	if mapped.ErrorCode != CodeUnknown || mapped.Detail != "boom" {
		t.Fatalf("expected unknown error wrapping, got %+v", mapped)
	}
	if From(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
