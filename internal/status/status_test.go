package status

import (
	"strings"
	"testing"
)

func TestU_Code_Classification(t *testing.T) {
	if !ClaimSignatureValidated.IsOK() {
		t.Errorf("claimSignature.validated must be a success")
	}
	if AssertionDataHashMismatch.IsOK() {
		t.Errorf("assertion.dataHash.mismatch must be an error")
	}
	if Code("made.up").IsOK() {
		t.Errorf("unknown codes default to error")
	}
	if !ClaimMultiple.Known() || Code("made.up").Known() {
		t.Errorf("Known misclassified a code")
	}
}

func TestU_New_DefaultsDescription(t *testing.T) {
	st := New(ClaimMultiple, "", "self#jumbf=x")
	if st.Message != ClaimMultiple.Description() {
		t.Errorf("message %q", st.Message)
	}
	if st.OK {
		t.Errorf("claim.multiple must be an error status")
	}
	rendered := st.String()
	if !strings.Contains(rendered, "ERROR claim.multiple") || !strings.Contains(rendered, "self#jumbf=x") {
		t.Errorf("rendering %q", rendered)
	}
}

func TestU_MapRoundTrip(t *testing.T) {
	st := New(AssertionHashedURIMismatch, "boom", "self#jumbf=a/b")
	back := FromMap(st.ToMap())
	if back.Code != st.Code || back.Message != st.Message || back.URL != st.URL {
		t.Errorf("round trip changed the status: %+v", back)
	}
	if back.OK {
		t.Errorf("error status became a success")
	}

	custom := Status{Code: "vendor.check", OK: true, Message: "fine"}
	m := custom.ToMap()
	if m["success"] != true {
		t.Errorf("custom code must serialize its success flag")
	}
	back = FromMap(m)
	if !back.OK {
		t.Errorf("custom success flag lost")
	}
}

func TestU_AllOK(t *testing.T) {
	list := []Status{New(ClaimSignatureValidated, "", ""), New(AssertionHashedURIMatch, "", "")}
	if !AllOK(list) {
		t.Errorf("all-success list reported failure")
	}
	list = append(list, New(GeneralError, "", ""))
	if AllOK(list) {
		t.Errorf("error in list went unnoticed")
	}
}
