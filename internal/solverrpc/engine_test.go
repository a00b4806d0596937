package solverrpc

import "testing"

func TestBundledContractParses(t *testing.T) {
	md, err := loadMethod("")
	if err != nil {
		t.Fatal(err)
	}
	if md.GetName() != "Check" {
		t.Errorf("method name = %q", md.GetName())
	}
	in := md.GetInputType()
	for _, field := range []string{"smtlib", "timeout_ms"} {
		if in.FindFieldByName(field) == nil {
			t.Errorf("request type missing field %q", field)
		}
	}
	out := md.GetOutputType()
	for _, field := range []string{"status", "reason", "model"} {
		if out.FindFieldByName(field) == nil {
			t.Errorf("response type missing field %q", field)
		}
	}
}

func TestLoadMethodRejectsMissingContract(t *testing.T) {
	if _, err := loadMethod("does/not/exist.proto"); err == nil {
		t.Fatal("expected an error for a missing proto file")
	}
}
