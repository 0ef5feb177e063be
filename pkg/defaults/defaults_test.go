package defaults

import "testing"

func TestScanDefaults(t *testing.T) {
	if SampleSize != 10 {
		t.Errorf("expected sample size 10, got %d", SampleSize)
	}
	if Concurrency != 5 {
		t.Errorf("expected concurrency 5, got %d", Concurrency)
	}
	if Concurrency > ConcurrencyMax {
		t.Error("default concurrency exceeds the cap")
	}
}

func TestKinds(t *testing.T) {
	seen := make(map[string]bool)
	for _, k := range Kinds {
		if seen[k] {
			t.Errorf("duplicate kind %q", k)
		}
		seen[k] = true
	}
	if !seen[KindSQL] || !seen[KindCMDI] {
		t.Errorf("expected sql and cmdi kinds, got %v", Kinds)
	}
}

func TestExitCodesDistinct(t *testing.T) {
	codes := []int{ExitSuccess, ExitFindings, ExitUserError, ExitLoadError, ExitInternalError, ExitInterrupted}
	seen := make(map[int]bool)
	for _, c := range codes {
		if seen[c] {
			t.Errorf("exit code %d used twice", c)
		}
		seen[c] = true
	}
}
