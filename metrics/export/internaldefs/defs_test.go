package internaldefs

import "testing"

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets([]uint64{1, 2, 3})
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}

	if got := CumulativeBuckets(nil); got != [8]uint64{} {
		t.Fatalf("expected zero buckets, got %v", got)
	}
}

func TestDefinitionNamesUnique(t *testing.T) {
	seen := map[string]bool{AuditDroppedName: true}
	for _, def := range CounterDefs {
		if seen[def.Name] {
			t.Fatalf("duplicate metric name %s", def.Name)
		}
		seen[def.Name] = true
	}
	for _, def := range HistogramDefs {
		if seen[def.Name] {
			t.Fatalf("duplicate metric name %s", def.Name)
		}
		seen[def.Name] = true
	}
	if len(HistogramBounds) != len(CumulativeBuckets(nil)) {
		t.Fatal("bucket labels and bucket count differ")
	}
}
