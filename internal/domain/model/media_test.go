package model

import "testing"

// TestNormalizeFolderID проверяет инвариант: положительное число или nil.
func TestNormalizeFolderID(t *testing.T) {
	for _, in := range []int64{0, -1, -100} {
		if got := NormalizeFolderID(in); got != nil {
			t.Errorf("NormalizeFolderID(%d): ожидался nil, получено %d", in, *got)
		}
	}

	got := NormalizeFolderID(42)
	if got == nil || *got != 42 {
		t.Errorf("NormalizeFolderID(42): ожидалось 42, получено %v", got)
	}
}
