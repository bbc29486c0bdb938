package engine

import (
	"testing"
)

func TestFingerprintDeterministic(t *testing.T) {
	sig := Signature{
		Shapes: [][]int{{3, 64, 64}},
		DType:  "float32",
		Params: []Param{{"patch_size", 7}, {"h", 0.1}},
	}

	if sig.Fingerprint() != sig.Fingerprint() {
		t.Error("fingerprint not deterministic")
	}

	if got := sig.Fingerprint(); got != func() string {
		same := Signature{
			Shapes: [][]int{{3, 64, 64}},
			DType:  "float32",
			Params: []Param{{"patch_size", 7}, {"h", 0.1}},
		}
		return same.Fingerprint()
	}() {
		t.Errorf("fingerprint differs for identical signatures: %s", got)
	}
}

func TestFingerprintGolden(t *testing.T) {
	// The fingerprint keys persisted history, so it must stay stable
	// across processes and releases.
	sig := Signature{
		Shapes: [][]int{{2, 8, 8}},
		DType:  "float32",
		Params: []Param{{"magnification", 2}},
	}
	if got, want := sig.Fingerprint(), "620074b68b568bec"; got != want {
		t.Errorf("fingerprint = %s, want %s", got, want)
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Signature{
		Shapes: [][]int{{3, 64, 64}},
		DType:  "float32",
		Params: []Param{{"magnification", 5}},
	}

	cases := map[string]Signature{
		"shape": {
			Shapes: [][]int{{3, 64, 128}},
			DType:  "float32",
			Params: []Param{{"magnification", 5}},
		},
		"extra shape": {
			Shapes: [][]int{{3, 64, 64}, {3, 64, 64}},
			DType:  "float32",
			Params: []Param{{"magnification", 5}},
		},
		"dtype": {
			Shapes: [][]int{{3, 64, 64}},
			DType:  "float64",
			Params: []Param{{"magnification", 5}},
		},
		"param value": {
			Shapes: [][]int{{3, 64, 64}},
			DType:  "float32",
			Params: []Param{{"magnification", 4}},
		},
		"param name": {
			Shapes: [][]int{{3, 64, 64}},
			DType:  "float32",
			Params: []Param{{"radius", 5}},
		},
	}

	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			if sig.Fingerprint() == base.Fingerprint() {
				t.Error("fingerprint collision with base signature")
			}
		})
	}
}

func TestFingerprintShapeBoundaries(t *testing.T) {
	// [2,3] + [4] must not hash like [2] + [3,4].
	a := Signature{Shapes: [][]int{{2, 3}, {4}}, DType: "float32"}
	b := Signature{Shapes: [][]int{{2}, {3, 4}}, DType: "float32"}
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("shape grouping not encoded in fingerprint")
	}
}

func TestSignatureString(t *testing.T) {
	sig := Signature{
		Shapes: [][]int{{3, 64, 64}},
		DType:  "float32",
		Params: []Param{{"radius", 1.5}},
	}
	if got, want := sig.String(), "[3 64 64] float32 radius=1.5"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
