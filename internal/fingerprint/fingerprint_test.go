package fingerprint

import (
	"regexp"
	"testing"
)

var hexSHA256 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestComputeNormalizesVariantsIdentically(t *testing.T) {
	variants := [][2]string{
		{"The Starry Night!!", "Vincent van Gogh"},
		{"starry night", "vincent van gogh"},
		{" Starry   Night ", "  Vincent  van Gogh."},
	}

	first := Compute(variants[0][0], variants[0][1], "")
	for _, v := range variants[1:] {
		fp := Compute(v[0], v[1], "")
		if fp.NormalizedTitle != first.NormalizedTitle {
			t.Errorf("title %q normalized to %q, want %q", v[0], fp.NormalizedTitle, first.NormalizedTitle)
		}
		if fp.CombinedHash != first.CombinedHash {
			t.Errorf("hash for %q/%q differs from %q/%q", v[0], v[1], variants[0][0], variants[0][1])
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	a := Compute("Mona Lisa", "Leonardo da Vinci", "1503")
	b := Compute("Mona Lisa", "Leonardo da Vinci", "1503")
	if a != b {
		t.Fatalf("fingerprints differ: %+v vs %+v", a, b)
	}
	if !hexSHA256.MatchString(a.CombinedHash) {
		t.Fatalf("combined hash %q is not hex sha-256", a.CombinedHash)
	}
	if a.Year != "1503" {
		t.Fatalf("year = %q, want 1503", a.Year)
	}
}

func TestComputeHashIgnoresYear(t *testing.T) {
	a := Compute("Mona Lisa", "Leonardo da Vinci", "1503")
	b := Compute("Mona Lisa", "Leonardo da Vinci", "c. 1519")
	if a.CombinedHash != b.CombinedHash {
		t.Fatal("year must not affect the combined hash")
	}
}

func TestComputeArtistChangesHash(t *testing.T) {
	a := Compute("Mona Lisa", "Leonardo da Vinci", "")
	b := Compute("Mona Lisa", "Marcel Duchamp", "")
	if a.CombinedHash == b.CombinedHash {
		t.Fatal("changing the artist must change the hash")
	}
}

func TestComputeHashMatchesHashFunction(t *testing.T) {
	fp := Compute("Mona Lisa", "Leonardo da Vinci", "")
	if got := Hash("mona lisa", "leonardo da vinci"); got != fp.CombinedHash {
		t.Fatalf("Hash = %q, want %q", got, fp.CombinedHash)
	}
}

func TestComputeEmptyInputIsStable(t *testing.T) {
	a := Compute("", "", "")
	b := Compute("???", "   ", "")
	if a.CombinedHash == "" {
		t.Fatal("empty input must still hash")
	}
	if a.CombinedHash != b.CombinedHash {
		t.Fatal("garbage input should normalize like empty input")
	}
	if a.IsZero() {
		t.Fatal("computed fingerprint must not report zero")
	}
	if !(Fingerprint{}).IsZero() {
		t.Fatal("zero value must report zero")
	}
}

func TestFingerprintString(t *testing.T) {
	fp := Compute("Mona Lisa", "Leonardo da Vinci", "")
	if got := fp.String(); len(got) != 12 || got != fp.CombinedHash[:12] {
		t.Fatalf("String() = %q", got)
	}
}
