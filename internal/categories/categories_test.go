package categories

import (
	"reflect"
	"testing"
)

var canonicalOrder = []string{
	"D.I", "D.G",
	"S.S", "S.SL", "S.EQ",
	"E.RV", "E.O", "E.RF", "E.RH",
	"R.ET", "R.ES",
	"OTHER",
}

func TestCodesOrder(t *testing.T) {
	t.Parallel()

	if got := Codes(); !reflect.DeepEqual(got, canonicalOrder) {
		t.Fatalf("Codes() = %v, want %v", got, canonicalOrder)
	}
}

func TestByCode(t *testing.T) {
	t.Parallel()

	c, ok := ByCode("E.RF")
	if !ok || c.Title != "Reformatting and Reworking" || c.Group != "Engaging" {
		t.Fatalf("ByCode(E.RF) = %+v, %v", c, ok)
	}
	if _, ok := ByCode("X.X"); ok {
		t.Fatalf("unknown code should report !ok")
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{"empty means all", "", canonicalOrder, false},
		{"all", "all", canonicalOrder, false},
		{"star", "*", canonicalOrder, false},
		{"codes", "D.I,S.S", []string{"D.I", "S.S"}, false},
		{"case and dot insensitive", "d.i, ss, ERF", []string{"D.I", "S.S", "E.RF"}, false},
		{"indices", "1 3", []string{"D.I", "S.S"}, false},
		{"mixed tokens", "1, OTHER", []string{"D.I", "OTHER"}, false},
		{"repeat collapsed", "S.S,3,s.s", []string{"S.S"}, false},
		{"index out of range", "13", nil, true},
		{"unknown code", "Z.Z", nil, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Resolve(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) err = %v, wantErr=%v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Resolve(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
