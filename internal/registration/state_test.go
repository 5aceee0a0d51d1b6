package registration

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSelection_Toggle(t *testing.T) {
	cases := []struct {
		name string
		in   Selection
		id   int
		want Selection
	}{
		{"append to empty", Selection{}, 4, Selection{4}},
		{"append keeps order", Selection{4, 1}, 2, Selection{4, 1, 2}},
		{"remove middle", Selection{4, 1, 2}, 1, Selection{4, 2}},
		{"remove only", Selection{4}, 4, Selection{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := append(Selection{}, tc.in...)
			got := tc.in.Toggle(tc.id)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("toggle mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(before, tc.in); diff != "" {
				t.Fatalf("input mutated (-want +got):\n%s", diff)
			}
			if got.Contains(tc.id) == tc.in.Contains(tc.id) {
				t.Fatalf("toggle of %d did not flip membership", tc.id)
			}
		})
	}
}

func TestPayload_EmptyStateSentAsIs(t *testing.T) {
	p := initialState().Payload()
	if p.Items == nil || len(p.Items) != 0 {
		t.Fatalf("expected empty items, got %#v", p.Items)
	}
	if p.Name != "" || p.UF != "" || p.City != "" || p.Latitude != 0 {
		t.Fatalf("expected zero payload, got %+v", p)
	}
}
