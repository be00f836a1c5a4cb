package nicknames

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEquivalent(t *testing.T) {
	idx := DefaultIndex()

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{name: "classic nickname", a: "Bob", b: "Robert", want: true},
		{name: "reverse direction", a: "Robert", b: "Bob", want: true},
		{name: "case insensitive", a: "BOB", b: "robert", want: true},
		{name: "identical names", a: "Zebediah", b: "Zebediah", want: true},
		{name: "identical unknown names", a: "Xanthe", b: "Xanthe", want: true},
		{name: "unrelated names", a: "Robert", b: "Roberta", want: false},
		{name: "transitive through shared nickname", a: "Steven", b: "Stephen", want: true},
		{name: "margaret group", a: "Peggy", b: "Margaret", want: true},
		{name: "empty side", a: "", b: "Robert", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Equivalent(tt.a, tt.b))
		})
	}
}

func TestNewIndexMergesOverlappingGroups(t *testing.T) {
	idx := NewIndex([][]string{
		{"alpha", "beta"},
		{"beta", "gamma"},
		{"delta", "epsilon"},
	})

	assert.True(t, idx.Equivalent("alpha", "gamma"))
	assert.True(t, idx.Equivalent("delta", "epsilon"))
	assert.False(t, idx.Equivalent("alpha", "delta"))
}
