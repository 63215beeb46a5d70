package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixEnd(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		want   []byte
	}{
		{"single byte", []byte{0x01}, []byte{0x02}},
		{"carry", []byte{0x01, 0xff}, []byte{0x02}},
		{"plain", []byte{0x02, 0x10, 0x20}, []byte{0x02, 0x10, 0x21}},
		{"all ff", []byte{0xff, 0xff}, nil},
		{"empty", []byte{}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PrefixEnd(tc.prefix))
		})
	}
}

func TestPrefixEndDoesNotMutate(t *testing.T) {
	prefix := []byte{0x03, 0x04}
	_ = PrefixEnd(prefix)
	assert.Equal(t, []byte{0x03, 0x04}, prefix)
}
