package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Normalize(t *testing.T) {
	cases := []struct {
		name       string
		in         PageRequest
		wantLimit  int
		wantOffset int
	}{
		{"vacío", PageRequest{}, DefaultPageLimit, 0},
		{"negativos", PageRequest{Limit: -5, Offset: -1}, DefaultPageLimit, 0},
		{"sobre el tope", PageRequest{Limit: 500, Offset: 40}, MaxPageLimit, 40},
		{"válido", PageRequest{Limit: 10, Offset: 30}, 10, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.in
			p.Normalize()
			assert.Equal(t, tc.wantLimit, p.Limit)
			assert.Equal(t, tc.wantOffset, p.Offset)
		})
	}
}
