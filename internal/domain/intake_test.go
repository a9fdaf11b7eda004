package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"true", true, true},
		{"false", false, false},
		{"empty string", "", false},
		{"text", "6个月前", true},
		{"zero float", float64(0), false},
		{"float", 2.0, true},
		{"zero int", 0, false},
		{"json number", json.Number("3"), true},
		{"json zero", json.Number("0"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.v))
		})
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want int64
	}{
		{"absent", nil, 0},
		{"blank", "  ", 0},
		{"string", "3", 3},
		{"padded", " 12 ", 12},
		{"leading digits", "2颗", 2},
		{"garbage", "abc", 0},
		{"negative string", "-4", 0},
		{"float", 2.7, 2},
		{"negative float", -3.0, 0},
		{"int", 5, 5},
		{"bool", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Count(tt.v).IntPart())
		})
	}
}
