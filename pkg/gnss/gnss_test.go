package gnss

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystem_String(t *testing.T) {
	assert.Equal(t, "GPS", GPS.String())
	assert.Equal(t, "G", GPS.Abbr())
	assert.Equal(t, "BDS", BeiDou.String())
	assert.Equal(t, "C", BeiDou.Abbr())
}

func TestParseSystem(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    System
		wantErr bool
	}{
		{name: "full name", in: "Galileo", want: Galileo},
		{name: "abbr", in: "E", want: Galileo},
		{name: "bds abbr", in: "C", want: BeiDou},
		{name: "unknown", in: "XYZ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSystem(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
