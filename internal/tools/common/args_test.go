package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringArg(t *testing.T) {
	args := map[string]any{"zone": "  UTC ", "count": 3.0, "nothing": nil}

	v, err := StringArg(args, "zone")
	assert.NoError(t, err)
	assert.Equal(t, "UTC", v)

	v, err = StringArg(args, "missing")
	assert.NoError(t, err)
	assert.Empty(t, v)

	v, err = StringArg(args, "nothing")
	assert.NoError(t, err)
	assert.Empty(t, v)

	_, err = StringArg(args, "count")
	assert.EqualError(t, err, "count must be a string")
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{name: "absent", value: nil, want: 10},
		{name: "json number", value: 5.0, want: 5},
		{name: "int", value: 7, want: 7},
		{name: "fraction", value: 2.5, wantErr: true},
		{name: "string", value: "5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]any{}
			if tt.value != nil {
				args["max"] = tt.value
			}
			got, err := IntArg(args, "max", 10)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
