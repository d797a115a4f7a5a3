package mdc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go.jacobcolvin.com/marklog/mdc"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	values := map[string]any{
		"key1":      "value1",
		"key2":      "value2",
		"requestID": 42,
	}

	tcs := map[string]struct {
		format string
		values map[string]any
		want   string
	}{
		"present and missing keys": {
			format: "{key1} {key3}",
			values: values,
			want:   "key1=value1 key3=",
		},
		"non-string value": {
			format: "id: {requestID}",
			values: values,
			want:   "id: requestID=42",
		},
		"repeated key": {
			format: "{key1}|{key1}",
			values: values,
			want:   "key1=value1|key1=value1",
		},
		"blank key is ignored": {
			format: "{ } {key2}",
			values: values,
			want:   "{ } key2=value2",
		},
		"unbalanced closing brace": {
			format: "} {key1}",
			values: values,
			want:   "} key1=value1",
		},
		"no keys": {
			format: "plain text",
			values: values,
			want:   "",
		},
		"empty format": {
			format: "",
			values: values,
			want:   "",
		},
		"nil values": {
			format: "{key1}",
			values: nil,
			want:   "key1=",
		},
		"padded key": {
			format: "{ key1 }",
			values: values,
			want:   "key1=value1",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, mdc.Format(tc.format, tc.values))
		})
	}
}

func TestPairs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a=1 b=x", mdc.Pairs(map[string]any{"b": "x", "a": 1}))
	assert.Empty(t, mdc.Pairs(nil))
}
