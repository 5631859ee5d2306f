package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValues(t *testing.T) {
	want := [][]string{
		{"Customer", "Product", "Qty"},
		{"Cafe Sushi", "Basil", "3"},
	}

	tests := []struct {
		name string
		text string
	}{
		{
			name: "bare values",
			text: `{"values": [["Customer","Product","Qty"],["Cafe Sushi","Basil",3]]}`,
		},
		{
			name: "data envelope",
			text: `{"data": {"values": [["Customer","Product","Qty"],["Cafe Sushi","Basil",3]]}}`,
		},
		{
			name: "value ranges",
			text: `{"valueRanges": [{"range": "Orders!C1:G2", "values": [["Customer","Product","Qty"],["Cafe Sushi","Basil",3]]}]}`,
		},
		{
			name: "snake case value ranges",
			text: `{"data": {"value_ranges": [{"values": [["Customer","Product","Qty"],["Cafe Sushi","Basil",3]]}]}}`,
		},
		{
			name: "response data envelope",
			text: `{"response_data": {"valueRanges": [{"values": [["Customer","Product","Qty"],["Cafe Sushi","Basil",3]]}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeValues(tt.text)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecodeValues_Errors(t *testing.T) {
	t.Run("empty text is an empty grid", func(t *testing.T) {
		got, err := decodeValues("   ")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("non-JSON", func(t *testing.T) {
		_, err := decodeValues("rate limited, try again")
		assert.Error(t, err)
	})

	t.Run("no grid anywhere", func(t *testing.T) {
		_, err := decodeValues(`{"data": {"status": "ok"}}`)
		assert.Error(t, err)
	})
}

func TestStringifyCell(t *testing.T) {
	assert.Equal(t, "Basil", stringifyCell("Basil"))
	assert.Equal(t, "3", stringifyCell(float64(3)))
	assert.Equal(t, "2.5", stringifyCell(2.5))
	assert.Equal(t, "true", stringifyCell(true))
	assert.Equal(t, "", stringifyCell(nil))
}
