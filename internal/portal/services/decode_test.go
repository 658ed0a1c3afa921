package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestDecodePageShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		items int
		count int64
		next  string
	}{
		{"bare array", `[{"id":1},{"id":2}]`, 2, 2, ""},
		{"envelope", `{"results":[{"id":1}],"count":40,"next":"/x?page=2","previous":null}`, 1, 40, "/x?page=2"},
		{"data with total", `{"data":[{"id":1},{"id":2},{"id":3}],"total":9,"page":1,"limit":3,"total_pages":3}`, 3, 9, ""},
		{"nested envelope", `{"data":{"results":[{"id":7}],"count":1}}`, 1, 1, ""},
		{"empty envelope", `{"results":[],"count":0}`, 0, 0, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, err := decodePage[item]([]byte(tc.body))
			require.NoError(t, err)
			assert.Len(t, page.Items, tc.items)
			assert.NotNil(t, page.Items)
			assert.Equal(t, tc.count, page.Count)
			assert.Equal(t, tc.next, page.Next)
			assert.Equal(t, tc.next != "", page.HasNext())
		})
	}
}

func TestDecodePageRejectsUnknownShape(t *testing.T) {
	_, err := decodePage[item]([]byte(`{"message":"ok"}`))
	assert.Error(t, err)

	_, err = decodePage[item]([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeData(t *testing.T) {
	wrapped, err := decodeData[item]([]byte(`{"data":{"id":3,"name":"Ikeja"},"message":"created"}`))
	require.NoError(t, err)
	assert.Equal(t, item{ID: 3, Name: "Ikeja"}, *wrapped)

	bare, err := decodeData[item]([]byte(`{"id":4,"name":"Eti-Osa"}`))
	require.NoError(t, err)
	assert.Equal(t, item{ID: 4, Name: "Eti-Osa"}, *bare)

	// A scalar data field belongs to the object itself.
	scalar, err := decodeData[struct {
		Data string `json:"data"`
	}]([]byte(`{"data":"raw"}`))
	require.NoError(t, err)
	assert.Equal(t, "raw", scalar.Data)
}
