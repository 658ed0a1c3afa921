package services

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// decodePage accepts a bare array, a {results, count, next, previous}
// envelope, or a {data: [...], total} wrapper.
func decodePage[T any](body []byte) (Page[T], error) {
	var page Page[T]
	if !gjson.ValidBytes(body) {
		return page, fmt.Errorf("decode page: invalid json")
	}
	root := gjson.ParseBytes(body)

	var items gjson.Result
	switch {
	case root.IsArray():
		items = root
	case root.Get("results").IsArray():
		items = root.Get("results")
		page.Count = root.Get("count").Int()
		page.Next = root.Get("next").String()
		page.Previous = root.Get("previous").String()
	case root.Get("data").IsArray():
		items = root.Get("data")
		page.Count = root.Get("total").Int()
	case root.Get("data.results").IsArray():
		return decodePage[T]([]byte(root.Get("data").Raw))
	default:
		return page, fmt.Errorf("decode page: unrecognised list shape")
	}

	if err := json.Unmarshal([]byte(items.Raw), &page.Items); err != nil {
		return page, fmt.Errorf("decode page: %w", err)
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	if page.Count == 0 {
		page.Count = int64(len(page.Items))
	}
	return page, nil
}

// decodeData unwraps {data: {...}} when present and decodes the object otherwise.
func decodeData[T any](body []byte) (*T, error) {
	raw := body
	if r := gjson.GetBytes(body, "data"); r.Exists() && (r.IsObject() || r.IsArray()) {
		raw = []byte(r.Raw)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
