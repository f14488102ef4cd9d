package utils

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// DecodeRow fills output from a loosely typed row map (as returned by the
// datastore) using the `json` tags of output. Driver-specific scalar types
// ([]byte strings, numeric strings, time values) are coerced.
func DecodeRow[T any](row map[string]any, output *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           output,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			bytesToStringHook,
			decimalHook,
			timeHook,
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(row)
}

func bytesToStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if b, ok := data.([]byte); ok && to.Kind() != reflect.Slice {
		return string(b), nil
	}
	return data, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func decimalHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	}
	return data, nil
}

var timeType = reflect.TypeOf(time.Time{})

func timeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case time.Time:
		return v, nil
	case string:
		return time.Parse(time.RFC3339Nano, v)
	}
	return data, nil
}
