package plugin

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeConfig decodes a plugin's option map into out, a pointer to a struct
// with mapstructure tags. Values are weakly typed, so "100" decodes into an
// int and "250ms" into a time.Duration. Unknown keys are an error.
func DecodeConfig(cfg map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}
