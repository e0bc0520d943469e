package annotation

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/vvakame/annogql/directive"
)

// DecodeArguments projects the directive arguments by name onto out, a pointer to a struct
// using `mapstructure` tags. Arguments without a matching field are kept by a
// `mapstructure:",remain"` map field when out has one.
func DecodeArguments(info *directive.Info, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: false,
		ZeroFields:  true,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(info.Arguments.Map()); err != nil {
		return fmt.Errorf("@%s arguments: %w", info.Tag, err)
	}

	return nil
}
