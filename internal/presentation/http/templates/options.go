package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// OptionList renders a <select> whose option values are slugs.
func OptionList(data OptionListData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var b strings.Builder
		b.WriteString(`<select name="`)
		b.WriteString(templ.EscapeString(data.Name))
		b.WriteString(`">`)
		for _, option := range data.Options {
			b.WriteString(`<option value="`)
			b.WriteString(templ.EscapeString(option.Value))
			b.WriteString(`"`)
			if option.Value == data.Selected {
				b.WriteString(` selected`)
			}
			b.WriteString(`>`)
			b.WriteString(templ.EscapeString(option.Label))
			b.WriteString(`</option>`)
		}
		b.WriteString(`</select>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}
