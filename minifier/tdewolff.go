package minifier

// `minify` minifies CSS with github.com/tdewolff/minify.
// It doesn't generate source maps.
//
// Options:
//   precision: int - number of significant digits in numbers, 0 keeps all
//   keepCSS2: bool - don't use CSS3 syntax for shorter output

import (
	"errors"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/parse/v2"
)

func init() {
	Register("minify", func() Minifier {
		return TdewolffMinify(0)
	})
}

type TdewolffMinify int

func (f TdewolffMinify) Name() string { return "minify" }

func (f TdewolffMinify) Minify(s string, opts *Options) (*Result, error) {
	precision, err := intParam(opts.Params, "precision", 0)
	if err != nil {
		return nil, err
	}
	keepCSS2, err := boolParam(opts.Params, "keepCSS2", false)
	if err != nil {
		return nil, err
	}
	m := minify.New()
	m.Add("text/css", &css.Minifier{Precision: precision, KeepCSS2: keepCSS2})
	out, err := m.String("text/css", s)
	if err != nil {
		var pe *parse.Error
		if errors.As(err, &pe) {
			return nil, &ParseError{
				Filename: opts.Filename,
				Line:     pe.Line,
				Column:   pe.Column,
				Message:  pe.Message,
			}
		}
		return nil, err
	}
	return &Result{CSS: out}, nil
}
