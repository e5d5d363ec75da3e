package post

import "log/slog"

// DefaultImagesURLPrefix is the public path under which post images are served.
const DefaultImagesURLPrefix = "/images/posts"

type loadOptions struct {
	logger         *slog.Logger
	urlPrefix      string
	defaultLocale  string
	locales        []string
	directoryOrder bool
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithLogger sets the logger used for load warnings.
func WithLogger(l *slog.Logger) LoadOption {
	return func(o *loadOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithImagesURLPrefix sets the public path prefix for thumbnail URLs.
func WithImagesURLPrefix(prefix string) LoadOption {
	return func(o *loadOptions) {
		if prefix != "" {
			o.urlPrefix = prefix
		}
	}
}

// WithLocales sets the locale of index.md files and the extra locales whose
// index.<locale>.md variants are loaded.
func WithLocales(defaultLocale string, extra ...string) LoadOption {
	return func(o *loadOptions) {
		o.defaultLocale = defaultLocale
		o.locales = nil
		for _, l := range extra {
			if l != "" && l != defaultLocale {
				o.locales = append(o.locales, l)
			}
		}
	}
}

// WithDirectoryOrder orders posts by directory name only, newest name first,
// ignoring publication dates. It exists for corpora whose ids carry a
// zero-padded date prefix.
func WithDirectoryOrder() LoadOption {
	return func(o *loadOptions) {
		o.directoryOrder = true
	}
}

func newLoadOptions(opts []LoadOption) *loadOptions {
	o := &loadOptions{
		logger:    slog.Default(),
		urlPrefix: DefaultImagesURLPrefix,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
