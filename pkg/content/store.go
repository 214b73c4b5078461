package content

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/domain"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "en"

// document is the on-disk shape of one locale.
type document struct {
	Locale    string                                `yaml:"locale"`
	Hexagrams map[int]domain.LocalizedHexagramText `yaml:"hexagrams"`
}

// Store is a read-only, process-wide view of the localized hexagram texts.
// Safe for concurrent use.
type Store struct {
	texts         map[string]map[int]domain.LocalizedHexagramText
	locales       []string // loaded locales, default first
	supported     []string
	defaultLocale string
	matcher       language.Matcher
}

type options struct {
	defaultLocale string
	supported     []string
	logger        *slog.Logger
}

// Option configures loading.
type Option func(*options)

// WithDefaultLocale sets the fallback locale. It must be present in the loaded documents.
func WithDefaultLocale(locale string) Option {
	return func(o *options) {
		o.defaultLocale = locale
	}
}

// WithSupportedLocales declares the locales the application advertises.
// A declared locale without a document falls back to the default locale.
func WithSupportedLocales(locales ...string) Option {
	return func(o *options) {
		o.supported = locales
	}
}

// WithLogger configures a logger for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// LoadDefault loads the embedded edition.
func LoadDefault(opts ...Option) (*Store, error) {
	return Load(Embedded(), opts...)
}

// LoadDir loads every <locale>.yaml document found in dir.
func LoadDir(dir string, opts ...Option) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content dir %s is not a directory", dir)
	}
	return Load(os.DirFS(dir), opts...)
}

// Load reads every <locale>.yaml (or .yml) document at the root of fsys and
// validates it. Incomplete data fails with domain.ErrMissingTranslation.
func Load(fsys fs.FS, opts ...Option) (*Store, error) {
	o := options{defaultLocale: DefaultLocale, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list content documents: %w", err)
	}

	texts := make(map[string]map[int]domain.LocalizedHexagramText)
	var problems []error
	for _, entry := range entries {
		ext := path.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		doc, err := readDocument(fsys, entry.Name())
		if err != nil {
			return nil, err
		}
		locale := doc.Locale
		if locale == "" {
			locale = strings.TrimSuffix(entry.Name(), ext)
		}
		if _, dup := texts[locale]; dup {
			return nil, fmt.Errorf("locale %q defined twice", locale)
		}
		if err := validate(locale, doc); err != nil {
			problems = append(problems, err)
			continue
		}
		texts[locale] = index(locale, doc)
		o.logger.Debug("Loaded content document", "locale", locale, "file", entry.Name())
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	if _, ok := texts[o.defaultLocale]; !ok {
		return nil, fmt.Errorf("%w: default locale %q has no document", domain.ErrMissingTranslation, o.defaultLocale)
	}

	s := &Store{
		texts:         texts,
		defaultLocale: o.defaultLocale,
	}
	s.locales = append(s.locales, o.defaultLocale)
	others := make([]string, 0, len(texts)-1)
	for locale := range texts {
		if locale != o.defaultLocale {
			others = append(others, locale)
		}
	}
	sort.Strings(others)
	s.locales = append(s.locales, others...)

	tags := make([]language.Tag, 0, len(s.locales))
	for _, locale := range s.locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
		}
		tags = append(tags, tag)
	}
	s.matcher = language.NewMatcher(tags)

	s.supported = o.supported
	if len(s.supported) == 0 {
		s.supported = append([]string(nil), s.locales...)
	}
	for _, locale := range s.supported {
		if _, ok := texts[locale]; !ok {
			o.logger.Warn("Supported locale has no document, falling back", "locale", locale, "fallback", o.defaultLocale)
		}
	}
	return s, nil
}

func readDocument(fsys fs.FS, name string) (document, error) {
	var doc document
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return doc, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return doc, nil
}

func index(locale string, doc document) map[int]domain.LocalizedHexagramText {
	out := make(map[int]domain.LocalizedHexagramText, len(doc.Hexagrams))
	for n, rec := range doc.Hexagrams {
		rec.Number = n
		rec.Locale = locale
		out[n] = rec
	}
	return out
}

// validate checks that every hexagram 1..64 carries a complete record.
func validate(locale string, doc document) error {
	var errs []error
	missing := func(n int, what string) {
		errs = append(errs, fmt.Errorf("%w: locale %s: hexagram %d: %s", domain.ErrMissingTranslation, locale, n, what))
	}
	for n := range doc.Hexagrams {
		if n < 1 || n > 64 {
			errs = append(errs, fmt.Errorf("locale %s: unexpected hexagram number %d", locale, n))
		}
	}
	for n := 1; n <= 64; n++ {
		rec, ok := doc.Hexagrams[n]
		if !ok {
			missing(n, "record")
			continue
		}
		if rec.Name == "" {
			missing(n, "name")
		}
		if rec.Symbolic == "" {
			missing(n, "symbolic")
		}
		if rec.Judgment.Text == "" {
			missing(n, "judgment.text")
		}
		if rec.Judgment.Comments == "" {
			missing(n, "judgment.comments")
		}
		if rec.Image.Text == "" {
			missing(n, "image.text")
		}
		if rec.Image.Comments == "" {
			missing(n, "image.comments")
		}
		if len(rec.Lines) != domain.NumberOfTosses {
			errs = append(errs, fmt.Errorf("%w: locale %s: hexagram %d: expected 6 lines, got %d", domain.ErrMissingTranslation, locale, n, len(rec.Lines)))
		}
		for line := 1; line <= domain.NumberOfTosses; line++ {
			l, ok := rec.Lines[line]
			if !ok || l.Text == "" {
				missing(n, fmt.Sprintf("lines.%d.text", line))
			}
			if !ok || l.Comments == "" {
				missing(n, fmt.Sprintf("lines.%d.comments", line))
			}
		}
	}
	return errors.Join(errs...)
}

// Resolve returns the loaded locale that serves the requested one.
func (s *Store) Resolve(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return s.defaultLocale
	}
	if _, ok := s.texts[locale]; ok {
		return locale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return s.defaultLocale
	}
	_, idx, conf := s.matcher.Match(tag)
	if conf == language.No {
		return s.defaultLocale
	}
	return s.locales[idx]
}

// ResolveAcceptLanguage picks the loaded locale that best serves an
// Accept-Language header value.
func (s *Store) ResolveAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return s.defaultLocale
	}
	_, idx, conf := s.matcher.Match(tags...)
	if conf == language.No {
		return s.defaultLocale
	}
	return s.locales[idx]
}

// Text returns the full record of hexagram n in the requested locale.
func (s *Store) Text(n int, locale string) (domain.LocalizedHexagramText, error) {
	if n < 1 || n > 64 {
		return domain.LocalizedHexagramText{}, domain.NewInvalidInput("hexagram", n, "must be between 1 and 64")
	}
	resolved := s.Resolve(locale)
	rec, ok := s.texts[resolved][n]
	if !ok {
		rec, ok = s.texts[s.defaultLocale][n]
	}
	if !ok {
		return domain.LocalizedHexagramText{}, fmt.Errorf("%w: hexagram %d in %s", domain.ErrMissingTranslation, n, locale)
	}
	lines := make(map[int]domain.LineText, len(rec.Lines))
	for k, v := range rec.Lines {
		lines[k] = v
	}
	rec.Lines = lines
	return rec, nil
}

// LineText returns the text of line (1..6) of hexagram n.
func (s *Store) LineText(n, line int, locale string) (domain.LineText, error) {
	if line < 1 || line > domain.NumberOfTosses {
		return domain.LineText{}, domain.NewInvalidInput("line", line, "must be between 1 and 6")
	}
	rec, err := s.Text(n, locale)
	if err != nil {
		return domain.LineText{}, err
	}
	l, ok := rec.Line(line)
	if !ok {
		return domain.LineText{}, fmt.Errorf("%w: hexagram %d line %d in %s", domain.ErrMissingTranslation, n, line, rec.Locale)
	}
	return l, nil
}

// Default returns the fallback locale.
func (s *Store) Default() string {
	return s.defaultLocale
}

// Locales returns the loaded locales, default first.
func (s *Store) Locales() []string {
	return append([]string(nil), s.locales...)
}

// Supported returns the declared locales.
func (s *Store) Supported() []string {
	return append([]string(nil), s.supported...)
}
