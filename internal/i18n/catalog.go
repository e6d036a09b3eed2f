// Package i18n holds the (locale, key) string catalog used to render intake
// steps. Catalogs are embedded YAML files, one per locale.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embeddedFS embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog resolves localized strings with fallback to a default locale.
type Catalog struct {
	defaultLocale string
	messages      map[string]map[string]string
	printers      map[string]*message.Printer
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded(defaultLocale string) (*Catalog, error) {
	return LoadFromFS(embeddedFS, defaultLocale)
}

// LoadFromFS loads every locales/*.yaml file from fsys. Each file's locale
// must match its file name and the default locale must be present.
func LoadFromFS(fsys fs.FS, defaultLocale string) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	var tags []language.Tag
	builder := catalog.NewBuilder()
	c := &Catalog{
		messages: make(map[string]map[string]string, len(paths)),
		printers: make(map[string]*message.Printer, len(paths)),
	}

	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}

		tag, err := language.Parse(strings.TrimSpace(file.Locale))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: invalid locale %q: %w", p, file.Locale, err)
		}
		code := tag.String()
		if want := strings.TrimSuffix(path.Base(p), path.Ext(p)); code != want {
			return nil, fmt.Errorf("catalog %s: locale %q must match file name %q", p, code, want)
		}
		if len(file.Messages) == 0 {
			return nil, fmt.Errorf("catalog %s: messages map is required", p)
		}

		messages := make(map[string]string, len(file.Messages))
		for key, value := range file.Messages {
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("catalog %s: message key cannot be blank", p)
			}
			if err := builder.SetString(tag, key, value); err != nil {
				return nil, fmt.Errorf("catalog %s: register %q: %w", p, key, err)
			}
			messages[key] = value
		}
		c.messages[code] = messages
		tags = append(tags, tag)
	}
	for _, tag := range tags {
		c.printers[tag.String()] = message.NewPrinter(tag, message.Catalog(builder))
	}

	defaultTag, err := language.Parse(strings.TrimSpace(defaultLocale))
	if err != nil {
		return nil, fmt.Errorf("invalid default locale %q: %w", defaultLocale, err)
	}
	c.defaultLocale = defaultTag.String()
	if _, ok := c.messages[c.defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %s is not defined in catalogs", c.defaultLocale)
	}
	return c, nil
}

// Text returns the message for key in locale, formatted with args. Missing
// keys fall back to the default locale and then to the key itself.
func (c *Catalog) Text(locale, key string, args ...any) string {
	code := c.lookup(locale, key)
	if code == "" {
		return key
	}
	return c.printers[code].Sprintf(key, args...)
}

// Has reports whether locale defines key without fallback.
func (c *Catalog) Has(locale, key string) bool {
	_, ok := c.messages[canonical(locale)][key]
	return ok
}

// Locales returns the loaded locale codes, sorted.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.messages))
	for code := range c.messages {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// DefaultLocale returns the fallback locale code.
func (c *Catalog) DefaultLocale() string { return c.defaultLocale }

// MissingKeys lists keys defined by the default locale but absent from locale.
func (c *Catalog) MissingKeys(locale string) []string {
	target := c.messages[canonical(locale)]
	var missing []string
	for key := range c.messages[c.defaultLocale] {
		if _, ok := target[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func (c *Catalog) lookup(locale, key string) string {
	code := canonical(locale)
	if _, ok := c.messages[code][key]; ok {
		return code
	}
	if _, ok := c.messages[c.defaultLocale][key]; ok {
		return c.defaultLocale
	}
	return ""
}

func canonical(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return locale
	}
	return tag.String()
}
