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
var embeddedLocales embed.FS

// Catalog holds flattened messages per locale. Keys are dotted paths such
// as errors.INVALID_CREDENTIALS.
type Catalog struct {
	base     language.Tag
	tags     []language.Tag
	matcher  language.Matcher
	builder  *catalog.Builder
	messages map[string]map[string]string
}

// NewCatalog loads the bundled locales with English as the base locale.
func NewCatalog() (*Catalog, error) {
	return LoadCatalog(embeddedLocales, "locales", language.English)
}

// LoadCatalog reads every <locale>.yaml file in dir. The base locale must be
// present; it answers keys the matched locale lacks.
func LoadCatalog(fsys fs.FS, dir string, base language.Tag) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales: %w", err)
	}
	cat := &Catalog{
		base:     base,
		builder:  catalog.NewBuilder(catalog.Fallback(base)),
		messages: map[string]map[string]string{},
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		tag, parseErr := language.Parse(strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml"))
		if parseErr != nil {
			return nil, fmt.Errorf("i18n: locale file %q: %w", name, parseErr)
		}
		raw, readErr := fs.ReadFile(fsys, path.Join(dir, name))
		if readErr != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, readErr)
		}
		if addErr := cat.AddYAML(tag, raw); addErr != nil {
			return nil, addErr
		}
	}
	if _, ok := cat.messages[base.String()]; !ok {
		return nil, fmt.Errorf("i18n: base locale %s has no messages", base)
	}
	return cat, nil
}

// AddYAML merges a nested YAML document into the messages of tag.
func (c *Catalog) AddYAML(tag language.Tag, raw []byte) error {
	doc := map[string]any{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("i18n: parse %s messages: %w", tag, err)
	}
	flat := map[string]string{}
	flatten("", doc, flat)
	for key, text := range flat {
		if err := c.Set(tag, key, text); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) Set(tag language.Tag, key string, text string) error {
	if err := c.builder.SetString(tag, key, text); err != nil {
		return fmt.Errorf("i18n: set %s %s: %w", tag, key, err)
	}
	id := tag.String()
	if _, ok := c.messages[id]; !ok {
		c.messages[id] = map[string]string{}
		c.rebuildMatcher(tag)
	}
	c.messages[id][key] = text
	return nil
}

func (c *Catalog) rebuildMatcher(added language.Tag) {
	others := make([]language.Tag, 0, len(c.tags)+1)
	for _, tag := range append(c.tags, added) {
		if tag.String() != c.base.String() {
			others = append(others, tag)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].String() < others[j].String() })
	c.tags = append([]language.Tag{c.base}, others...)
	c.matcher = language.NewMatcher(c.tags)
}

func (c *Catalog) Languages() []language.Tag {
	return append([]language.Tag(nil), c.tags...)
}

// Localizer returns a lookup bound to the closest supported locale. Unknown
// or unparsable locales resolve to the base locale.
func (c *Catalog) Localizer(locale string) *Localizer {
	tag := c.base
	if requested, err := language.Parse(strings.TrimSpace(locale)); err == nil && c.matcher != nil {
		if _, index, confidence := c.matcher.Match(requested); confidence != language.No && index < len(c.tags) {
			tag = c.tags[index]
		}
	}
	return &Localizer{
		catalog:     c,
		tag:         tag,
		printer:     message.NewPrinter(tag, message.Catalog(c.builder)),
		basePrinter: message.NewPrinter(c.base, message.Catalog(c.builder)),
	}
}

// Lookup answers from the base locale.
func (c *Catalog) Lookup(key string) (string, bool) {
	text, ok := c.messages[c.base.String()][key]
	return text, ok
}

type Localizer struct {
	catalog     *Catalog
	tag         language.Tag
	printer     *message.Printer
	basePrinter *message.Printer
}

func (l *Localizer) Tag() language.Tag {
	return l.tag
}

// Lookup returns the raw message for key in the bound locale, falling back
// to the base locale.
func (l *Localizer) Lookup(key string) (string, bool) {
	if text, ok := l.catalog.messages[l.tag.String()][key]; ok {
		return text, true
	}
	return l.catalog.Lookup(key)
}

// Format renders key with args using the locale's printer. Missing keys
// render as the key itself.
func (l *Localizer) Format(key string, args ...any) string {
	if _, ok := l.catalog.messages[l.tag.String()][key]; ok {
		return l.printer.Sprintf(key, args...)
	}
	if _, ok := l.catalog.Lookup(key); ok {
		return l.basePrinter.Sprintf(key, args...)
	}
	return key
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for key, value := range node {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		switch typed := value.(type) {
		case map[string]any:
			flatten(fullKey, typed, out)
		case string:
			out[fullKey] = typed
		case nil:
		default:
			out[fullKey] = fmt.Sprint(typed)
		}
	}
}
