// Package i18n holds the localized strings shown to editors: field labels,
// validation messages, list markers and the gen category tables.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Supported languages.
const (
	English = "en"
	Russian = "ru"
)

// KeyServerError is shown in place of any internal failure.
const KeyServerError = "server_error"

var (
	supported = []language.Tag{language.English, language.Russian}
	matcher   = language.NewMatcher(supported)
)

// Category is an entry of the gen category table.
type Category struct {
	Name          string `yaml:"name"`
	Subcategories bool   `yaml:"subcategories"`
}

type locale struct {
	strings    map[string]string
	categories []Category
}

func (l *locale) clone() *locale {
	out := &locale{
		strings:    make(map[string]string, len(l.strings)),
		categories: append([]Category(nil), l.categories...),
	}
	for k, v := range l.strings {
		out.strings[k] = v
	}
	return out
}

// Catalog resolves message keys for one active language.
type Catalog struct {
	mu      sync.RWMutex
	lang    string
	dir     string
	base    map[string]*locale
	locales map[string]*locale
}

// MatchLanguage maps a language tag or Accept-Language value onto a
// supported language.
func MatchLanguage(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("empty language")
	}
	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil {
		return "", fmt.Errorf("parse language %q: %w", s, err)
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return "", fmt.Errorf("unsupported language %q", s)
	}
	base, _ := supported[index].Base()
	return base.String(), nil
}

// New loads the embedded catalogs, overlays any <lang>.yaml found in dir and
// selects lang as the active language.
func New(lang, dir string) (*Catalog, error) {
	matched, err := MatchLanguage(lang)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		lang:    matched,
		dir:     dir,
		base:    make(map[string]*locale),
		locales: make(map[string]*locale),
	}

	for _, name := range []string{English, Russian} {
		data, err := embedded.ReadFile("locales/" + name + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("read embedded locale %s: %w", name, err)
		}
		loc, err := parseLocale(data)
		if err != nil {
			return nil, fmt.Errorf("parse embedded locale %s: %w", name, err)
		}
		c.base[name] = loc
		c.locales[name] = loc
	}

	if dir != "" {
		for _, name := range []string{English, Russian} {
			if err := c.reload(name); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// MustNew is New for hard-coded arguments.
func MustNew(lang string) *Catalog {
	c, err := New(lang, "")
	if err != nil {
		panic(err)
	}
	return c
}

// Lang returns the active language.
func (c *Catalog) Lang() string {
	return c.lang
}

// Dir returns the override directory, if any.
func (c *Catalog) Dir() string {
	return c.dir
}

func (c *Catalog) active() *locale {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locales[c.lang]
}

// Has reports whether key exists in the active language.
func (c *Catalog) Has(key string) bool {
	_, ok := c.active().strings[key]
	return ok
}

// T returns the message for key. Unknown keys resolve to the server error.
func (c *Catalog) T(key string) string {
	loc := c.active()
	if msg, ok := loc.strings[key]; ok {
		return msg
	}
	return loc.strings[KeyServerError]
}

// Tf is T with {name} placeholders replaced from params.
func (c *Catalog) Tf(key string, params map[string]any) string {
	msg := c.T(key)
	for name, value := range params {
		msg = strings.ReplaceAll(msg, "{"+name+"}", fmt.Sprint(value))
	}
	return msg
}

// ServerError is the generic message for internal failures.
func (c *Catalog) ServerError() string {
	return c.T(KeyServerError)
}

// Categories returns the category table of the active language.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.active().categories...)
}

// Category looks up a category by exact name.
func (c *Catalog) Category(name string) (Category, bool) {
	for _, cat := range c.active().categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// reload re-reads <lang>.yaml from the override directory on top of the
// embedded catalog. A missing file restores the embedded one.
func (c *Catalog) reload(lang string) error {
	base, ok := c.base[lang]
	if !ok {
		return fmt.Errorf("unsupported language %q", lang)
	}

	loc := base
	path := filepath.Join(c.dir, lang+".yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		override, err := parseLocale(data)
		if err != nil {
			return fmt.Errorf("parse locale %s: %w", path, err)
		}
		loc = base.clone()
		for k, v := range override.strings {
			loc.strings[k] = v
		}
		if len(override.categories) > 0 {
			loc.categories = override.categories
		}
	case os.IsNotExist(err):
	default:
		return fmt.Errorf("read locale %s: %w", path, err)
	}

	c.mu.Lock()
	c.locales[lang] = loc
	c.mu.Unlock()
	return nil
}

func parseLocale(data []byte) (*locale, error) {
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}

	var tables struct {
		Categories []Category `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, err
	}

	loc := &locale{strings: make(map[string]string), categories: tables.Categories}
	delete(tree, "categories")
	flatten("", tree, loc.strings)
	return loc, nil
}

func flatten(prefix string, node map[string]interface{}, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch value := v.(type) {
		case map[string]interface{}:
			flatten(key, value, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(value)
		}
	}
}
