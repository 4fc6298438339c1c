// Package wordfilter provides a middleware plugin that rejects text
// containing blocked words. Register it with a blank import:
//
//	_ "github.com/ferro-labs/plugdir/internal/plugins/wordfilter"
package wordfilter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ferro-labs/plugdir/plugin"
)

// FactoryName is the catalog name of the plugin.
const FactoryName = "word-filter"

// ErrBlocked is returned by Check when the text contains a blocked word.
var ErrBlocked = errors.New("blocked word detected")

func init() {
	plugin.RegisterFactory(FactoryName, New)
}

// New creates an unconfigured WordFilter.
func New(_ *plugin.Vars) (plugin.Plugin, error) {
	return &WordFilter{name: FactoryName}, nil
}

// WordFilter blocks text containing configurable words or phrases.
type WordFilter struct {
	name          string
	blockedWords  []string
	caseSensitive bool
}

// Info returns the plugin description. The name can be overridden with the
// "name" option so one factory can back several modules.
func (w *WordFilter) Info() plugin.Info {
	return plugin.Info{
		Name:        w.name,
		Description: "rejects text containing blocked words",
		Version:     "1.0.0",
	}
}

// Init reads the options:
//   - name (string)
//   - blocked_words (list of strings, or a comma-separated string)
//   - case_sensitive (bool, default false)
func (w *WordFilter) Init(config map[string]interface{}) error {
	if v, ok := config["name"]; ok {
		name, ok := v.(string)
		if !ok || name == "" {
			return fmt.Errorf("word-filter: name must be a non-empty string")
		}
		w.name = name
	}
	if words, ok := config["blocked_words"]; ok {
		switch list := words.(type) {
		case []interface{}:
			for _, word := range list {
				if s, ok := word.(string); ok && s != "" {
					w.blockedWords = append(w.blockedWords, s)
				}
			}
		case []string:
			w.blockedWords = append(w.blockedWords, list...)
		case string:
			for _, s := range strings.Split(list, ",") {
				if s = strings.TrimSpace(s); s != "" {
					w.blockedWords = append(w.blockedWords, s)
				}
			}
		default:
			return fmt.Errorf("word-filter: blocked_words must be a list of strings")
		}
	}
	if v, ok := config["case_sensitive"]; ok {
		cs, ok := v.(bool)
		if !ok {
			return fmt.Errorf("word-filter: case_sensitive must be a boolean")
		}
		w.caseSensitive = cs
	}
	return nil
}

// BlockedWords returns the configured words.
func (w *WordFilter) BlockedWords() []string {
	return append([]string(nil), w.blockedWords...)
}

// Check returns an error wrapping ErrBlocked if text contains a blocked word.
func (w *WordFilter) Check(text string) error {
	if !w.caseSensitive {
		text = strings.ToLower(text)
	}
	for _, word := range w.blockedWords {
		check := word
		if !w.caseSensitive {
			check = strings.ToLower(check)
		}
		if strings.Contains(text, check) {
			return fmt.Errorf("%w: %s", ErrBlocked, word)
		}
	}
	return nil
}
