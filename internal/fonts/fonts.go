// Package fonts is the single source of typefaces for every renderer, so the browser preview,
// the in-process estimator and the native PDF export measure text with the same glyphs.
package fonts

import (
	"sort"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Default is the family used when a theme names none or an unknown one.
const Default = "Go"

// Family is a regular/bold pair of TrueType fonts.
type Family struct {
	Name    string
	Regular []byte
	Bold    []byte
}

var families = map[string]Family{
	"Go":        {Name: "Go", Regular: goregular.TTF, Bold: gobold.TTF},
	"Go Medium": {Name: "Go Medium", Regular: gomedium.TTF, Bold: gobold.TTF},
	"Go Mono":   {Name: "Go Mono", Regular: gomono.TTF, Bold: gomonobold.TTF},
}

// Lookup returns the family registered under name.
func Lookup(name string) (Family, bool) {
	f, ok := families[name]
	return f, ok
}

// Resolve returns the family registered under name, or the default family.
func Resolve(name string) Family {
	if f, ok := families[name]; ok {
		return f
	}
	return families[Default]
}

// Names lists the registered family names in sorted order.
func Names() []string {
	names := make([]string, 0, len(families))
	for n := range families {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var (
	parsedMu sync.Mutex
	parsed   = map[string]*opentype.Font{}
)

// Parse returns the parsed regular or bold face of f. Parsed fonts are cached for the process.
func (f Family) Parse(bold bool) (*opentype.Font, error) {
	key := f.Name + "/regular"
	data := f.Regular
	if bold {
		key = f.Name + "/bold"
		data = f.Bold
	}
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if fnt, ok := parsed[key]; ok {
		return fnt, nil
	}
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	parsed[key] = fnt
	return fnt, nil
}
