package collection

import (
	"fmt"
	"os"
	"strings"
)

// Macro is a TeX shorthand expanded in card text before rendering.
type Macro struct {
	Name       string
	Definition string
}

// LoadMacros reads an optional macros.tex file: one "name definition" pair
// per line, '%' lines are comments. A missing file means no macros.
func LoadMacros(path string) ([]Macro, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading macros: %w", err)
	}

	var macros []Macro
	for _, line := range strings.Split(string(content), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "%") {
			continue
		}
		name, definition, ok := strings.Cut(line, " ")
		if !ok || name == "" {
			continue
		}
		macros = append(macros, Macro{Name: name, Definition: definition})
	}
	return macros, nil
}

// ApplyMacros expands every macro occurrence in the text.
func ApplyMacros(text string, macros []Macro) string {
	for _, m := range macros {
		text = strings.ReplaceAll(text, m.Name, m.Definition)
	}
	return text
}
