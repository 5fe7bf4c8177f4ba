// Package submission reads and writes ingredient list files and watches
// them for edits.
//
// A file is YAML (JSON is accepted too, being a subset):
//
//	recipe: 3
//	version: 7
//	ingredients:
//	  - {id: 12, ingredient: 5, quantity: 200, unit: gram, name: Flour}
//	  - {id: x1, ingredient: 9, quantity: 2, unit: piece}
//
// Scalars are kept as written and validated by the ingredients package.
// name is informational and ignored on submit.
package submission

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/ingredients"
)

// Row is one ingredient line of a file.
type Row struct {
	ingredients.RawRow `yaml:",inline"`
	Name               string `yaml:"name,omitempty"`
}

// File is the on-disk form of a recipe's ingredient list.
type File struct {
	// Recipe optionally pins the file to a recipe.
	Recipe ingredients.RecipeID `yaml:"recipe,omitempty"`
	// Version is the recipe version the file was exported at.
	Version     int64 `yaml:"version,omitempty"`
	Ingredients []Row `yaml:"ingredients"`
}

// Rows returns the submission rows in file order.
func (f File) Rows() []ingredients.RawRow {
	rows := make([]ingredients.RawRow, len(f.Ingredients))
	for i, r := range f.Ingredients {
		rows[i] = r.RawRow
	}
	return rows
}

// NewFile renders a persisted set as a file. names maps ingredient
// references to display names and may be nil.
func NewFile(set ingredients.PersistedSet, names map[ingredients.IngredientRef]string) File {
	f := File{Recipe: set.RecipeID, Version: set.Version, Ingredients: []Row{}}
	for i, raw := range ingredients.RowsFromSet(set) {
		f.Ingredients = append(f.Ingredients, Row{
			RawRow: raw,
			Name:   names[set.Associations[i].Ingredient],
		})
	}
	return f
}

// Decode parses a file, rejecting unknown keys.
func Decode(r io.Reader) (File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return File{}, errors.NewInvalidRequestError("empty ingredient file")
		}
		return File{}, errors.Mark(errors.Wrap(err, "failed to parse ingredient file"), errors.ErrInvalidRequest)
	}
	return f, nil
}

// Load reads and parses the file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrapf(err, "failed to read %s", path)
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return File{}, errors.Wrapf(err, "in %s", path)
	}
	return f, nil
}

// Encode writes f as YAML.
func Encode(w io.Writer, f File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return errors.Wrap(err, "failed to encode ingredient file")
	}
	return errors.Wrap(enc.Close(), "failed to encode ingredient file")
}

// Save writes f to path, replacing any previous content.
func Save(path string, f File) error {
	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
