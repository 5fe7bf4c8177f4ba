package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/recipebook/recipebook/errors"
	"github.com/recipebook/recipebook/ingredients"
	"github.com/recipebook/recipebook/internal/util"
	"github.com/recipebook/recipebook/logger"
)

// Level is a recipe's difficulty.
type Level int

const (
	LevelEasy    Level = 1
	LevelNormal  Level = 2
	LevelHard    Level = 3
	LevelExtreme Level = 4
)

var levelNames = map[Level]string{
	LevelEasy:    "easy",
	LevelNormal:  "normal",
	LevelHard:    "hard",
	LevelExtreme: "extreme",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether l is one of the four levels.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// ParseLevel accepts a level name or its number.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for level, name := range levelNames {
		if s == name || (len(s) == 1 && s[0] == byte('0'+level)) {
			return level, nil
		}
	}
	return 0, errors.NewInvalidRequestError("unknown level %q (want easy, normal, hard or extreme)", s)
}

// State is a recipe's moderation state.
type State string

const (
	StatePublished State = "PUB"
	StateModerated State = "MOD"
	StateRejected  State = "REJ"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StatePublished, StateModerated, StateRejected:
		return true
	}
	return false
}

// ParseState accepts a state code in any case.
func ParseState(s string) (State, error) {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", errors.NewInvalidRequestError("unknown state %q (want PUB, MOD or REJ)", s)
	}
	return st, nil
}

// Recipe is a stored recipe header. Its ingredient list is managed through
// FetchAssociations and Apply.
type Recipe struct {
	ID             ingredients.RecipeID `json:"id" yaml:"id"`
	Name           string               `json:"name" yaml:"name"`
	NormalizedName string               `json:"normalized_name" yaml:"normalized_name"`
	Level          Level                `json:"level" yaml:"level"`
	CookTime       int                  `json:"cook_time" yaml:"cook_time"` // minutes
	State          State                `json:"state" yaml:"state"`
	Version        int64                `json:"version" yaml:"version"`
	CreatedAt      time.Time            `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" yaml:"updated_at"`
}

// NewRecipe describes a recipe to create. A zero Level means LevelNormal and
// an empty State means StateModerated.
type NewRecipe struct {
	Name     string
	Level    Level
	CookTime int
	State    State
}

func (n *NewRecipe) normalize() error {
	n.Name = strings.TrimSpace(n.Name)
	if n.Name == "" {
		return errors.NewInvalidRequestError("recipe name is required")
	}
	if n.Level == 0 {
		n.Level = LevelNormal
	}
	if !n.Level.Valid() {
		return errors.NewInvalidRequestError("level %d out of range 1..4", n.Level)
	}
	if n.CookTime < 0 {
		return errors.NewInvalidRequestError("cook time %d must not be negative", n.CookTime)
	}
	if n.State == "" {
		n.State = StateModerated
	}
	if !n.State.Valid() {
		return errors.NewInvalidRequestError("unknown state %q", n.State)
	}
	return nil
}

// CreateRecipe stores a new recipe with an empty ingredient list at version 0.
func (s *Store) CreateRecipe(ctx context.Context, in NewRecipe) (Recipe, error) {
	if err := in.normalize(); err != nil {
		return Recipe{}, err
	}

	var id int64
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO recipes (name, normalized_name, level, cook_time, state)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`),
		in.Name, util.NormalizeName(in.Name), int(in.Level), in.CookTime, string(in.State)).Scan(&id)
	if err != nil {
		return Recipe{}, wrapf(err, "failed to create recipe %q", in.Name)
	}

	s.logger.Debugw("Created recipe", logger.FieldRecipeID, id, "name", in.Name)
	return s.GetRecipe(ctx, ingredients.RecipeID(id))
}

const recipeColumns = `id, name, normalized_name, level, cook_time, state, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecipe(row rowScanner) (Recipe, error) {
	var (
		r     Recipe
		id    int64
		level int
		state string
	)
	if err := row.Scan(&id, &r.Name, &r.NormalizedName, &level, &r.CookTime, &state,
		&r.Version, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return Recipe{}, err
	}
	r.ID = ingredients.RecipeID(id)
	r.Level = Level(level)
	r.State = State(state)
	return r, nil
}

// GetRecipe returns one recipe header.
func (s *Store) GetRecipe(ctx context.Context, id ingredients.RecipeID) (Recipe, error) {
	r, err := scanRecipe(s.db.QueryRowContext(ctx,
		s.q(`SELECT `+recipeColumns+` FROM recipes WHERE id = ?`), int64(id)))
	if err == sql.ErrNoRows {
		return Recipe{}, errors.NewNotFoundError("recipe %d", id)
	}
	if err != nil {
		return Recipe{}, wrapf(err, "failed to get recipe %d", id)
	}
	return r, nil
}

// ListRecipes returns all recipes, most recently updated first.
func (s *Store) ListRecipes(ctx context.Context) ([]Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recipeColumns+` FROM recipes ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, wrapf(err, "failed to list recipes")
	}
	defer rows.Close()

	var out []Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan recipe")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRecipe removes a recipe and its ingredient list.
func (s *Store) DeleteRecipe(ctx context.Context, id ingredients.RecipeID) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM recipes WHERE id = ?`), int64(id))
	if err != nil {
		return wrapf(err, "failed to delete recipe %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.NewNotFoundError("recipe %d", id)
	}

	s.logger.Debugw("Deleted recipe", logger.FieldRecipeID, id)
	return nil
}
