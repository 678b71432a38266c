package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okian/squad/internal/domain/model"
	"golang.org/x/sync/errgroup"
)

// Default file names inside a dataset directory.
const (
	GoalkeepersFile     = "goalkeepers.csv"
	DefenseFile         = "defense.csv"
	AttackFile          = "attack.csv"
	DefenseCriteriaFile = "defense_criteria.txt"
	AttackCriteriaFile  = "attack_criteria.txt"
)

// Paths locates the five files of a dataset.
type Paths struct {
	Goalkeepers     string
	Defense         string
	Attack          string
	DefenseCriteria string
	AttackCriteria  string
}

// DirPaths returns the default layout under dir.
func DirPaths(dir string) Paths {
	return Paths{
		Goalkeepers:     filepath.Join(dir, GoalkeepersFile),
		Defense:         filepath.Join(dir, DefenseFile),
		Attack:          filepath.Join(dir, AttackFile),
		DefenseCriteria: filepath.Join(dir, DefenseCriteriaFile),
		AttackCriteria:  filepath.Join(dir, AttackCriteriaFile),
	}
}

// Raw is an unvalidated dataset as read from disk.
type Raw struct {
	Goalkeepers     []model.Goalkeeper
	Defense         []model.PlayerRecord
	Attack          []model.PlayerRecord
	DefenseCriteria map[string]float64
	AttackCriteria  map[string]float64
}

// Load reads all files of a dataset concurrently.
func Load(ctx context.Context, p Paths) (Raw, error) {
	var raw Raw
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return readFile(p.Goalkeepers, func(f *os.File) (err error) {
			raw.Goalkeepers, err = ReadGoalkeepers(f)
			return err
		})
	})
	g.Go(func() error {
		return readFile(p.Defense, func(f *os.File) (err error) {
			raw.Defense, err = ReadPlayers(f)
			return err
		})
	})
	g.Go(func() error {
		return readFile(p.Attack, func(f *os.File) (err error) {
			raw.Attack, err = ReadPlayers(f)
			return err
		})
	})
	g.Go(func() (err error) {
		raw.DefenseCriteria, err = LoadCriteria(p.DefenseCriteria)
		if err != nil {
			return fmt.Errorf("%s: %w", p.DefenseCriteria, err)
		}
		return nil
	})
	g.Go(func() (err error) {
		raw.AttackCriteria, err = LoadCriteria(p.AttackCriteria)
		if err != nil {
			return fmt.Errorf("%s: %w", p.AttackCriteria, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Raw{}, err
	}
	return raw, nil
}

func readFile(path string, fn func(*os.File) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Write stores a dataset in the default layout under dir. Criteria are
// written in the ability:weight line format.
func Write(dir string, raw Raw, fieldAbilities, goalkeeperAbilities []string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	p := DirPaths(dir)
	steps := []struct {
		path  string
		write func(*os.File) error
	}{
		{p.Goalkeepers, func(f *os.File) error { return WriteGoalkeepers(f, raw.Goalkeepers, goalkeeperAbilities) }},
		{p.Defense, func(f *os.File) error { return WritePlayers(f, raw.Defense, fieldAbilities) }},
		{p.Attack, func(f *os.File) error { return WritePlayers(f, raw.Attack, fieldAbilities) }},
		{p.DefenseCriteria, func(f *os.File) error { return WriteCriteria(f, raw.DefenseCriteria) }},
		{p.AttackCriteria, func(f *os.File) error { return WriteCriteria(f, raw.AttackCriteria) }},
	}
	for _, s := range steps {
		f, err := os.Create(s.path)
		if err != nil {
			return err
		}
		werr := s.write(f)
		cerr := f.Close()
		if werr != nil {
			return fmt.Errorf("%s: %w", s.path, werr)
		}
		if cerr != nil {
			return cerr
		}
	}
	return nil
}
