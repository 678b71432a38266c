// Package dataset reads and writes player pools and criteria files.
//
// Field players use the header id,position,rating,club,nationality followed
// by one column per ability. Goalkeepers use id,rating followed by their
// ability columns, whose order is kept.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/squad/internal/domain/model"
)

// Fixed field player columns.
var playerColumns = []string{"id", "position", "rating", "club", "nationality"}

var goalkeeperColumns = []string{"id", "rating"}

type header struct {
	index     map[string]int
	abilities []string
	offsets   []int
}

func readHeader(r *csv.Reader, fixed []string) (header, error) {
	row, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return header{}, fmt.Errorf("%w: empty file", ErrMalformed)
		}
		return header{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	h := header{index: make(map[string]int, len(row))}
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(name))
		h.index[name] = i
		if !slices.Contains(fixed, name) {
			h.abilities = append(h.abilities, name)
			h.offsets = append(h.offsets, i)
		}
	}
	for _, col := range fixed {
		if _, ok := h.index[col]; !ok {
			return header{}, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return h, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return cr
}

func parseFloat(line int, col, v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d column %s: %w", ErrMalformed, line, col, err)
	}
	return f, nil
}

func parseID(line int, v string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d column id: %w", ErrMalformed, line, err)
	}
	return id, nil
}

// ReadPlayers parses a field player CSV. Empty ability cells are treated
// as missing, not zero.
func ReadPlayers(r io.Reader) ([]model.PlayerRecord, error) {
	cr := newReader(r)
	h, err := readHeader(cr, playerColumns)
	if err != nil {
		return nil, err
	}
	var out []model.PlayerRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		rec := model.PlayerRecord{
			Position:    strings.TrimSpace(row[h.index["position"]]),
			Club:        strings.TrimSpace(row[h.index["club"]]),
			Nationality: strings.TrimSpace(row[h.index["nationality"]]),
			Abilities:   make(map[string]float64, len(h.abilities)),
		}
		if rec.ID, err = parseID(line, row[h.index["id"]]); err != nil {
			return nil, err
		}
		if rec.Rating, err = parseFloat(line, "rating", row[h.index["rating"]]); err != nil {
			return nil, err
		}
		for i, name := range h.abilities {
			cell := strings.TrimSpace(row[h.offsets[i]])
			if cell == "" {
				continue
			}
			if rec.Abilities[name], err = parseFloat(line, name, cell); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
}

// ReadGoalkeepers parses a goalkeeper CSV and prices each keeper from its
// rating. Empty ability cells read as 0.
func ReadGoalkeepers(r io.Reader) ([]model.Goalkeeper, error) {
	cr := newReader(r)
	h, err := readHeader(cr, goalkeeperColumns)
	if err != nil {
		return nil, err
	}
	var out []model.Goalkeeper
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		gk := model.Goalkeeper{Abilities: make([]float64, len(h.abilities))}
		if gk.ID, err = parseID(line, row[h.index["id"]]); err != nil {
			return nil, err
		}
		if gk.Rating, err = parseFloat(line, "rating", row[h.index["rating"]]); err != nil {
			return nil, err
		}
		gk.Salary = model.Salary(gk.Rating)
		for i, name := range h.abilities {
			cell := strings.TrimSpace(row[h.offsets[i]])
			if cell == "" {
				continue
			}
			if gk.Abilities[i], err = parseFloat(line, name, cell); err != nil {
				return nil, err
			}
		}
		out = append(out, gk)
	}
}

// WritePlayers writes records with the given ability columns. Abilities a
// record lacks are written as empty cells.
func WritePlayers(w io.Writer, records []model.PlayerRecord, abilities []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(slices.Clone(playerColumns), abilities...)); err != nil {
		return err
	}
	row := make([]string, len(playerColumns)+len(abilities))
	for _, r := range records {
		row[0] = strconv.FormatInt(r.ID, 10)
		row[1] = r.Position
		row[2] = strconv.FormatFloat(r.Rating, 'f', -1, 64)
		row[3] = r.Club
		row[4] = r.Nationality
		for i, a := range abilities {
			row[len(playerColumns)+i] = ""
			if v, ok := r.Abilities[a]; ok {
				row[len(playerColumns)+i] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGoalkeepers writes goalkeepers; names label the ability columns.
func WriteGoalkeepers(w io.Writer, gks []model.Goalkeeper, names []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(slices.Clone(goalkeeperColumns), names...)); err != nil {
		return err
	}
	for _, gk := range gks {
		if len(gk.Abilities) != len(names) {
			return fmt.Errorf("%w: goalkeeper %d has %d abilities, want %d", ErrMalformed, gk.ID, len(gk.Abilities), len(names))
		}
		row := []string{strconv.FormatInt(gk.ID, 10), strconv.FormatFloat(gk.Rating, 'f', -1, 64)}
		for _, v := range gk.Abilities {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FillPositions gives every record without a position a random one from
// positions. The same seed always yields the same assignment.
func FillPositions(records []model.PlayerRecord, positions []string, seed uint64) int {
	if len(positions) == 0 {
		return 0
	}
	r := rand.New(rand.NewPCG(seed, seed))
	var filled int
	for i := range records {
		if records[i].Position != "" {
			continue
		}
		records[i].Position = positions[r.IntN(len(positions))]
		filled++
	}
	return filled
}
