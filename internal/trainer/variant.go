package trainer

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type MultiplierKind string

const (
	MultiplierNone   MultiplierKind = "none"
	MultiplierTable  MultiplierKind = "table"
	MultiplierLinear MultiplierKind = "linear"
)

// VariantConfig is a ruleset layered on top of the base scoring.
//
// Points for a settled ply are stacked in this order:
//  1. table factor for the attempt, applied to base, bonus and checkmate
//     bonus separately, each rounded half away from zero
//  2. sum
//  3. negative sum: floor division by PenaltyDivisor; positive sum: +PositiveBonus
//  4. linear multiplier (max-n+1)/max, only when the historical move was found
//  5. TimePenalty when the ply took longer than TimeLimit
//
// Hint costs are charged when a hint is revealed, not at settlement.
type VariantConfig struct {
	Name            string         `yaml:"name"`
	AttemptsPerMove int            `yaml:"attempts_per_move"`
	Multiplier      MultiplierKind `yaml:"multiplier"`
	AttemptFactors  []float64      `yaml:"attempt_factors"`
	PenaltyDivisor  int            `yaml:"penalty_divisor"`
	PositiveBonus   int            `yaml:"positive_bonus"`
	TimeLimit       time.Duration  `yaml:"time_limit"`
	TimePenalty     int            `yaml:"time_penalty"`
	Hints           bool           `yaml:"hints"`
	HintAfter       int            `yaml:"hint_after"`
	HintCost        int            `yaml:"hint_cost"`
	PerMoveCap      int            `yaml:"per_move_cap"`
}

var presets = map[string]VariantConfig{
	"classic": {Name: "classic", AttemptsPerMove: 1, Multiplier: MultiplierNone},
	"three-tries": {
		Name:            "three-tries",
		AttemptsPerMove: 3,
		Multiplier:      MultiplierTable,
		AttemptFactors:  []float64{1.0, 0.7, 0.4},
	},
	"lives": {
		Name:            "lives",
		AttemptsPerMove: 5,
		Multiplier:      MultiplierLinear,
		PenaltyDivisor:  2,
		PositiveBonus:   3,
		Hints:           true,
		HintAfter:       3,
	},
	"hints": {
		Name:            "hints",
		AttemptsPerMove: 3,
		Multiplier:      MultiplierNone,
		Hints:           true,
		HintAfter:       1,
		HintCost:        2,
	},
	"timed": {Name: "timed", AttemptsPerMove: 1, Multiplier: MultiplierNone, TimeLimit: 60 * time.Second, TimePenalty: 5},
	"blitz": {Name: "blitz", AttemptsPerMove: 1, Multiplier: MultiplierNone, TimeLimit: 30 * time.Second, TimePenalty: 5},
}

// Preset returns a copy of a built-in variant.
func Preset(name string) (VariantConfig, bool) {
	v, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return VariantConfig{}, false
	}
	v.AttemptFactors = append([]float64(nil), v.AttemptFactors...)
	return v, true
}

func (v VariantConfig) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("variant name required")
	}
	if v.AttemptsPerMove < 1 {
		return fmt.Errorf("variant %s: attempts_per_move must be >= 1", v.Name)
	}
	switch v.Multiplier {
	case "", MultiplierNone, MultiplierLinear:
	case MultiplierTable:
		if len(v.AttemptFactors) == 0 {
			return fmt.Errorf("variant %s: table multiplier needs attempt_factors", v.Name)
		}
		for _, f := range v.AttemptFactors {
			if f < 0 || f > 1 {
				return fmt.Errorf("variant %s: attempt factor %v out of [0,1]", v.Name, f)
			}
		}
	default:
		return fmt.Errorf("variant %s: unknown multiplier %q", v.Name, v.Multiplier)
	}
	if v.PenaltyDivisor < 0 || v.PositiveBonus < 0 || v.TimePenalty < 0 || v.HintCost < 0 || v.PerMoveCap < 0 {
		return fmt.Errorf("variant %s: negative amounts are not allowed", v.Name)
	}
	if v.TimeLimit < 0 {
		return fmt.Errorf("variant %s: negative time_limit", v.Name)
	}
	if v.Hints && v.HintAfter < 1 {
		return fmt.Errorf("variant %s: hint_after must be >= 1", v.Name)
	}
	return nil
}

// factor is the table multiplier for a 1-based attempt. Attempts past the
// end of the table reuse its last entry.
func (v VariantConfig) factor(attempt int) float64 {
	if v.Multiplier != MultiplierTable || len(v.AttemptFactors) == 0 {
		return 1
	}
	if attempt > len(v.AttemptFactors) {
		attempt = len(v.AttemptFactors)
	}
	if attempt < 1 {
		attempt = 1
	}
	return v.AttemptFactors[attempt-1]
}

// hintLevel is how many hints are visible after wrong guesses on a ply.
func (v VariantConfig) hintLevel(wrong int) int {
	if !v.Hints || wrong < v.HintAfter {
		return 0
	}
	return min(wrong-v.HintAfter+1, maxHintLevel)
}

// Note is one rendered fragment of a result message.
type Note struct {
	Key  string
	Data map[string]any
}

// Settlement is the variant's verdict for a ply that advances.
type Settlement struct {
	Points         int
	CheckmateBonus int
	TimedOut       bool
	Notes          []Note
}

// Settle turns a scoring outcome into points. attempt is 1-based and
// includes the settling submission.
func (v VariantConfig) Settle(o Outcome, attempt int, elapsed time.Duration) Settlement {
	f := v.factor(attempt)
	base := scale(o.Base, f)
	bonus := scale(o.Bonus, f)
	mate := scale(o.CheckmateBonus, f)

	s := Settlement{CheckmateBonus: mate}
	s.Notes = qualityNotes(o, base, bonus, mate)
	if f != 1 {
		s.Notes = append(s.Notes, Note{Key: "variant.factor", Data: map[string]any{
			"Factor":  strconv.FormatFloat(f, 'f', 1, 64),
			"Attempt": attempt,
		}})
	}

	total := base + bonus + mate
	switch {
	case total < 0 && v.PenaltyDivisor > 1:
		total = floorDiv(total, v.PenaltyDivisor)
		s.Notes = append(s.Notes, Note{Key: "variant.reduced_penalty"})
	case total > 0 && v.PositiveBonus > 0:
		total += v.PositiveBonus
		s.Notes = append(s.Notes, Note{Key: "variant.positive_bonus", Data: map[string]any{"Bonus": v.PositiveBonus}})
	}

	if v.Multiplier == MultiplierLinear && o.Exact() && attempt > 0 {
		m := float64(v.AttemptsPerMove-attempt+1) / float64(v.AttemptsPerMove)
		total = scale(total, m)
		s.Notes = append(s.Notes, Note{Key: "variant.factor", Data: map[string]any{
			"Factor":  strconv.FormatFloat(m, 'f', 1, 64),
			"Attempt": attempt,
		}})
	}

	if v.TimeLimit > 0 && elapsed > v.TimeLimit {
		s.TimedOut = true
		total -= v.TimePenalty
		s.Notes = append(s.Notes, Note{Key: "variant.time_penalty", Data: map[string]any{"Penalty": -v.TimePenalty}})
	}
	s.Points = total
	return s
}

func qualityNotes(o Outcome, base, bonus, mate int) []Note {
	notes := make([]Note, 0, 3)
	data := map[string]any{"Points": base}
	switch o.Tier {
	case TierMateFound:
		data["Mate"] = o.Submitted.MateDistance()
	}
	notes = append(notes, Note{Key: "quality." + string(o.Tier), Data: data})
	if bonus != 0 {
		key := "quality.exact_strong"
		if o.Historical.MoverMates() {
			key = "quality.exact_mate"
		}
		notes = append(notes, Note{Key: key, Data: map[string]any{
			"Bonus": bonus,
			"Mate":  o.Historical.MateDistance(),
		}})
	}
	if mate != 0 {
		notes = append(notes, Note{Key: "quality.checkmate", Data: map[string]any{"Bonus": mate}})
	}
	return notes
}

func scale(points int, f float64) int {
	if f == 1 {
		return points
	}
	return int(math.Round(float64(points) * f))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Variants is the set of rulesets a deployment offers.
type Variants struct {
	byName map[string]VariantConfig
}

// DefaultVariants holds the built-in presets only.
func DefaultVariants() *Variants {
	vs := &Variants{byName: make(map[string]VariantConfig, len(presets))}
	for name := range presets {
		v, _ := Preset(name)
		vs.byName[name] = v
	}
	return vs
}

func (vs *Variants) Get(name string) (VariantConfig, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "classic"
	}
	v, ok := vs.byName[key]
	if !ok {
		return VariantConfig{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

func (vs *Variants) Names() []string {
	names := make([]string, 0, len(vs.byName))
	for name := range vs.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type variantFile struct {
	Variants []VariantConfig `yaml:"variants"`
}

// ParseVariants reads extra variants from YAML. Entries may override a
// built-in preset of the same name.
func ParseVariants(r io.Reader) (*Variants, error) {
	var doc variantFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode variants: %w", err)
	}
	vs := DefaultVariants()
	for _, v := range doc.Variants {
		v.Name = strings.ToLower(strings.TrimSpace(v.Name))
		if v.Multiplier == "" {
			v.Multiplier = MultiplierNone
		}
		if err := v.Validate(); err != nil {
			return nil, err
		}
		vs.byName[v.Name] = v
	}
	return vs, nil
}

// LoadVariants reads path, or returns the built-in presets when path is empty.
func LoadVariants(path string) (*Variants, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultVariants(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open variants file: %w", err)
	}
	defer f.Close()
	return ParseVariants(f)
}
