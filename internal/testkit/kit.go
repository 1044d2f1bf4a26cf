package testkit

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"

	"datalab/domain/dataset"
	"datalab/internal/inference"
)

// KitConfig configures the synthetic survey generator
type KitConfig struct {
	Respondents   int     `json:"respondents"`
	LikertItems   int     `json:"likert_items"`
	MissingRate   float64 `json:"missing_rate"`
	DuplicateRows int     `json:"duplicate_rows"`
	OutlierRows   int     `json:"outlier_rows"`
	Seed          int64   `json:"seed"`
}

// DefaultKitConfig returns sensible defaults for survey data generation
func DefaultKitConfig() KitConfig {
	return KitConfig{
		Respondents:   120,
		LikertItems:   5,
		MissingRate:   0.04,
		DuplicateRows: 3,
		OutlierRows:   2,
		Seed:          42,
	}
}

// Generator produces synthetic survey datasets with known defects. Each
// respondent row carries demographics, a block of likert items driven by a
// latent trait, and two continuous scores derived from the same trait, so
// the generated data has real correlations to find. Missing cells,
// duplicate rows, and age outliers are injected at the configured rates.
//
// A generator is deterministic for its seed: two generators built from the
// same config produce byte-identical tables.
type Generator struct {
	config KitConfig
	rng    *rand.Rand
}

// NewGenerator creates a survey generator for the given config
func NewGenerator(config KitConfig) *Generator {
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

var (
	genders    = []string{"Female", "Male", "Non-binary"}
	educations = []string{"High school", "Bachelor", "Master", "Doctorate"}
)

// Table generates the survey table. Column order: participant_id, age,
// gender, education, remote_worker, item_1..item_N, satisfaction_score,
// stress_score. Duplicate rows are exact copies appended after missing
// values are injected, so each pair stays cell-for-cell identical.
func (g *Generator) Table() *dataset.Table {
	cols := []string{"participant_id", "age", "gender", "education", "remote_worker"}
	for i := 1; i <= g.config.LikertItems; i++ {
		cols = append(cols, fmt.Sprintf("item_%d", i))
	}
	cols = append(cols, "satisfaction_score", "stress_score")

	rows := make([]dataset.Row, 0, g.config.Respondents+g.config.DuplicateRows)
	for i := 0; i < g.config.Respondents; i++ {
		rows = append(rows, g.respondent(i))
	}

	// Age outliers land in the last rows so small tables keep their
	// ordinary respondents intact.
	for i := 0; i < g.config.OutlierRows && i < len(rows); i++ {
		rows[len(rows)-1-i]["age"] = dataset.Number(float64(140 + 25*i))
	}

	for _, row := range rows {
		for _, col := range cols[1:] {
			if g.rng.Float64() < g.config.MissingRate {
				row[col] = dataset.Missing
			}
		}
	}

	for i := 0; i < g.config.DuplicateRows && i < len(rows); i++ {
		src := rows[g.rng.Intn(g.config.Respondents)]
		dup := make(dataset.Row, len(src))
		for k, v := range src {
			dup[k] = v
		}
		rows = append(rows, dup)
	}

	return &dataset.Table{Columns: cols, Rows: rows}
}

// Dataset generates a table and wraps it with inferred column types
func (g *Generator) Dataset(filename string) *dataset.Dataset {
	table := g.Table()
	types := inference.NewInferencer().InferTypes(table)
	return dataset.NewDataset(filename, table, types)
}

// CSV renders a generated table as CSV bytes, header row first. Missing
// cells render as empty fields, matching what the parser reads back.
func (g *Generator) CSV() []byte {
	table := g.Table()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(table.Columns)
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = row.Value(col).String()
		}
		w.Write(record)
	}
	w.Flush()
	return buf.Bytes()
}

// respondent builds one base row around a latent trait in likert units
func (g *Generator) respondent(i int) dataset.Row {
	trait := clamp(3.0+g.rng.NormFloat64()*0.8, 1, 5)

	row := dataset.Row{
		"participant_id": dataset.Text(fmt.Sprintf("P%03d", i+1)),
		"age":            dataset.Number(clamp(math.Round(36+g.rng.NormFloat64()*11), 18, 75)),
		"gender":         dataset.Text(genders[g.rng.Intn(len(genders))]),
		"education":      dataset.Text(educations[g.rng.Intn(len(educations))]),
		"remote_worker":  dataset.Bool(g.rng.Float64() < 0.45),
	}
	for j := 1; j <= g.config.LikertItems; j++ {
		item := clamp(math.Round(trait+g.rng.NormFloat64()*0.9), 1, 5)
		row[fmt.Sprintf("item_%d", j)] = dataset.Number(item)
	}

	satisfaction := clamp(trait*18+g.rng.NormFloat64()*6, 0, 100)
	stress := clamp(100-satisfaction*0.6+g.rng.NormFloat64()*8, 0, 100)
	row["satisfaction_score"] = dataset.Number(math.Round(satisfaction*10) / 10)
	row["stress_score"] = dataset.Number(math.Round(stress*10) / 10)
	return row
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
