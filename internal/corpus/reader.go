// Package corpus loads the garment review dataset that search runs over.
// The dataset is read once at startup (or by the graph importer) and is
// immutable afterwards.
package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/loomindex/loomindex/internal/domain"
)

// Load reads catalog items from a CSV or parquet file, dispatching on the
// file extension. Rows without a title or combined text are dropped.
func Load(path string) ([]domain.Item, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".parquet":
		return loadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
}

// row mirrors the dataset columns for parquet decoding.
type row struct {
	Title        string `parquet:"Title,optional"`
	Review       string `parquet:"Review,optional"`
	ConsRating   string `parquet:"Cons_rating,optional"`
	ClothClass   string `parquet:"Cloth_class,optional"`
	Materials    string `parquet:"Materials,optional"`
	Construction string `parquet:"Construction,optional"`
	Color        string `parquet:"Color,optional"`
	Finishing    string `parquet:"Finishing,optional"`
	Durability   string `parquet:"Durability,optional"`
	CombinedText string `parquet:"Combined_Text,optional"`
}

func (r row) item() domain.Item {
	return domain.Item{
		Title:        r.Title,
		Review:       r.Review,
		ConsRating:   r.ConsRating,
		ClothClass:   r.ClothClass,
		Materials:    r.Materials,
		Construction: r.Construction,
		Color:        r.Color,
		Finishing:    r.Finishing,
		Durability:   r.Durability,
		CombinedText: r.CombinedText,
	}
}

func (r row) valid() bool {
	return r.Title != "" && r.CombinedText != ""
}

func loadParquet(path string) ([]domain.Item, error) {
	rows, err := parquet.ReadFile[row](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}

	items := make([]domain.Item, 0, len(rows))
	for _, r := range rows {
		if r.valid() {
			items = append(items, r.item())
		}
	}
	return items, nil
}

func loadCSV(path string) ([]domain.Item, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = -1 // ragged rows are handled by the column map

	header, err := rd.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var items []domain.Item
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		r := row{
			Title:        field("Title"),
			Review:       field("Review"),
			ConsRating:   field("Cons_rating"),
			ClothClass:   field("Cloth_class"),
			Materials:    field("Materials"),
			Construction: field("Construction"),
			Color:        field("Color"),
			Finishing:    field("Finishing"),
			Durability:   field("Durability"),
			CombinedText: field("Combined_Text"),
		}
		if r.valid() {
			items = append(items, r.item())
		}
	}
	return items, nil
}
