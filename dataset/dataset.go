// MODUL: dataset
// ZWECK: Paarweise Bild/Caption-Datensaetze fuer das LoRA-Training
// INPUT: Datensatzverzeichnis, Zielaufloesung
// OUTPUT: Indexierbarer Datensatz mit vorverarbeiteten Beispielen
// NEBENEFFEKTE: Verzeichnis-Scan beim Oeffnen, Dateizugriff bei Get
// ABHAENGIGKEITEN: dataset/image, log/slog
// HINWEISE: Bilder ohne .txt-Caption werden stillschweigend gezaehlt
//           und uebersprungen; keine Rekursion in Unterverzeichnisse

package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/7blacky7/loratrain/ml"
)

// imageExts sind die akzeptierten Bildendungen (Gross/Klein egal)
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// Pair is one image file with its caption file.
type Pair struct {
	ImagePath   string
	CaptionPath string
}

// Sample is one preprocessed training example.
type Sample struct {
	Pixels  *ml.Tensor // [3, R, R] in [-1, 1]
	Caption string
}

// Dataset is a fixed-length, index-addressable set of image/caption
// pairs. The pair list is sorted for deterministic order.
type Dataset struct {
	pairs      []Pair
	resolution int
	excluded   int
}

// Open scans dir (non-recursive) for images with matching captions.
func Open(dir string, resolution int) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("datensatzverzeichnis lesen: %w", err)
	}

	d := &Dataset{resolution: resolution}
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}

		img := filepath.Join(dir, e.Name())
		txt := strings.TrimSuffix(img, filepath.Ext(img)) + ".txt"
		if _, err := os.Stat(txt); err != nil {
			d.excluded++
			continue
		}
		d.pairs = append(d.pairs, Pair{ImagePath: img, CaptionPath: txt})
	}

	sort.Slice(d.pairs, func(i, j int) bool { return d.pairs[i].ImagePath < d.pairs[j].ImagePath })

	if d.excluded > 0 {
		slog.Debug("captionless images skipped", "dir", dir, "count", d.excluded)
	}
	return d, nil
}

// Len returns the number of usable pairs.
func (d *Dataset) Len() int { return len(d.pairs) }

// Excluded returns how many images were skipped for lack of a caption.
func (d *Dataset) Excluded() int { return d.excluded }

// Pair returns the file pair at index i without loading it.
func (d *Dataset) Pair(i int) Pair { return d.pairs[i] }

// Get loads and preprocesses the pair at index i. Deterministic for a
// given index.
func (d *Dataset) Get(i int) (*Sample, error) {
	p := d.pairs[i]

	pixels, err := LoadPixels(p.ImagePath, d.resolution)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.ImagePath, err)
	}

	caption, err := os.ReadFile(p.CaptionPath)
	if err != nil {
		return nil, fmt.Errorf("caption %s: %w", p.CaptionPath, err)
	}

	return &Sample{
		Pixels:  pixels,
		Caption: strings.TrimSpace(string(caption)),
	}, nil
}
