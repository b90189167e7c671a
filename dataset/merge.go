// MODUL: merge
// ZWECK: Zusammenfuehren mehrerer Quellverzeichnisse zu einem Datensatz
// INPUT: Quellverzeichnisse, Ausgabeverzeichnis
// OUTPUT: Anzahl kopierter Bild/Caption-Paare
// NEBENEFFEKTE: Legt das Ausgabeverzeichnis an und kopiert Dateien
// ABHAENGIGKEITEN: dataset (Endungsliste), log/slog
// HINWEISE: Fehlende Quellverzeichnisse werden mit Diagnose uebersprungen;
//           spaetere Quellen ueberschreiben gleichnamige Dateien

package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Merge copies every valid image/caption pair from the source
// directories into outDir and returns the pair count.
func Merge(srcDirs []string, outDir string) (int, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("ausgabeverzeichnis anlegen: %w", err)
	}

	count := 0
	for _, src := range srcDirs {
		entries, err := os.ReadDir(src)
		if err != nil {
			slog.Warn("skipping source directory", "dir", src, "error", err)
			continue
		}

		for _, e := range entries {
			if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}

			img := filepath.Join(src, e.Name())
			txt := strings.TrimSuffix(img, filepath.Ext(img)) + ".txt"
			if _, err := os.Stat(txt); err != nil {
				continue
			}

			if err := copyFile(img, filepath.Join(outDir, filepath.Base(img))); err != nil {
				return count, err
			}
			if err := copyFile(txt, filepath.Join(outDir, filepath.Base(txt))); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("quelle oeffnen: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("ziel anlegen: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("kopieren %s: %w", src, err)
	}
	return out.Close()
}
