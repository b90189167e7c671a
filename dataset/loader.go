// MODUL: loader
// ZWECK: Gemischte, vorgeladene Batch-Lieferung fuer die Trainingsschleife
// INPUT: Dataset, Batchgroesse, Seed
// OUTPUT: Batches in deterministischer, gemischter Reihenfolge
// NEBENEFFEKTE: Hintergrund-Worker laden Beispiele voraus
// ABHAENGIGKEITEN: golang.org/x/sync/errgroup (extern)
// HINWEISE: Bei Erschoepfung wird neu gemischt und von vorn begonnen;
//           die Lieferreihenfolge bleibt trotz paralleler Worker stabil

package dataset

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/7blacky7/loratrain/envconfig"
	"github.com/7blacky7/loratrain/ml"
)

// Batch is one ordered slice of samples.
type Batch struct {
	Samples []*Sample
}

// Loader delivers batches in seeded-shuffle order and wraps around
// indefinitely. Next never returns io.EOF; the caller bounds the loop.
type Loader struct {
	ds        *Dataset
	batchSize int
	rng       *ml.RNG

	order []int
	pos   int
}

// NewLoader creates a loader over ds with the given batch size. The
// seed fixes the shuffle order of every pass.
func NewLoader(ds *Dataset, batchSize int, seed int64) (*Loader, error) {
	if ds.Len() == 0 {
		return nil, fmt.Errorf("datensatz ist leer")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("ungueltige batchgroesse %d", batchSize)
	}

	l := &Loader{ds: ds, batchSize: batchSize, rng: ml.NewRNG(seed)}
	l.reshuffle()
	return l, nil
}

func (l *Loader) reshuffle() {
	l.order = l.rng.Perm(l.ds.Len())
	l.pos = 0
}

// Next loads the next batch. Samples are fetched by parallel workers
// but returned in shuffle order.
func (l *Loader) Next(ctx context.Context) (*Batch, error) {
	idxs := make([]int, 0, l.batchSize)
	for len(idxs) < l.batchSize {
		if l.pos == len(l.order) {
			l.reshuffle()
		}
		idxs = append(idxs, l.order[l.pos])
		l.pos++
	}

	samples := make([]*Sample, len(idxs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(int(envconfig.LoaderWorkers()))
	for i, idx := range idxs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := l.ds.Get(idx)
			if err != nil {
				return err
			}
			samples[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Batch{Samples: samples}, nil
}
