// config.go - Laufkonfiguration des Trainings
//
// Dieses Modul enthaelt:
// - Config: alle Parameter eines Trainingslaufs, unveraenderlich
// - Defaults entsprechend dem Referenztraining
//
// Die Konfiguration wird wortgleich als config.json in den finalen
// Checkpoint geschrieben.
package training

import "fmt"

// Config holds every knob of one training run. Treat it as immutable
// once the run starts.
type Config struct {
	DatasetDir string `json:"dataset_dir"`
	OutputDir  string `json:"output_dir"`

	MaxTrainSteps    int     `json:"max_train_steps"`
	LoraRank         int     `json:"lora_rank"`
	LearningRate     float64 `json:"learning_rate"`
	Resolution       int     `json:"resolution"`
	BatchSize        int     `json:"batch_size"`
	GradAccumulation int     `json:"gradient_accumulation"`
	SaveSteps        int     `json:"save_steps"`
	Seed             int64   `json:"seed"`
	GPUID            int     `json:"gpu_id"`
	SecondaryGPUID   int     `json:"secondary_gpu_id"`
}

// DefaultConfig returns the reference run parameters.
func DefaultConfig() Config {
	return Config{
		DatasetDir:       "dataset",
		OutputDir:        "lora_output",
		MaxTrainSteps:    4000,
		LoraRank:         64,
		LearningRate:     1e-4,
		Resolution:       768,
		BatchSize:        1,
		GradAccumulation: 4,
		SaveSteps:        500,
		Seed:             42,
		GPUID:            0,
		SecondaryGPUID:   1,
	}
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	switch {
	case c.DatasetDir == "":
		return fmt.Errorf("dataset_dir fehlt")
	case c.OutputDir == "":
		return fmt.Errorf("output_dir fehlt")
	case c.MaxTrainSteps <= 0:
		return fmt.Errorf("max_train_steps muss positiv sein, ist %d", c.MaxTrainSteps)
	case c.LoraRank <= 0:
		return fmt.Errorf("lora_rank muss positiv sein, ist %d", c.LoraRank)
	case c.LearningRate <= 0:
		return fmt.Errorf("learning_rate muss positiv sein, ist %g", c.LearningRate)
	case c.Resolution <= 0 || c.Resolution%16 != 0:
		return fmt.Errorf("resolution muss ein positives Vielfaches von 16 sein, ist %d", c.Resolution)
	case c.BatchSize <= 0:
		return fmt.Errorf("batch_size muss positiv sein, ist %d", c.BatchSize)
	case c.GradAccumulation <= 0:
		return fmt.Errorf("gradient_accumulation muss positiv sein, ist %d", c.GradAccumulation)
	case c.SaveSteps <= 0:
		return fmt.Errorf("save_steps muss positiv sein, ist %d", c.SaveSteps)
	case c.GPUID < 0 || c.SecondaryGPUID < 0:
		return fmt.Errorf("geraete-ids duerfen nicht negativ sein")
	}
	return nil
}
