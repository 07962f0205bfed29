// Command train_model fits the home/away run models and writes them to the
// model store.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gamepredict/config"
	"gamepredict/db"
	"gamepredict/logging"
	"gamepredict/ml"

	"go.uber.org/zap"
)

type options struct {
	configPath string
	dataPath   string
	fromDB     bool
	sampleRows int
	noise      float64
	modelPath  string
	seedDB     bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("train_model", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var opts options
	flags.StringVar(&opts.configPath, "config", "", "path to config.yaml")
	flags.StringVar(&opts.dataPath, "data", "", "CSV file with feature and label columns")
	flags.BoolVar(&opts.fromDB, "from_db", false, "train on the games table")
	flags.IntVar(&opts.sampleRows, "sample", 0, "train on N generated sample rows")
	flags.Float64Var(&opts.noise, "noise", ml.DefaultSampleConfig().NoiseStdDev, "noise std dev for generated rows")
	flags.StringVar(&opts.modelPath, "model_path", "", "model output path (overrides config)")
	flags.BoolVar(&opts.seedDB, "seed_db", false, "also store generated sample rows in the games table")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(config.Resolve(opts.configPath))
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	if opts.modelPath != "" {
		cfg.ML.ModelPath = opts.modelPath
	}

	logger, err := logging.NewWithConsole(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if opts.fromDB || opts.seedDB {
		if err := db.InitDB(cfg.Database.Path); err != nil {
			logger.Error("failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
			return 1
		}
		defer db.Close()
	}

	ds, source, err := loadDataset(opts)
	if err != nil {
		logger.Error("failed to load training data", zap.Error(err))
		return 1
	}
	logger.Info("training data loaded", zap.String("source", source), zap.Int("rows", ds.Len()))

	model := ml.NewGamePredictionModel(cfg.ML.ModelPath, append(cfg.ML.ModelOptions(), ml.WithLogger(logger))...)
	result, err := model.Train(ds)
	if err != nil {
		logger.Error("failed to train model", zap.Error(err))
		return 1
	}

	fmt.Fprintf(stdout, "home R2=%.3f away R2=%.3f (train=%d test=%d)\n",
		result.HomeScore, result.AwayScore, result.TrainRows, result.TestRows)

	sample := ml.SampleFeatureRecord()
	if prediction, err := model.Predict(sample); err == nil {
		fmt.Fprintf(stdout, "sample prediction: home=%.1f away=%.1f total=%.1f\n",
			prediction.PredictedHomeScore, prediction.PredictedAwayScore, prediction.PredictedTotal)
	}

	if db.Initialized() {
		if err := db.SaveTrainingLog(cfg.ML.ModelPath, result); err != nil {
			logger.Warn("failed to record training run", zap.Error(err))
		}
	}

	fmt.Fprintf(stdout, "model saved to %s\n", cfg.ML.ModelPath)
	return 0
}

func loadDataset(opts options) (*ml.Dataset, string, error) {
	switch {
	case opts.dataPath != "":
		file, err := os.Open(opts.dataPath)
		if err != nil {
			return nil, "", err
		}
		defer file.Close()
		ds, err := ml.ReadCSV(file)
		return ds, opts.dataPath, err

	case opts.fromDB:
		games, err := db.LoadGames(0)
		if err != nil {
			return nil, "", err
		}
		if len(games) == 0 {
			return nil, "", fmt.Errorf("games table is empty")
		}
		return ml.DatasetFromGames(games), "games", nil

	default:
		config := ml.DefaultSampleConfig()
		if opts.sampleRows > 0 {
			config.Rows = opts.sampleRows
		}
		config.NoiseStdDev = opts.noise
		games, err := ml.GenerateSampleGames(config)
		if err != nil {
			return nil, "", err
		}
		if opts.seedDB {
			if err := db.SaveGames(games); err != nil {
				return nil, "", err
			}
		}
		return ml.DatasetFromGames(games), "sample", nil
	}
}
