// Command predict scores one game from a JSON feature record passed as its
// only argument and writes the prediction as JSON to stdout.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"os"

	"gamepredict/config"
	"gamepredict/logging"
	"gamepredict/ml"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("predict", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "path to config.yaml")
	modelPath := flags.String("model_path", "", "model file (overrides config)")
	if err := flags.Parse(args); err != nil {
		return fail(stdout, "invalid arguments: "+err.Error())
	}

	if flags.NArg() < 1 {
		return fail(stdout, "No features provided")
	}

	cfg, err := config.Load(config.Resolve(*configPath))
	if err != nil {
		return fail(stdout, "failed to load config: "+err.Error())
	}
	if *modelPath != "" {
		cfg.ML.ModelPath = *modelPath
	}

	logger, err := logging.NewWithConsole(cfg.Log, stderr)
	if err != nil {
		return fail(stdout, "failed to create logger: "+err.Error())
	}
	defer logger.Sync()

	record, err := ml.ParseFeatureRecord([]byte(flags.Arg(0)))
	if err != nil {
		return fail(stdout, err.Error())
	}

	opts := append(cfg.ML.ModelOptions(), ml.WithLogger(logger))
	model := ml.NewGamePredictionModel(cfg.ML.ModelPath, opts...)
	prediction, err := model.Predict(record)
	if err != nil {
		logger.Error("prediction failed", zap.Error(err))
		return fail(stdout, err.Error())
	}

	if err := json.NewEncoder(stdout).Encode(prediction); err != nil {
		return 1
	}
	return 0
}

func fail(stdout io.Writer, message string) int {
	json.NewEncoder(stdout).Encode(map[string]string{"error": message})
	return 1
}
