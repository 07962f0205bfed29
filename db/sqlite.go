package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"gamepredict/ml"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

var errNotInitialized = errors.New("database not initialized")

// InitDB opens the SQLite database and creates the schema
func InitDB(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	conn, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS games (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        home_team_batting_avg REAL NOT NULL,
        home_team_era REAL NOT NULL,
        home_team_runs_per_game REAL NOT NULL,
        away_team_batting_avg REAL NOT NULL,
        away_team_era REAL NOT NULL,
        away_team_runs_per_game REAL NOT NULL,
        home_team_runs REAL NOT NULL,
        away_team_runs REAL NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_path TEXT NOT NULL,
        home_score REAL,
        away_score REAL,
        train_rows INTEGER,
        test_rows INTEGER,
        trained_at DATETIME
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        game_id INTEGER,
        features TEXT NOT NULL,
        predicted_home_score REAL,
        predicted_away_score REAL,
        predicted_total REAL,
        confidence REAL,
        model TEXT,
        created_at DATETIME
    );
    `
	if _, err := conn.Exec(query); err != nil {
		conn.Close()
		return err
	}
	if database != nil {
		database.Close()
	}
	database = conn
	return nil
}

func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

func Initialized() bool {
	return database != nil
}

// SaveGames appends historical games in one transaction
func SaveGames(games []ml.GameRow) error {
	if database == nil {
		return errNotInitialized
	}
	tx, err := database.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
        INSERT INTO games (
            home_team_batting_avg, home_team_era, home_team_runs_per_game,
            away_team_batting_avg, away_team_era, away_team_runs_per_game,
            home_team_runs, away_team_runs
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, g := range games {
		f := g.Features
		if _, err := stmt.Exec(
			f.HomeTeamBattingAvg, f.HomeTeamERA, f.HomeTeamRunsPerGame,
			f.AwayTeamBattingAvg, f.AwayTeamERA, f.AwayTeamRunsPerGame,
			g.HomeTeamRuns, g.AwayTeamRuns,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadGames returns stored games in insertion order; limit <= 0 means all
func LoadGames(limit int) ([]ml.GameRow, error) {
	if database == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := database.Query(`
        SELECT home_team_batting_avg, home_team_era, home_team_runs_per_game,
               away_team_batting_avg, away_team_era, away_team_runs_per_game,
               home_team_runs, away_team_runs
        FROM games
        ORDER BY id
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]ml.GameRow, 0)
	for rows.Next() {
		var g ml.GameRow
		f := &g.Features
		if err := rows.Scan(
			&f.HomeTeamBattingAvg, &f.HomeTeamERA, &f.HomeTeamRunsPerGame,
			&f.AwayTeamBattingAvg, &f.AwayTeamERA, &f.AwayTeamRunsPerGame,
			&g.HomeTeamRuns, &g.AwayTeamRuns,
		); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

type TrainingLog struct {
	ModelPath string    `json:"model_path"`
	HomeScore float64   `json:"home_score"`
	AwayScore float64   `json:"away_score"`
	TrainRows int       `json:"train_rows"`
	TestRows  int       `json:"test_rows"`
	TrainedAt time.Time `json:"trained_at"`
}

func SaveTrainingLog(modelPath string, result *ml.TrainResult) error {
	if database == nil {
		return errNotInitialized
	}
	if result == nil {
		return errors.New("training result required")
	}
	_, err := database.Exec(`
        INSERT INTO training_log (model_path, home_score, away_score, train_rows, test_rows, trained_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		modelPath, result.HomeScore, result.AwayScore, result.TrainRows, result.TestRows, time.Now().UTC())
	return err
}

func LoadTrainingLog(limit int) ([]TrainingLog, error) {
	if database == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := database.Query(`
        SELECT model_path, home_score, away_score, train_rows, test_rows, trained_at
        FROM training_log
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelPath, &log.HomeScore, &log.AwayScore, &log.TrainRows, &log.TestRows, &log.TrainedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// PredictionRecord is a served prediction together with its inputs
type PredictionRecord struct {
	ID        int64            `json:"id"`
	GameID    *int64           `json:"game_id,omitempty"`
	Features  ml.FeatureRecord `json:"features"`
	Model     string           `json:"model"`
	CreatedAt time.Time        `json:"created_at"`
	ml.Prediction
}

func SavePrediction(gameID *int64, features ml.FeatureRecord, prediction *ml.Prediction, model string) (int64, error) {
	if database == nil {
		return 0, errNotInitialized
	}
	if prediction == nil {
		return 0, errors.New("prediction required")
	}
	payload, err := json.Marshal(features)
	if err != nil {
		return 0, err
	}
	var game sql.NullInt64
	if gameID != nil {
		game = sql.NullInt64{Int64: *gameID, Valid: true}
	}
	res, err := database.Exec(`
        INSERT INTO predictions (
            game_id, features, predicted_home_score, predicted_away_score,
            predicted_total, confidence, model, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		game, string(payload), prediction.PredictedHomeScore, prediction.PredictedAwayScore,
		prediction.PredictedTotal, prediction.ConfidenceScore, model, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LoadPredictions returns the most recent predictions first
func LoadPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(`
        SELECT id, game_id, features, predicted_home_score, predicted_away_score,
               predicted_total, confidence, model, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		var game sql.NullInt64
		var features string
		var model sql.NullString
		if err := rows.Scan(&r.ID, &game, &features, &r.PredictedHomeScore, &r.PredictedAwayScore,
			&r.PredictedTotal, &r.ConfidenceScore, &model, &r.CreatedAt); err != nil {
			return nil, err
		}
		if game.Valid {
			id := game.Int64
			r.GameID = &id
		}
		if err := json.Unmarshal([]byte(features), &r.Features); err != nil {
			return nil, err
		}
		r.Model = model.String
		records = append(records, r)
	}
	return records, rows.Err()
}
