package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir string // directory holding 4-1.csv and 4-2_<year>.csv

	DBDriver string // sqlite|postgres, for the session store
	DBDSN    string

	QuestionCount int // default questions per exam session
	LogLevel      string
}

// LoadEnvFile loads a .env file if present. Missing files are not an error;
// explicit environment always wins over file contents.
func LoadEnvFile(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

func FromEnv() Config {
	return Config{
		DataDir:       envOr("EXAM_DATA_DIR", "data"),
		DBDriver:      envOr("DB_DRIVER", "sqlite"),
		DBDSN:         envOr("DB_DSN", ""),
		QuestionCount: envInt("EXAM_QUESTION_COUNT", 10),
		LogLevel:      envOr("LOG_LEVEL", "INFO"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
