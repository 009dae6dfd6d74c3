package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from YTRAG_* environment variables.
func ApplyEnv(cfg *AppConfig, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	getEnv(lookup, "YTRAG_LLM_MODEL", &cfg.LLM.Model)
	getEnv(lookup, "YTRAG_EMBEDDING_MODEL", &cfg.Embedder.Model)
	getEnv(lookup, "YTRAG_EMBEDDER", &cfg.Embedder.Type)
	getEnv(lookup, "YTRAG_LOG_LEVEL", &cfg.Log.Level)
	if err := getEnvAsFloat(lookup, "YTRAG_LLM_TEMPERATURE", &cfg.LLM.Temperature); err != nil {
		return err
	}
	if err := getEnvAsInt(lookup, "YTRAG_CHUNK_SIZE", &cfg.Chunker.ChunkSize); err != nil {
		return err
	}
	if err := getEnvAsInt(lookup, "YTRAG_CHUNK_OVERLAP", &cfg.Chunker.ChunkOverlap); err != nil {
		return err
	}
	if err := getEnvAsInt(lookup, "YTRAG_RETRIEVAL_K", &cfg.Retrieval.K); err != nil {
		return err
	}
	var langs string
	if getEnv(lookup, "YTRAG_TRANSCRIPT_LANGUAGE", &langs) {
		var out []string
		for _, l := range strings.Split(langs, ",") {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
		cfg.Transcript.Languages = out
	}
	return nil
}

// APIKey returns the value of the variable named by openai.api_key_env.
func (c *AppConfig) APIKey(lookup LookupFunc) string {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(c.OpenAI.APIKeyEnv)
	return strings.TrimSpace(v)
}

func getEnv(lookup LookupFunc, key string, dst *string) bool {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return false
	}
	*dst = strings.TrimSpace(v)
	return true
}

func getEnvAsInt(lookup LookupFunc, key string, dst *int) error {
	var s string
	if !getEnv(lookup, key, &s) {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func getEnvAsFloat(lookup LookupFunc, key string, dst *float64) error {
	var s string
	if !getEnv(lookup, key, &s) {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}
