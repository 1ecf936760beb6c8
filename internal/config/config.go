package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	PineconeAPIKey      string
	PineconeDiseaseHost string
	PineconeSchemeHost  string

	RerankerURL string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	DataDir           string
	DiseaseCorpusFile string
	SchemeCorpusFile  string

	ChunkSize    int
	ChunkOverlap int

	SemanticTopK int
	LexicalTopK  int
	MaxDocuments int

	PipelineTimeout time.Duration

	APIRateLimitRPS   float64
	APIRateLimitBurst int
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		PineconeAPIKey:      mustEnv("PINECONE_API_KEY", ""),
		PineconeDiseaseHost: mustEnv("PINECONE_DISEASE_HOST", ""),
		PineconeSchemeHost:  mustEnv("PINECONE_SCHEME_HOST", ""),

		RerankerURL: mustEnv("RERANKER_URL", "http://localhost:8081"),

		MongoURI:        mustEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   mustEnv("MONGO_DATABASE", "agri_assistant"),
		MongoCollection: mustEnv("MONGO_COLLECTION", "conversations"),

		DataDir:           mustEnv("DATA_DIR", "./data"),
		DiseaseCorpusFile: mustEnv("DISEASE_CORPUS_FILE", "diseases.pdf"),
		SchemeCorpusFile:  mustEnv("SCHEME_CORPUS_FILE", "schemes.pdf"),

		ChunkSize:    mustEnvInt("CHUNK_SIZE", 800),
		ChunkOverlap: mustEnvInt("CHUNK_OVERLAP", 150),

		SemanticTopK: mustEnvInt("SEMANTIC_TOP_K", 5),
		LexicalTopK:  mustEnvInt("LEXICAL_TOP_K", 5),
		MaxDocuments: mustEnvInt("MAX_DOCUMENTS", 4),

		PipelineTimeout: mustEnvDuration("PIPELINE_TIMEOUT", 90*time.Second),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 10),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 20),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
