package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds every setting of a decode run.
// Tags are duplicated for yaml (config files) and mapstructure (viper).
type Config struct {
	Feeds        FeedsConfig       `yaml:"feeds" mapstructure:"feeds"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Reference    ReferenceConfig   `yaml:"reference" mapstructure:"reference"`
	Engine       EngineConfig      `yaml:"engine" mapstructure:"engine"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// FeedsConfig lists the RSS/Atom sources and selection limits
type FeedsConfig struct {
	URLs           []string `yaml:"urls" mapstructure:"urls"`
	LookbackDays   int      `yaml:"lookback_days" mapstructure:"lookback_days"`
	MaxArticles    int      `yaml:"max_articles" mapstructure:"max_articles"`
	MinTitleLength int      `yaml:"min_title_length" mapstructure:"min_title_length"`
}

// HTTPConfig controls outbound fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy" mapstructure:"no_proxy"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// RateLimitConfig is applied per host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig configures the fetched-document cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ReferenceConfig points at the reference phrase database and the archetype list
type ReferenceConfig struct {
	PhrasesPath    string `yaml:"phrases_path" mapstructure:"phrases_path"`
	ArchetypesPath string `yaml:"archetypes_path" mapstructure:"archetypes_path"`
}

// EngineConfig tunes the analytical engine
type EngineConfig struct {
	Calculators     []string `yaml:"calculators" mapstructure:"calculators"`
	SymbolicNumbers []int    `yaml:"symbolic_numbers" mapstructure:"symbolic_numbers"`
	LifePathBonus   []int    `yaml:"life_path_bonus" mapstructure:"life_path_bonus"`
	ArchetypeWindow int      `yaml:"archetype_window" mapstructure:"archetype_window"` // Body bytes scanned for archetypes
	MaxPhrases      int      `yaml:"max_phrases" mapstructure:"max_phrases"`
	TopMatches      int      `yaml:"top_matches" mapstructure:"top_matches"` // Matches shown per item in Markdown
}

// LLMConfig configures the optional phrase/5W extraction provider
type LLMConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // "" disables, "openai"
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	JSON        bool   `yaml:"json" mapstructure:"json"`
	Markdown    bool   `yaml:"markdown" mapstructure:"markdown"`
	TextPreview int    `yaml:"text_preview" mapstructure:"text_preview"`
	Verbose     bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LoggingConfig selects the zap encoder and level
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "console" or "json"
}

// DefaultFeeds are the news sources scanned when no feeds are configured
var DefaultFeeds = []string{
	"https://rss.nytimes.com/services/xml/rss/nyt/HomePage.xml",
	"https://feeds.bbci.co.uk/news/rss.xml",
	"https://www.theguardian.com/world/rss",
	"https://www.aljazeera.com/xml/rss/all.xml",
	"https://www.reuters.com/rssFeed/topNews",
	"https://www.theverge.com/rss/index.xml",
	"https://www.sciencedaily.com/rss/top/science.xml",
	"https://feeds.skynews.com/feeds/rss/world.xml",
	"https://www.cbc.ca/cmlink/rss-world",
}

// DefaultSymbolicNumbers is the curated set of headline numbers that score
var DefaultSymbolicNumbers = []int{11, 13, 22, 23, 33, 36, 42, 44, 47, 54, 66, 77, 88, 93, 99}

// DefaultLifePathBonus lists the life path values that add a point
var DefaultLifePathBonus = []int{7, 9, 11, 22}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "decode-cache")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "decode")
	}

	return &Config{
		Feeds: FeedsConfig{
			URLs:           append([]string(nil), DefaultFeeds...),
			LookbackDays:   1,
			MaxArticles:    40,
			MinTitleLength: 6,
		},
		HTTP: HTTPConfig{
			Timeout:       15 * time.Second,
			UserAgent:     "Mozilla/5.0 (compatible; Decode/0.1; +https://github.com/ppiankov/decode)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskDir:   cacheDir,
			DiskTTL:   3 * time.Hour,
		},
		Reference: ReferenceConfig{
			PhrasesPath:    "database/phrases.json",
			ArchetypesPath: "database/archetypes.json",
		},
		Engine: EngineConfig{
			Calculators:     []string{"english_ordinal", "full_reduction", "reverse_ordinal", "reverse_reduction", "sumerian"},
			SymbolicNumbers: append([]int(nil), DefaultSymbolicNumbers...),
			LifePathBonus:   append([]int(nil), DefaultLifePathBonus...),
			ArchetypeWindow: 5000,
			MaxPhrases:      20,
			TopMatches:      10,
		},
		LLM: LLMConfig{
			Timeout:   30 * time.Second,
			MaxTokens: 800,
		},
		Output: OutputConfig{
			Dir:         "docs",
			JSON:        true,
			Markdown:    true,
			TextPreview: 2000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
